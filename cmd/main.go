// Package main is the entry point of the audiotracker command.
//
// Build:
//
//	go build -o build/audiotracker ./cmd
//
// Run:
//
//	./build/audiotracker play
package main

import "github.com/tejashwikalptaru/audiotracker/internal/cli"

func main() {
	cli.Execute()
}
