// Package cli implements the audiotracker command line.
package cli

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/audiotracker/internal/app"
	"github.com/tejashwikalptaru/audiotracker/internal/config"
)

// rootOptions carries the persistent flags and the loaded configuration.
type rootOptions struct {
	cfgFile     string
	engine      string
	statsDriver string
	logLevel    string

	settings *config.Config

	// fyneApp replaces the preferences store (tests only)
	fyneApp fyne.App
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audiotracker",
		Short: "Play local music and keep per-song play counts",
		Long: `AudioTracker scans music directories, plays tracks from the terminal and
counts how often each (artist, title) pair has been played.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig(cmd)
		},
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: "+config.DefaultPath()+")")
	flags.StringVar(&opts.engine, "engine", "", "audio engine: beep or mock")
	flags.StringVar(&opts.statsDriver, "stats-driver", "", "play count store: sqlite, mysql, redis or preferences")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newScanCmd(opts),
		newPlayCmd(opts),
		newStatsCmd(opts),
		newRecordCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) initConfig(cmd *cobra.Command) error {
	// config init must work even when the current file is broken
	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return nil
	}

	var err error
	if o.cfgFile != "" {
		o.settings, err = config.LoadFrom(o.cfgFile)
	} else {
		o.settings, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if o.engine != "" {
		o.settings.Player.Engine = o.engine
	}
	if o.statsDriver != "" {
		o.settings.Stats.Driver = o.statsDriver
	}
	if o.logLevel != "" {
		o.settings.Log.Level = o.logLevel
	}

	if err := o.settings.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// newApplication wires the application for one command.
func (o *rootOptions) newApplication(libraryPaths []string) (*app.Application, error) {
	cfg := app.DefaultConfig()
	cfg.Settings = o.settings
	cfg.LibraryPaths = libraryPaths
	cfg.FyneApp = o.fyneApp

	return app.NewApplication(cfg)
}

// headless configures commands that neither play audio nor watch the library.
func (o *rootOptions) headless() {
	o.settings.Player.Engine = config.EngineMock
	o.settings.Library.Watch = false
}

const skipConfigAnnotation = "skip-config"

// Execute runs the root command.
func Execute() {
	if err := newRootCmd(&rootOptions{}).Execute(); err != nil {
		os.Exit(1)
	}
}
