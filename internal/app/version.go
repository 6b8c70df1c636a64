package app

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Build-time variables set via ldflags. Empty or placeholder values are
// filled from the module build info embedded by the go tool.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
	GoVersion string
	Modified  bool // built from a dirty work tree
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// GetVersionInfo returns the ldflags values, completed from the build info.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion

	// "go install module@version" stamps the module version
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = shortRevision(setting.Value)
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// FullString returns a detailed version string for the version command and logs.
func (v VersionInfo) FullString() string {
	version := v.Version
	if v.GitTag != "" {
		version = v.GitTag
	}

	commit := v.GitCommit
	if v.Modified {
		commit += "-dirty"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "audiotracker %s (commit: %s, built: %s", version, commit, v.BuildTime)
	if v.GoVersion != "" {
		fmt.Fprintf(&b, ", %s", v.GoVersion)
	}
	b.WriteString(")")
	return b.String()
}
