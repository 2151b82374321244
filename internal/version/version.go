// Package version reports build metadata for the certagent binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/certagent/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/certagent/internal/version.Commit=abc123
//	  -X github.com/soyeahso/certagent/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Build is the resolved build metadata.
type Build struct {
	Version string
	Commit  string
	Date    string
}

// Current returns the ldflags values, filling any left at their defaults
// from the module build info (as recorded by `go install`).
func Current() Build {
	b := Build{Version: Version, Commit: Commit, Date: Date}

	info, ok := readBuildInfo()
	if !ok {
		return b
	}
	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "unknown" {
				b.Date = s.Value
			}
		}
	}
	return b
}

// Info returns a formatted version string.
func Info() string {
	b := Current()
	return fmt.Sprintf("certagent %s (commit: %s, built: %s, %s/%s)",
		b.Version, short(b.Commit), b.Date, runtime.GOOS, runtime.GOARCH)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
