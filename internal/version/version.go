// Package version reports which scout build is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Stamped at release time:
//
//	go build -ldflags "-X scout/internal/version.Commit=$(git rev-parse HEAD)"
//
// Empty values fall back to the VCS settings the toolchain embeds.
var (
	Version   = "0.4.0"
	Commit    = ""
	BuildDate = ""
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

// Current returns the stamped build info, filling gaps from debug.BuildInfo.
func Current() Build {
	settings := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
	}
	return fromSettings(settings)
}

func fromSettings(settings map[string]string) Build {
	b := Build{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if b.Commit == "" {
		b.Commit = settings["vcs.revision"]
		b.Modified = settings["vcs.modified"] == "true"
	}
	if b.BuildDate == "" {
		b.BuildDate = settings["vcs.time"]
	}
	return b
}

// ShortCommit is the 7-character abbreviation git prints.
func (b Build) ShortCommit() string {
	if len(b.Commit) > 7 {
		return b.Commit[:7]
	}
	return b.Commit
}

// String renders e.g. "scout 0.4.0 (abc1234-dirty, 2025-07-04T12:00:00Z, go1.24.11)".
func (b Build) String() string {
	var details []string
	if c := b.ShortCommit(); c != "" {
		if b.Modified {
			c += "-dirty"
		}
		details = append(details, c)
	}
	if b.BuildDate != "" {
		details = append(details, b.BuildDate)
	}
	details = append(details, b.GoVersion)
	return fmt.Sprintf("scout %s (%s)", b.Version, strings.Join(details, ", "))
}
