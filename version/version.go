// Package version carries build information embedded at compile time:
//
//	go build -ldflags "-X github.com/kbukum/convoy/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// String returns the human-readable version line for --version output and
// run logs.
func String() string {
	commit := GitCommit
	if commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
					commit = setting.Value[:7]
				}
			}
		}
	}

	out := "convoy " + Version
	if commit != "" {
		out = fmt.Sprintf("%s (%s)", out, commit)
	}
	if BuildTime != "" {
		out = fmt.Sprintf("%s built %s", out, BuildTime)
	}
	return out
}
