// Package misc provides small program-identity helpers shared by the CLI
// and configuration layers.
package misc

import "runtime/debug"

const appName = "papyrus"

var (
	version = "dev"
	hash    = "unknown"
)

// GetAppName returns the program's name, used for default file/dir naming.
func GetAppName() string {
	return appName
}

// GetVersion returns the build version, falling back to the module's
// pseudo-version recorded in the binary when not set by -ldflags.
func GetVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

// GetGitHash returns the VCS revision embedded by the Go toolchain, when
// available.
func GetGitHash() string {
	if hash != "unknown" {
		return hash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return hash
}
