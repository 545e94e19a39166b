// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X github.com/HerbHall/havenwatch/internal/version.Version=v0.3.0"
package version

import "runtime"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Short returns the version string alone.
func Short() string {
	return Version
}

// Map returns build metadata for JSON responses and structured logs.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}
