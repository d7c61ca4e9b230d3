// Package version holds build metadata stamped into the service binaries
// via -ldflags; each CLI's version command prints it.
package version

import "runtime"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GoVersion returns the Go runtime version string.
func GoVersion() string { return runtime.Version() }
