// Package version holds build metadata injected at link time.
package version

var (
	// Version is the release version, set with -ldflags at build time.
	Version = "dev"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
)
