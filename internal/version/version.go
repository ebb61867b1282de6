package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of alarm-groups, set with ldflags on release builds.
	Version = "0.1.0"
	// Commit is the short git SHA of the build, or "none".
	Commit = "none"
	// BuildTime is the UTC build timestamp, or "unknown".
	BuildTime = "unknown"
)

// Short returns only the semantic version.
func Short() string {
	return Version
}

// Full returns the version with commit, build time and Go runtime.
func Full() string {
	return fmt.Sprintf("alarm-groups %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
