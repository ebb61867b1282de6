// Package version holds the build metadata of alarm-groups.
//
// Version, Commit and BuildTime are overridden with -ldflags -X on release
// builds.
package version
