// Package version holds build metadata injected with -ldflags, e.g.
//
//	-X github.com/robloxmcp/studio-assist/common/version.Version=v1.2.0
package version

var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info formats the build metadata on one line.
func Info() string {
	return Version + " (commit " + GitCommit + ", built " + BuildTime + ")"
}
