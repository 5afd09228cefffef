// Package version carries build metadata injected via ldflags.
package version

var (
	// Version is the current application version.
	// It should be populated by the build system (ldflags).
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the version with commit and build date.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
