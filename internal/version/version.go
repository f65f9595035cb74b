/*
Package version provides build information for devtools-hub.

Values are set via ldflags during build:

	-X github.com/khanglvm/devtools-hub/internal/version.Version=v0.3.0
	-X github.com/khanglvm/devtools-hub/internal/version.Commit=abc1234
	-X github.com/khanglvm/devtools-hub/internal/version.Date=2026-10-01

If not set, the build reports itself as "dev".
*/
package version

import "runtime"

var (
	// Version is the release tag (e.g., v0.3.0)
	Version = "dev"
	// Commit is the git commit hash (short form)
	Commit = "none"
	// Date is the build date in UTC (YYYY-MM-DD)
	Date = "unknown"
)

// Info is the build information reported by the CLI and the HTTP API.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
}

// Get returns the build information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	}
}

// String formats the build information for display.
func (i Info) String() string {
	if i.Version == "dev" {
		return i.Version + " (development build, " + i.GoVersion + ")"
	}
	return i.Version + " (commit: " + i.Commit + ", built: " + i.Date + ", " + i.GoVersion + ")"
}
