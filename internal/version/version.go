// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/MeKo-Tech/checkcode/internal/version.Version=v1.2.0"
package version

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// UserAgent identifies checkcode in outgoing HTTP requests.
func UserAgent() string {
	return "checkcode/" + Version
}
