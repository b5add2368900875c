// Package version provides information about the build version of the service.
package version

// BuildInfo holds version information about the service build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set via -ldflags "-X 'tubelytics/internal/core/version.version=v0.1.0'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build information for the API binary
func Info() BuildInfo {
	return BuildInfo{
		Service: "tubelytics-api",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}
