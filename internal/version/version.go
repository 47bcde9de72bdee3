package version

// Build information, overridden with -ldflags "-X github.com/orgoj/rotalog/internal/version.Version=..."
var (
	// Version is the current version of rotalog
	Version = "0.1.0-dev"
	// BuildDate is the date when the binary was built
	BuildDate = "undefined"
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "undefined"
)

// Info is the JSON shape served by the admin /version route.
type Info struct {
	Version    string `json:"version"`
	BuildDate  string `json:"build_date"`
	CommitHash string `json:"commit_hash"`
}

// Current returns the build information.
func Current() Info {
	return Info{Version: Version, BuildDate: BuildDate, CommitHash: CommitHash}
}

// VersionInfo returns formatted version information
func VersionInfo() string {
	return "rotalog version " + Version + " (build: " + BuildDate + ", commit: " + CommitHash + ")"
}
