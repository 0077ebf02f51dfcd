package build

// Set via -ldflags "-X github.com/chunkytofustudios/analytics-gate/internal/build.Environment=development".
var (
	Version     = "dev"
	Commit      = "none"
	BuildTime   = "unknown"
	Environment = "production"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// IsDevelopment reports whether the binary was built for development.
func IsDevelopment() bool {
	return Environment == "development"
}
