package version

var (
	// semver and revision are overridden at build time via -ldflags when we
	// tag a release
	semver   = "0.3.0"
	revision = "unknown"
)

// Get returns the release version of the bundler binary
func Get() string {
	return semver
}

func Commit() string {
	return revision
}
