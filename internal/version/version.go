package version

// Version is the autotrader build version, set at build time with
// -ldflags "-X github.com/rxtech-lab/kis-autotrader/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "main"

// GetVersion returns the build version.
func GetVersion() string {
	return Version
}
