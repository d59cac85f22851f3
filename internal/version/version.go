package version

// Version is the pagewright release. It is overridden at build time with
// -ldflags "-X github.com/hashicorp-forge/pagewright/internal/version.Version=...".
var Version = "0.1.0"

// GitCommit is the commit the binary was built from, set at build time.
var GitCommit = ""

// String returns the version with the commit, when known.
func String() string {
	if GitCommit == "" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}
