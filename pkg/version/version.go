package version

// Version and GitCommit are overridden with -ldflags at build time.
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
