// Package buildinfo holds version metadata stamped in at link time via
// -ldflags.
package buildinfo

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)
