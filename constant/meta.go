// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Adplay is the canonical application identifier used for filesystem paths and CLI branding.
	Adplay = "adplay"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is sent with manifest requests to stitching servers.
	UserAgent = "adplay/" + Version
)

// Build metadata, overridden at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
