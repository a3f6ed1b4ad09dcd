// Package version holds the release version of the footprints tool.
package version

// Version is overridden at build time with
// -ldflags "-X footprints/pkg/version.Version=...".
var Version = "v0.1.0"
