// Package buildinfo carries version metadata stamped at build time.
package buildinfo

// Version is overridden via -ldflags "-X netboxup/internal/buildinfo.Version=...".
var Version = "dev"
