// Package common holds process-level helpers shared by the binaries.
package common

// PackageName is used as the metrics namespace.
const PackageName = "namespace_registry"

// Version is overridden at build time with -ldflags "-X ...common.Version=...".
var Version = "dev"
