// Package common holds the project identity and logging setup shared by all
// executables.
package common

// PackageName is used as the metrics namespace and the default service tag.
const PackageName = "phala_worker_registry"

// Version is set at build time via -ldflags.
var Version = "dev"
