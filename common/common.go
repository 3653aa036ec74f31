// Package common holds identifiers shared by the service binaries.
package common

// PackageName identifies this service in metrics and logs.
const PackageName = "true-name"

// Version is overridden at build time via -ldflags.
var Version = "dev"
