// Package version contains the edgebench version.
package version

// Version is the edgebench version. It is set at build time with -ldflags.
var Version = ""
