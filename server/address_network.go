//go:build !local

package server

// BindAddress is the interface the server listens on (spec.md §6
// "Build-time mode"). The default build listens on every interface.
const BindAddress = "0.0.0.0"
