//go:build local

package server

// BindAddress is the interface the server listens on (spec.md §6
// "Build-time mode"). The "local" build tag restricts it to loopback, for
// development against a client on the same machine.
const BindAddress = "127.0.0.1"
