// Package mux implements the event multiplexer driver of spec.md §4.3: an
// edge-triggered readiness poller, a scratch read buffer, and the batch of
// live endpoint handles the two multiplex loops dispatch against.
//
// It is grounded on internal/ptyio.go's use of golang.org/x/sys/unix for
// raw, non-blocking file-descriptor I/O (unix.Poll there, unix.Epoll* here
// -- the same family, generalized from a single-fd level-triggered poll
// into the multi-fd edge-triggered reactor spec.md §4.3 calls for).
package mux

// Token identifies one of the three endpoint roles a multiplex loop
// dispatches against (spec.md §3 "Multiplex context").
type Token int

const (
	TokenStream Token = 0
	TokenStdin  Token = 1
	TokenPty    Token = 2
)

// BufSize is the scratch read buffer size shared by both multiplex loops
// (spec.md §3).
const BufSize = 8192

// EventBatchCap is the capacity of one Poll call's event batch (spec.md
// §3).
const EventBatchCap = 1024

// Event reports a readiness edge for a Token. Readable and Writable are not
// mutually exclusive: the same token may appear with both bits set (spec.md
// §4.3 "poll").
type Event struct {
	Token    Token
	Readable bool
	Writable bool
}
