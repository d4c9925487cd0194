// Package writer implements the buffered writer described in spec.md §4.1:
// a back-pressure-absorbing wrapper around a non-blocking byte sink that
// never blocks and never drops a byte.
//
// It is grounded on original_source/common/src/patient.rs (PatientWriter),
// the Rust ancestor of this type, translated into the non-blocking
// EAGAIN/EWOULDBLOCK idiom the teacher repo's internal/ptyio.go already
// uses for its own PTY read/write loops.
package writer

import (
	"bytes"
	"errors"
	"io"
)

// Sink is the minimal contract a BufferedWriter needs from its inner byte
// destination: writes may return ErrWouldBlock instead of blocking, and
// Flush may do the same.
type Sink interface {
	io.Writer
	Flush() error
}

// ErrWouldBlock is the sentinel a Sink returns (wrapped or bare, checked
// with errors.Is) when it cannot currently accept more bytes. It is never
// propagated out of BufferedWriter -- see spec.md §4.1 and §7.
var ErrWouldBlock = errors.New("would block")

// BufferedWriter absorbs back-pressure from a Sink that may reject writes
// with ErrWouldBlock. Bytes handed to Write are always accepted and always
// delivered to the Sink in submission order; see spec.md §4.1 invariants.
type BufferedWriter struct {
	sink    Sink
	pending bytes.Buffer
}

// New wraps sink in a BufferedWriter. One BufferedWriter is created per
// writable endpoint at session start (spec.md §4.1 "Lifecycle").
func New(sink Sink) *BufferedWriter {
	return &BufferedWriter{sink: sink}
}

// Sink returns the inner sink for descriptor-level operations (setting
// non-blocking mode, reading the file descriptor number) -- spec.md §4.1
// "Access to the inner sink".
func (w *BufferedWriter) Sink() Sink {
	return w.sink
}

// Write enqueues b for delivery to the inner sink. It never blocks and
// always reports len(b): any bytes that cannot be pushed through
// immediately are appended to the pending queue and drained on a later
// call to Drain (spec.md §4.1 operation "write").
func (w *BufferedWriter) Write(b []byte) (int, error) {
	if _, err := w.Drain(); err != nil {
		w.pending.Write(b)
		return 0, err
	}

	n, err := w.pushThrough(b)
	if n < len(b) {
		w.pending.Write(b[n:])
	}
	if err != nil {
		return 0, err
	}

	return len(b), nil
}

// Drain pushes as much of the pending queue through to the inner sink as
// it will currently accept. It reports whether any bytes moved (spec.md
// §4.1 operation "drain"); callers -- the multiplex loops -- re-invoke it
// on every writable-readiness edge while the queue is non-empty (spec.md
// §4.1 invariant 3).
func (w *BufferedWriter) Drain() (madeProgress bool, err error) {
	if w.pending.Len() == 0 {
		return false, nil
	}

	pending := w.pending.Bytes()
	n, err := w.pushThrough(pending)
	if n > 0 {
		w.pending.Next(n)
		madeProgress = true
	}
	return madeProgress, err
}

// Pending reports the number of bytes queued but not yet delivered to the
// inner sink.
func (w *BufferedWriter) Pending() int {
	return w.pending.Len()
}

// Flush invokes the inner sink's flush. ErrWouldBlock is swallowed here
// too: the caller revisits on the next writable edge (spec.md §4.1
// operation "flush").
func (w *BufferedWriter) Flush() error {
	if err := w.sink.Flush(); err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return nil
		}
		return err
	}
	return nil
}

// pushThrough writes as much of b to the sink as it currently accepts,
// stopping at the first ErrWouldBlock, zero-byte write, or error.
func (w *BufferedWriter) pushThrough(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		n, err := w.sink.Write(b[written:])
		written += n
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return written, nil
			}
			return written, err
		}
		if n == 0 {
			return written, nil
		}
	}
	return written, nil
}
