// Package stdinasync adapts the blocking standard input stream into a
// readable, event-driven endpoint (spec.md §4.2), grounded on
// original_source/common/src/stdin.rs (MioStdin): a worker goroutine reads
// standard input and publishes packets to a FIFO queue, signalling an event
// source each time. Here the "event source" is the readable half of an
// os.Pipe registered with the mux.Poller (see internal/mux), replacing
// mio's user-defined Registration/SetReadiness pair -- the same role, the
// idiomatic Go mechanism for poking an epoll set from another goroutine.
package stdinasync

import (
	"context"
	"io"
	"sync"

	"github.com/jD91mZM2/remoterm/internal/groutine"
)

// scratchSize is the size of the worker's read buffer (spec.md §4.2 "1 KiB
// scratch buffer").
const scratchSize = 1024

// Signal is poked once per published packet. It must never block: the
// worker goroutine's only job is reading stdin, and a slow or stuck
// consumer must not stall it.
type Signal interface {
	Signal()
}

// Stdin reads standard input on a background goroutine and exposes it as a
// FIFO packet queue plus a readiness Signal suitable for waking a
// mux.Poller registration.
type Stdin struct {
	mu    sync.Mutex
	queue [][]byte

	signal Signal
	done   chan struct{}
}

// New spawns the worker reading from r (normally os.Stdin) and returns the
// adapter. signal is poked non-blockingly every time a packet is published;
// pass a *PipeSignal to integrate with internal/mux.Poller.
func New(r io.Reader, signal Signal) *Stdin {
	s := &Stdin{
		signal: signal,
		done:   make(chan struct{}),
	}

	groutine.Go(nil, "stdin-reader", func(_ context.Context) {
		s.readLoop(r)
	})

	return s
}

// readLoop is the worker body. It terminates on read error or EOF, leaving
// the queue exactly as it was (no unpublished bytes are ever buffered
// outside the queue).
func (s *Stdin) readLoop(r io.Reader) {
	defer close(s.done)

	buf := make([]byte, scratchSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			packet := make([]byte, n)
			copy(packet, buf[:n])

			s.mu.Lock()
			s.queue = append(s.queue, packet)
			s.mu.Unlock()

			s.signal.Signal()
		}
		if err != nil {
			return
		}
	}
}

// TryRecv pops one packet without blocking (spec.md §4.2 operation
// "try_recv").
func (s *Stdin) TryRecv() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil, false
	}

	packet := s.queue[0]
	s.queue = s.queue[1:]
	return packet, true
}

// Done reports a channel that closes once the worker has observed EOF or a
// read error. The worker itself is never cancelled from the outside (spec.md
// §5 "it is not expected to cancel cleanly on session shutdown"); Done only
// lets callers notice it stopped publishing.
func (s *Stdin) Done() <-chan struct{} {
	return s.done
}
