package stdinasync

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSignal adapts a channel to the Signal interface for tests, so they
// don't need a real pipe (internal/mux.PipeSignal is covered separately).
type chanSignal struct {
	mu sync.Mutex
	ch chan struct{}
}

func newChanSignal() *chanSignal {
	return &chanSignal{ch: make(chan struct{}, 1)}
}

func (s *chanSignal) Signal() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func drainAll(t *testing.T, s *Stdin, sig *chanSignal, want int) []byte {
	t.Helper()
	var got []byte
	deadline := time.After(2 * time.Second)
	for len(got) < want {
		select {
		case <-sig.ch:
			for {
				p, ok := s.TryRecv()
				if !ok {
					break
				}
				got = append(got, p...)
			}
		case <-deadline:
			require.FailNow(t, "timed out waiting for stdin packets")
		}
	}
	return got
}

func TestStdin_FIFO(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefghij"), 500) // spans multiple 1KiB reads
	r := bytes.NewReader(payload)

	sig := newChanSignal()
	s := New(r, sig)

	got := drainAll(t, s, sig, len(payload))
	assert.Equal(t, payload, got)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		require.FailNow(t, "worker did not terminate on EOF")
	}

	_, ok := s.TryRecv()
	assert.False(t, ok)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestStdin_WorkerTerminatesOnError(t *testing.T) {
	sig := newChanSignal()
	s := New(errReader{}, sig)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		require.FailNow(t, "worker did not terminate on read error")
	}
}
