package mux

import (
	"errors"
	"os"
	"syscall"
)

// PipeSignal is a stdinasync.Signal backed by an os.Pipe: Signal writes one
// byte to the write end, and the read end is registered with a Poller under
// TokenStdin so a background goroutine's readiness can wake up epoll_wait
// (spec.md §4.3's reactor has no native cross-goroutine wakeup primitive of
// its own, the same gap mio fills with Registration/SetReadiness).
type PipeSignal struct {
	w *os.File
}

// NewPipeSignal creates the pipe and returns the signal plus the read end
// the caller should register with a Poller (readable, token TokenStdin).
func NewPipeSignal() (*PipeSignal, *os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	if err := syscall.SetNonblock(int(w.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, nil, err
	}
	return &PipeSignal{w: w}, r, nil
}

// Signal pokes the pipe. Errors, including EAGAIN from a full pipe buffer,
// are ignored: either way at least one byte is already pending on the read
// end, which is all a level-raising edge needs to mean.
func (p *PipeSignal) Signal() {
	_, _ = p.w.Write([]byte{0})
}

// Close releases the write end. The registered read end is owned, and
// closed, by whoever called NewPipeSignal.
func (p *PipeSignal) Close() error {
	return p.w.Close()
}

// DrainPipe reads and discards everything currently queued on r (the read
// end returned by NewPipeSignal), as required after an edge-triggered
// readable notification for TokenStdin before re-arming poll (spec.md §4.3
// "drain until would-block").
func DrainPipe(r *os.File) error {
	buf := make([]byte, 512)
	for {
		_, err := r.Read(buf)
		if err != nil {
			if isWouldBlock(err) {
				return nil
			}
			return err
		}
	}
}

func isWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
