package mux

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

// Poller is an edge-triggered epoll reactor. register fires once per 0->1
// readiness transition for its fd; the consumer is responsible for draining
// until EWOULDBLOCK/EAGAIN (spec.md §4.3).
type Poller struct {
	epfd int
}

// New creates a Poller backed by a fresh epoll instance.
func New() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Poller{epfd: epfd}, nil
}

// Register subscribes fd for readable and/or writable readiness under
// token, using edge-triggered semantics (spec.md §4.3 "register").
func (p *Poller) Register(fd int, token Token, readable, writable bool) error {
	var events uint32 = unix.EPOLLET
	if readable {
		events |= unix.EPOLLIN
	}
	if writable {
		events |= unix.EPOLLOUT
	}

	ev := unix.EpollEvent{Events: events, Fd: int32(token)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl(ADD, fd=%d): %w", fd, err)
	}
	return nil
}

// Poll blocks until at least one readiness edge is available (or timeout
// elapses, when timeout > 0) and returns the batch (spec.md §4.3 "poll").
// A timeout <= 0 blocks indefinitely, matching the multiplex loops' use of
// unbounded waits (spec.md §5 "Cancellation / timeouts").
func (p *Poller) Poll(timeout time.Duration) ([]Event, error) {
	raw := make([]unix.EpollEvent, EventBatchCap)

	ms := -1
	if timeout > 0 {
		ms = int(timeout.Milliseconds())
	}

	var n int
	for {
		var err error
		n, err = unix.EpollWait(p.epfd, raw, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("epoll_wait: %w", err)
		}
		break
	}

	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		e := raw[i]
		events = append(events, Event{
			Token:    Token(e.Fd),
			Readable: e.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: e.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0,
		})
	}

	// epoll_wait makes no ordering guarantee across fds in one batch; the
	// multiplex loops require token order within a batch (spec.md §4.3
	// "tie-break: Stream, Stdin, Pty"). sort.SliceStable preserves the
	// Readable/Writable merge order for any token appearing only once,
	// which is always the case here (one registration per token).
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Token < events[j].Token
	})

	return events, nil
}

// Close releases the underlying epoll instance.
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}
