// Package rawio adapts the two concrete endpoints the multiplex loops
// drive -- a PTY master and a TLS stream -- to the shared "would-block"
// contract internal/writer.Sink and the multiplex loops expect.
//
// The PTY master is a genuinely non-blocking file descriptor (syscall-level
// EAGAIN, exactly as internal/ptyio.go's read/write loops already handle
// it). crypto/tls.Conn, by contrast, only exposes deadline-based
// non-blocking I/O -- there is no raw EAGAIN at the TLS record layer in the
// standard library. PTYConn and TLSConn both satisfy writer.Sink plus a
// Read method with the same would-block convention, so the rest of the
// multiplex loop code (internal/mux, server, client) never has to care
// which kind of endpoint it is looking at.
package rawio

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/jD91mZM2/remoterm/internal/writer"
)

// PTYConn wraps a non-blocking PTY master *os.File.
type PTYConn struct {
	f *os.File
}

// NewPTY wraps f, which must already be set non-blocking (internal/shell
// does this on Spawn).
func NewPTY(f *os.File) *PTYConn {
	return &PTYConn{f: f}
}

// Fd returns the underlying file descriptor, for registration with
// internal/mux.
func (c *PTYConn) Fd() int {
	return int(c.f.Fd())
}

// Read reads from the PTY master, reporting writer.ErrWouldBlock on EAGAIN
// instead of the raw syscall error.
func (c *PTYConn) Read(b []byte) (int, error) {
	n, err := c.f.Read(b)
	if err != nil && isWouldBlock(err) {
		return n, writer.ErrWouldBlock
	}
	return n, err
}

// Write writes to the PTY master, reporting writer.ErrWouldBlock on EAGAIN.
func (c *PTYConn) Write(b []byte) (int, error) {
	n, err := c.f.Write(b)
	if err != nil && isWouldBlock(err) {
		return n, writer.ErrWouldBlock
	}
	return n, err
}

// Flush is a no-op: a raw fd write either landed in the kernel or it
// didn't, there is nothing buffered below this layer to flush.
func (c *PTYConn) Flush() error {
	return nil
}

func isWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// TLSConn wraps a handshaken *tls.Conn (or any net.Conn), simulating
// would-block via a zero-duration read/write deadline: crypto/tls has no
// other way to report "no application data ready right now" without
// blocking the calling goroutine.
type TLSConn struct {
	conn net.Conn
	fd   int
}

// NewTLS wraps conn. conn's underlying socket descriptor is extracted once,
// up front, for registration with internal/mux -- the Go runtime's own
// netpoller keeps a private epoll set on the same fd, which does not
// conflict with a second, independent epoll instance also watching it.
func NewTLS(conn net.Conn) (*TLSConn, error) {
	fd, err := socketFd(conn)
	if err != nil {
		return nil, err
	}
	return &TLSConn{conn: conn, fd: fd}, nil
}

// Fd returns the underlying socket file descriptor, for registration with
// internal/mux.
func (c *TLSConn) Fd() int {
	return c.fd
}

// socketFd extracts the raw file descriptor backing conn without taking
// ownership of it (no dup, no close-on-garbage-collection): Control runs
// its callback with the fd valid only for the callback's duration, but the
// integer value itself stays valid for as long as conn stays open, which is
// all internal/mux.Poller.Register needs.
//
// conn is typically a *tls.Conn, which does not itself satisfy
// syscall.Conn; its NetConn method (since Go 1.18) unwraps to the
// underlying *net.TCPConn, which does.
func socketFd(conn net.Conn) (int, error) {
	type netConner interface{ NetConn() net.Conn }
	for {
		if _, ok := conn.(syscall.Conn); ok {
			break
		}
		nc, ok := conn.(netConner)
		if !ok {
			break
		}
		conn = nc.NetConn()
	}

	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("connection type %T exposes no raw file descriptor", conn)
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("raw conn: %w", err)
	}

	var fd int
	var fdErr error
	if err := rc.Control(func(f uintptr) {
		fd = int(f)
	}); err != nil {
		fdErr = err
	}
	if fdErr != nil {
		return 0, fmt.Errorf("control: %w", fdErr)
	}
	return fd, nil
}

// Read reads application data, reporting writer.ErrWouldBlock if none is
// immediately available.
func (c *TLSConn) Read(b []byte) (int, error) {
	_ = c.conn.SetReadDeadline(time.Now())
	n, err := c.conn.Read(b)
	_ = c.conn.SetReadDeadline(time.Time{})
	if err != nil && isTimeout(err) {
		return n, writer.ErrWouldBlock
	}
	return n, err
}

// Write writes application data, reporting writer.ErrWouldBlock if the
// underlying socket is currently congested.
func (c *TLSConn) Write(b []byte) (int, error) {
	_ = c.conn.SetWriteDeadline(time.Now())
	n, err := c.conn.Write(b)
	_ = c.conn.SetWriteDeadline(time.Time{})
	if err != nil && isTimeout(err) {
		return n, writer.ErrWouldBlock
	}
	return n, err
}

// Flush is a no-op: Write already pushed bytes to the kernel socket buffer
// or reported would-block; there is no further buffering to flush here.
func (c *TLSConn) Flush() error {
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Pump reads r into scratch until writer.ErrWouldBlock, EOF, or a zero-byte
// read, invoking emit once per non-empty chunk (the shared "readable edge"
// drain both multiplex loops perform -- spec.md §4.4/§4.5). It reports
// whether the endpoint has reached end-of-stream.
func Pump(r io.Reader, scratch []byte, emit func([]byte) error) (eof bool, err error) {
	for {
		n, rerr := r.Read(scratch)
		if n > 0 {
			if err := emit(scratch[:n]); err != nil {
				return false, err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, writer.ErrWouldBlock) {
				return false, nil
			}
			if errors.Is(rerr, io.EOF) {
				return true, nil
			}
			return false, rerr
		}
		if n == 0 {
			return true, nil
		}
	}
}
