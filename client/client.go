// Package client implements the client multiplex loop of spec.md §4.4: a
// TLS stream is bridged against the local terminal's raw-mode stdout and
// stdin.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jD91mZM2/remoterm/internal/mux"
	"github.com/jD91mZM2/remoterm/internal/rawio"
	"github.com/jD91mZM2/remoterm/internal/stdinasync"
	"github.com/jD91mZM2/remoterm/internal/termmode"
	"github.com/jD91mZM2/remoterm/internal/tlspin"
	"github.com/jD91mZM2/remoterm/internal/writer"
	"github.com/jD91mZM2/remoterm/pkg/config"
)

// Options configures one client session (spec.md §4.4 startup contract).
type Options struct {
	Address     *net.TCPAddr // already resolved via config.ParseAddress
	Fingerprint string       // already parsed via config.ParseSidePassword
	Password    string

	Logger *logrus.Logger

	Stdin  io.Reader // defaults to os.Stdin
	Stdout io.Writer // defaults to os.Stdout

	// TerminalFd is the file descriptor switched to raw mode for the
	// session's lifetime; it is meaningless (and skipped) if <= 0, which
	// tests use to avoid touching the real controlling terminal.
	TerminalFd int

	// DialTimeout bounds the initial TCP connect; 0 means no deadline.
	DialTimeout time.Duration
}

// Run dials the server, completes the pinned TLS handshake and password
// exchange, then drives the multiplex loop until the stream is closed by
// either side or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", opts.Address.String())
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.Address, err)
	}

	tlsCfg := tlspin.ClientConfig(opts.Fingerprint)
	tlsConn := tls.Client(tcpConn, tlsCfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = tcpConn.Close()
		return fmt.Errorf("tls handshake: %w", err)
	}

	if _, err := tlsConn.Write([]byte(opts.Password)); err != nil {
		_ = tlsConn.Close()
		return fmt.Errorf("send session password: %w", err)
	}

	var raw *termmode.Raw
	if opts.TerminalFd > 0 {
		raw, err = termmode.Enter(opts.TerminalFd)
		if err != nil {
			_ = tlsConn.Close()
			return fmt.Errorf("enter raw mode: %w", err)
		}
		defer raw.Restore()
	}

	stream, err := rawio.NewTLS(tlsConn)
	if err != nil {
		_ = tlsConn.Close()
		return fmt.Errorf("extract stream descriptor: %w", err)
	}

	poller, err := mux.New()
	if err != nil {
		_ = tlsConn.Close()
		return fmt.Errorf("create poller: %w", err)
	}
	defer poller.Close()

	signal, stdinNotify, err := mux.NewPipeSignal()
	if err != nil {
		_ = tlsConn.Close()
		return fmt.Errorf("create stdin signal: %w", err)
	}
	defer signal.Close()
	defer stdinNotify.Close()

	if err := poller.Register(stream.Fd(), mux.TokenStream, true, true); err != nil {
		_ = tlsConn.Close()
		return fmt.Errorf("register stream: %w", err)
	}
	if err := poller.Register(int(stdinNotify.Fd()), mux.TokenStdin, true, false); err != nil {
		_ = tlsConn.Close()
		return fmt.Errorf("register stdin signal: %w", err)
	}

	streamWriter := writer.New(stream)
	stdinAdapter := stdinasync.New(stdin, signal)

	scratch := make([]byte, mux.BufSize)

	logger.Debugf("connected to %s, pinned fingerprint %s", opts.Address, opts.Fingerprint)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		events, err := poller.Poll(0)
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}

		for _, ev := range events {
			switch ev.Token {
			case mux.TokenStream:
				if ev.Writable {
					if moved, err := streamWriter.Drain(); err != nil {
						return fmt.Errorf("stream write: %w", err)
					} else if moved {
						if err := streamWriter.Flush(); err != nil {
							return fmt.Errorf("stream flush: %w", err)
						}
					}
				}
				if ev.Readable {
					done, err := rawio.Pump(stream, scratch, func(chunk []byte) error {
						_, err := stdout.Write(chunk)
						return err
					})
					if err != nil {
						return fmt.Errorf("stream read: %w", err)
					}
					if f, ok := stdout.(interface{ Flush() error }); ok {
						if err := f.Flush(); err != nil {
							return fmt.Errorf("stdout flush: %w", err)
						}
					}
					if done {
						logger.Debug("peer closed the stream")
						return nil
					}
				}

			case mux.TokenStdin:
				if err := mux.DrainPipe(stdinNotify); err != nil {
					return fmt.Errorf("drain stdin signal: %w", err)
				}
				for {
					packet, ok := stdinAdapter.TryRecv()
					if !ok {
						break
					}
					if _, err := streamWriter.Write(packet); err != nil {
						return fmt.Errorf("stream write: %w", err)
					}
				}
				if err := streamWriter.Flush(); err != nil {
					return fmt.Errorf("stream flush: %w", err)
				}
			}
		}
	}
}

// Prompt renders the two interactive prompts spec.md §4.4 step 1-2 expects
// external collaborators to gather, parses them with pkg/config, and
// returns ready-to-use Options fields. Kept here (rather than only in
// cmd/remoterm-client) so alternate front-ends can reuse the same parsing.
func Prompt(addressInput, passwordInput string) (addr *net.TCPAddr, fingerprint, password string, err error) {
	addr, err = config.ParseAddress(addressInput)
	if err != nil {
		return nil, "", "", err
	}
	fingerprint, password, err = config.ParseSidePassword(passwordInput)
	if err != nil {
		return nil, "", "", err
	}
	return addr, fingerprint, password, nil
}
