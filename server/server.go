// Package server implements the server multiplex loop of spec.md §4.5: a
// TLS stream is bridged against a PTY master running the configured shell,
// while PTY output is mirrored to the local console.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jD91mZM2/remoterm/internal/mux"
	"github.com/jD91mZM2/remoterm/internal/rawio"
	"github.com/jD91mZM2/remoterm/internal/shell"
	"github.com/jD91mZM2/remoterm/internal/stdinasync"
	"github.com/jD91mZM2/remoterm/internal/termmode"
	"github.com/jD91mZM2/remoterm/internal/tlspin"
	"github.com/jD91mZM2/remoterm/internal/writer"
	"github.com/jD91mZM2/remoterm/pkg/config"
)

// Options configures one server session (spec.md §4.5 startup contract).
type Options struct {
	BindAddr string // "0.0.0.0" (network mode) or "127.0.0.1" (local mode)
	Port     int    // 0 means config.DefaultPort

	ShellPath string

	Logger *logrus.Logger
	Stdout io.Writer // local console mirror, defaults to os.Stdout

	// TerminalFd is switched to raw mode for the session's lifetime;
	// values <= 0 skip this, which tests use to avoid touching the real
	// controlling terminal.
	TerminalFd int

	// OnListening, if set, is called with the bound address and the
	// <fingerprint>-<password> side-channel string once the server is
	// ready to accept (cmd/remoterm-server prints it as a banner).
	OnListening func(addr net.Addr, sidePassword string)
}

// Run builds a pinned TLS acceptor, binds and listens, accepts and
// authenticates exactly one session, spawns the shell, then drives the
// multiplex loop until the stream is closed by either side or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	port := opts.Port
	if port <= 0 {
		port = config.DefaultPort
	}
	bindAddr := opts.BindAddr
	if bindAddr == "" {
		bindAddr = BindAddress
	}

	tlsCfg, fingerprint, err := tlspin.BuildAcceptor()
	if err != nil {
		return fmt.Errorf("build tls acceptor: %w", err)
	}

	password, err := config.GenerateSessionPassword()
	if err != nil {
		return fmt.Errorf("generate session password: %w", err)
	}
	sidePassword := config.FormatSidePassword(fingerprint, password)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", bindAddr, port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()

	if opts.OnListening != nil {
		opts.OnListening(listener.Addr(), sidePassword)
	}

	tlsConn, err := acceptAuthenticated(ctx, listener, tlsCfg, password, logger)
	if err != nil {
		return err
	}

	sess, err := shell.Spawn(opts.ShellPath)
	if err != nil {
		_ = tlsConn.Close()
		return fmt.Errorf("spawn shell: %w", err)
	}
	defer sess.Close()

	var raw *termmode.Raw
	if opts.TerminalFd > 0 {
		raw, err = termmode.Enter(opts.TerminalFd)
		if err != nil {
			_ = tlsConn.Close()
			return fmt.Errorf("enter raw mode: %w", err)
		}
		defer raw.Restore()
	}

	return runLoop(ctx, tlsConn, sess.Master, stdout, logger)
}

// acceptAuthenticated accepts TCP connections, completes the TLS handshake,
// and checks the session password, looping on mismatch (spec.md §4.5 step
// 5) until one connection authenticates.
func acceptAuthenticated(ctx context.Context, listener net.Listener, tlsCfg *tls.Config, password string, logger *logrus.Logger) (*tls.Conn, error) {
	for {
		raw, err := listener.Accept()
		if err != nil {
			return nil, fmt.Errorf("accept: %w", err)
		}

		tlsConn := tls.Server(raw, tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			logger.WithField("remote", raw.RemoteAddr()).Warnf("tls handshake failed: %v", err)
			_ = tlsConn.Close()
			continue
		}

		got := make([]byte, config.PassLen)
		if _, err := io.ReadFull(tlsConn, got); err != nil {
			logger.WithField("remote", raw.RemoteAddr()).Warnf("reading session password: %v", err)
			_ = tlsConn.Close()
			continue
		}

		if string(got) != password {
			logger.WithField("remote", raw.RemoteAddr()).Warn("session password mismatch")
			_ = tlsConn.Close()
			continue
		}

		return tlsConn, nil
	}
}

// runLoop is the concrete multiplex loop body (spec.md §4.5 "Loop body").
func runLoop(ctx context.Context, tlsConn *tls.Conn, ptyMaster *os.File, stdout io.Writer, logger *logrus.Logger) error {
	stream, err := rawio.NewTLS(tlsConn)
	if err != nil {
		return fmt.Errorf("extract stream descriptor: %w", err)
	}
	pty := rawio.NewPTY(ptyMaster)

	poller, err := mux.New()
	if err != nil {
		return fmt.Errorf("create poller: %w", err)
	}
	defer poller.Close()

	signal, stdinNotify, err := mux.NewPipeSignal()
	if err != nil {
		return fmt.Errorf("create stdin signal: %w", err)
	}
	defer signal.Close()
	defer stdinNotify.Close()

	if err := poller.Register(stream.Fd(), mux.TokenStream, true, true); err != nil {
		return fmt.Errorf("register stream: %w", err)
	}
	if err := poller.Register(int(stdinNotify.Fd()), mux.TokenStdin, true, false); err != nil {
		return fmt.Errorf("register stdin signal: %w", err)
	}
	if err := poller.Register(pty.Fd(), mux.TokenPty, true, true); err != nil {
		return fmt.Errorf("register pty: %w", err)
	}

	streamWriter := writer.New(stream)
	ptyWriter := writer.New(pty)
	stdinAdapter := stdinasync.New(os.Stdin, signal)

	scratch := make([]byte, mux.BufSize)

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
						_, err := ptyWriter.Write(chunk)
						return err
					})
					if err != nil {
						return fmt.Errorf("stream read: %w", err)
					}
					if err := ptyWriter.Flush(); err != nil {
						return fmt.Errorf("pty flush: %w", err)
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
					if _, err := ptyWriter.Write(packet); err != nil {
						return fmt.Errorf("pty write: %w", err)
					}
				}
				if err := ptyWriter.Flush(); err != nil {
					return fmt.Errorf("pty flush: %w", err)
				}

			case mux.TokenPty:
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
					done, err := rawio.Pump(pty, scratch, func(chunk []byte) error {
						if _, err := stdout.Write(chunk); err != nil {
							return err
						}
						_, err := streamWriter.Write(chunk)
						return err
					})
					if err != nil {
						return fmt.Errorf("pty read: %w", err)
					}
					if err := streamWriter.Flush(); err != nil {
						return fmt.Errorf("stream flush: %w", err)
					}
					if done {
						logger.Debug("shell exited")
						return nil
					}
				}
			}
		}
	}
}
