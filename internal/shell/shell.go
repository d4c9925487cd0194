// Package shell implements the PTY and child-process launcher of spec.md
// §4.5 step 6: it opens a PTY master/slave pair and spawns the configured
// shell bound to the slave, in a new session so the shell owns a
// controlling terminal.
//
// Grounded on internal/ptyio.go's createPTY (github.com/creack/pty, raw
// mode via golang.org/x/term, syscall.SetNonblock on the master), adapted
// to also spawn the child shell -- ptyio.go hands the slave off to an
// external process instead, this package does the spawn itself.
package shell

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// InitialCols and InitialRows are the PTY's starting window size (spec.md
// §3 "initial PTY window 80×32").
const (
	InitialCols = 80
	InitialRows = 32
)

// Session is a spawned PTY/shell pair: the non-blocking master the
// multiplex loop reads/writes, and the child process.
type Session struct {
	Master *os.File
	Cmd    *exec.Cmd
}

// Spawn opens a PTY master/slave pair and execs shellPath against the
// slave, with a new session id so the shell becomes the session leader and
// owns a controlling terminal (spec.md §4.5 step 6). The returned Session's
// Master is already set non-blocking.
func Spawn(shellPath string) (*Session, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}

	if err := pty.Setsize(master, &pty.Winsize{Cols: InitialCols, Rows: InitialRows}); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("set pty window size: %w", err)
	}

	cmd := exec.Command(shellPath)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // slave is fd 0 (cmd.Stdin) in the child
	}

	if err := cmd.Start(); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("spawn shell %q: %w", shellPath, err)
	}

	// The parent's copy of the slave is only needed to hand the fd to the
	// child; the kernel keeps the pty alive via the open master.
	_ = slave.Close()

	if err := syscall.SetNonblock(int(master.Fd()), true); err != nil {
		_ = master.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("set pty master non-blocking: %w", err)
	}

	return &Session{Master: master, Cmd: cmd}, nil
}

// Close closes the PTY master. The shell, left writing against a slave
// that is now gone, is reaped by the OS (spec.md §9 "No reconnection").
func (s *Session) Close() error {
	return s.Master.Close()
}
