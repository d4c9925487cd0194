// Package termmode switches the calling terminal to raw mode for a
// session's lifetime and restores it on any exit path (spec.md §4.4 step 5,
// §4.5 step 7, §5 "The terminal's raw-mode state is a scoped resource").
//
// Grounded on internal/ptyio.go's use of golang.org/x/term.MakeRaw, applied
// here to the caller's own terminal (stdin) rather than a PTY slave.
package termmode

import "golang.org/x/term"

// Raw holds the terminal's state from before it was switched to raw mode.
type Raw struct {
	fd    int
	state *term.State
}

// Enter switches fd (normally the file descriptor of os.Stdin) to raw mode
// and returns a handle that restores the prior state on Restore. If fd does
// not refer to a terminal, Enter returns an error and leaves it untouched.
func Enter(fd int) (*Raw, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &Raw{fd: fd, state: state}, nil
}

// Restore returns the terminal to the state it was in before Enter. It is
// safe to call multiple times; only the first call has an effect.
func (r *Raw) Restore() error {
	if r == nil || r.state == nil {
		return nil
	}
	state := r.state
	r.state = nil
	return term.Restore(r.fd, state)
}
