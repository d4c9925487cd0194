package mux

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_ReadableEdge(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Register(int(r.Fd()), TokenStdin, true, false))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	events, err := p.Poll(2 * time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, TokenStdin, events[0].Token)
	assert.True(t, events[0].Readable)
}

func TestPoller_WritableEdge(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Register(int(w.Fd()), TokenPty, false, true))

	events, err := p.Poll(2 * time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, TokenPty, events[0].Token)
	assert.True(t, events[0].Writable)
}

// TestPoller_BatchIsTokenOrdered is spec.md's tie-break rule: within one
// poll batch, events are serviced in token order (Stream, Stdin, Pty)
// regardless of epoll_wait's own return order. Registration order here is
// deliberately scrambled (Pty, then Stream, then Stdin) so a pass can't be
// accidental.
func TestPoller_BatchIsTokenOrdered(t *testing.T) {
	ptyR, ptyW, err := os.Pipe()
	require.NoError(t, err)
	defer ptyR.Close()
	defer ptyW.Close()

	streamR, streamW, err := os.Pipe()
	require.NoError(t, err)
	defer streamR.Close()
	defer streamW.Close()

	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	defer stdinR.Close()
	defer stdinW.Close()

	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Register(int(ptyR.Fd()), TokenPty, true, false))
	require.NoError(t, p.Register(int(streamR.Fd()), TokenStream, true, false))
	require.NoError(t, p.Register(int(stdinR.Fd()), TokenStdin, true, false))

	_, err = ptyW.Write([]byte("p"))
	require.NoError(t, err)
	_, err = streamW.Write([]byte("s"))
	require.NoError(t, err)
	_, err = stdinW.Write([]byte("i"))
	require.NoError(t, err)

	events, err := p.Poll(2 * time.Second)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, TokenStream, events[0].Token)
	assert.Equal(t, TokenStdin, events[1].Token)
	assert.Equal(t, TokenPty, events[2].Token)
}
