package mux

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeSignal_WakesPoller(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	sig, r, err := NewPipeSignal()
	require.NoError(t, err)
	defer sig.Close()
	defer r.Close()

	require.NoError(t, p.Register(int(r.Fd()), TokenStdin, true, false))

	sig.Signal()
	sig.Signal() // a second poke before the first is drained must not block

	events, err := p.Poll(time.Second)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TokenStdin, events[0].Token)
	assert.True(t, events[0].Readable)

	require.NoError(t, DrainPipe(r))
}
