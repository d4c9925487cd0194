package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink is a Sink that accepts at most maxPerCall bytes per Write call,
// and reports ErrWouldBlock instead of blocking once blocked is true.
type fakeSink struct {
	delivered []byte
	maxPerCall int
	blocked   bool
	flushErr  error
}

func (f *fakeSink) Write(b []byte) (int, error) {
	if f.blocked {
		return 0, ErrWouldBlock
	}
	n := len(b)
	if f.maxPerCall > 0 && n > f.maxPerCall {
		n = f.maxPerCall
	}
	f.delivered = append(f.delivered, b[:n]...)
	return n, nil
}

func (f *fakeSink) Flush() error {
	return f.flushErr
}

func TestBufferedWriter_AcceptAll(t *testing.T) {
	sink := &fakeSink{blocked: true}
	w := New(sink)

	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, w.Pending())
}

func TestBufferedWriter_OrderPreservation(t *testing.T) {
	sink := &fakeSink{maxPerCall: 3}
	w := New(sink)

	inputs := [][]byte{[]byte("abc"), []byte("defgh"), []byte("ij")}
	for _, in := range inputs {
		n, err := w.Write(in)
		require.NoError(t, err)
		assert.Equal(t, len(in), n)
	}

	// Drain until nothing moves.
	for {
		progress, err := w.Drain()
		require.NoError(t, err)
		if !progress {
			break
		}
	}

	assert.Equal(t, "abcdefghij", string(sink.delivered))
	assert.Equal(t, 0, w.Pending())
}

func TestBufferedWriter_BackPressureThenLiveness(t *testing.T) {
	// Simulates S4: a sink that accepts at most 64 bytes per call with
	// intermittent would-block, fed a larger payload, eventually delivers
	// everything in order.
	sink := &fakeSink{maxPerCall: 64}
	w := New(sink)

	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i)
	}

	n, err := w.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	// Intermittent would-block: toggle blocked every other drain.
	block := true
	for w.Pending() > 0 {
		sink.blocked = block
		block = !block
		_, err := w.Drain()
		require.NoError(t, err)
	}

	assert.Equal(t, payload, sink.delivered)
}

func TestBufferedWriter_FlushSwallowsWouldBlock(t *testing.T) {
	sink := &fakeSink{flushErr: ErrWouldBlock}
	w := New(sink)

	assert.NoError(t, w.Flush())
}

func TestBufferedWriter_FlushPropagatesOtherErrors(t *testing.T) {
	boom := assertError("boom")
	sink := &fakeSink{flushErr: boom}
	w := New(sink)

	assert.ErrorIs(t, w.Flush(), boom)
}

type assertError string

func (e assertError) Error() string { return string(e) }
