package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	t.Run("host and port", func(t *testing.T) {
		addr, err := ParseAddress("192.0.2.4:2222")
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.4", addr.IP.String())
		assert.Equal(t, 2222, addr.Port)
	})

	t.Run("host only defaults port", func(t *testing.T) {
		addr, err := ParseAddress("192.0.2.4")
		require.NoError(t, err)
		assert.Equal(t, "192.0.2.4", addr.IP.String())
		assert.Equal(t, DefaultPort, addr.Port)
	})

	t.Run("unresolvable host and bad port", func(t *testing.T) {
		_, err := ParseAddress("nohost:nan")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ParseAddress("   ")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})
}
