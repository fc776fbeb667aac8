package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPIN_Format(t *testing.T) {
	for i := 0; i < 500; i++ {
		pin, err := NewPIN()
		require.NoError(t, err)
		require.Len(t, pin, 4, "PINs are zero-padded to 4 digits")
		for _, r := range pin {
			assert.True(t, r >= '0' && r <= '9', "PIN %q contains a non-digit", pin)
		}
	}
}
