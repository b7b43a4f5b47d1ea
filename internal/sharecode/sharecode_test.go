package sharecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateReturnsSixDigits(t *testing.T) {
	code, err := Generate(func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	require.Len(t, code, Length)
	require.True(t, Valid(code))
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	// Force the first draws to collide; the generator must keep drawing
	// instead of handing out a taken code.
	collisions := 0
	code, err := Generate(func(string) (bool, error) {
		if collisions < 5 {
			collisions++
			return true, nil
		}
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, collisions)
	require.True(t, Valid(code))
}

func TestGenerateExhaustsAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := Generate(func(string) (bool, error) {
		attempts++
		return true, nil
	})
	require.ErrorIs(t, err, ErrCodeSpaceExhausted)
	require.Equal(t, maxAttempts, attempts)
}

func TestValid(t *testing.T) {
	require.True(t, Valid("000000"))
	require.True(t, Valid("123456"))
	require.False(t, Valid("12345"))
	require.False(t, Valid("1234567"))
	require.False(t, Valid("12345a"))
	require.False(t, Valid(""))
	require.False(t, Valid("12 456"))
}
