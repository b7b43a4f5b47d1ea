// Package sharecode issues the short human-typeable codes that resolve to a
// receipt. Codes are 6 random digits, globally unique among every code ever
// issued (archived receipts keep their rows, so their codes stay reserved).
package sharecode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	// Length of a share code in digits.
	Length = 6

	maxAttempts = 20
	codeSpace   = 1000000
)

// ErrCodeSpaceExhausted means every random draw collided with an existing
// code. At a 10^6 space this should never happen; it is a hard error rather
// than silent reuse.
var ErrCodeSpaceExhausted = errors.New("share code space exhausted")

// ExistsFunc reports whether a candidate code is already taken. It must check
// archived receipts too.
type ExistsFunc func(code string) (bool, error)

// Generate draws random codes until one is free, retrying up to 20 times.
func Generate(exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
		if err != nil {
			return "", fmt.Errorf("failed to draw share code: %w", err)
		}
		code := fmt.Sprintf("%06d", n.Int64())

		taken, err := exists(code)
		if err != nil {
			return "", fmt.Errorf("failed to check share code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Valid reports whether a string is exactly 6 ASCII digits. Used to reject
// malformed codes before touching storage.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
