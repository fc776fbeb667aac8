package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewPIN returns a zero-padded 4-digit PIN ("0000".."9999") generated from
// crypto/rand. The PINs are a handoff verification ritual, not a security
// mechanism, but there is no reason to use a weaker source.
func NewPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
