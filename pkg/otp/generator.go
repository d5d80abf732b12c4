package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/xlzd/gotp"
)

// Generator produces the random material for verification tokens: an opaque
// link secret and an independent numeric code. The two are generated from
// separate randomness so leaking one reveals nothing about the other.
type Generator interface {
	RandomSecret(length int) string
	RandomCode(length int) (string, error)
}

type GOTPGenerator struct{}

func NewGOTPGenerator() *GOTPGenerator {
	return &GOTPGenerator{}
}

// RandomSecret returns a crypto-random base32 string of the given length.
func (g *GOTPGenerator) RandomSecret(length int) string {
	return gotp.RandomSecret(length)
}

// RandomCode returns a crypto-random numeric string of the given length,
// left-padded with zeroes.
func (g *GOTPGenerator) RandomCode(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("random code failed: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}
