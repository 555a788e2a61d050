package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	AccountNumberDigits = 13
	LegacyAccountSeed   = "1234567891010"
)

// AccountNumberGenerator supplies the plaintext number sealed into a new account.
type AccountNumberGenerator interface {
	NextNumber() (string, error)
}

// RandomNumberGenerator draws a numeric account number from crypto/rand.
type RandomNumberGenerator struct {
	Digits int
}

func (g RandomNumberGenerator) NextNumber() (string, error) {
	digits := g.Digits
	if digits <= 0 {
		digits = AccountNumberDigits
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate account number: %w", err)
	}

	number := n.String()
	if pad := digits - len(number); pad > 0 {
		number = strings.Repeat("0", pad) + number
	}
	return number, nil
}

// SeedNumberGenerator always returns the same seed.
type SeedNumberGenerator struct {
	Seed string
}

func (g SeedNumberGenerator) NextNumber() (string, error) {
	if g.Seed == "" {
		return LegacyAccountSeed, nil
	}
	return g.Seed, nil
}
