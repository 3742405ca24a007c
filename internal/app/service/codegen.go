package service

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/sifan077/shrtnr/internal/app/apperror"
)

const (
	// Alphabet is the 62-character set generated codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// GeneratedCodeLength gives a keyspace of 62^6 (about 5.7e10) codes.
	GeneratedCodeLength = 6

	MinCustomCodeLength = 3
	MaxCustomCodeLength = 20
)

// reservedCodes shadow routes served at the root.
var reservedCodes = map[string]struct{}{
	"api":     {},
	"health":  {},
	"metrics": {},
	"docs":    {},
	"redoc":   {},
	"static":  {},
	"assets":  {},
}

// Generator produces candidate short codes. Candidates are not guaranteed unique.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes uniformly from Alphabet using crypto/rand.
type RandomGenerator struct {
	length int
	max    *big.Int
}

// NewRandomGenerator returns a generator of GeneratedCodeLength-character codes.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{
		length: GeneratedCodeLength,
		max:    big.NewInt(int64(len(Alphabet))),
	}
}

func (g *RandomGenerator) Generate() (string, error) {
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, g.max)
		if err != nil {
			return "", err
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// ValidateCustomCode enforces the format of user-supplied codes.
func ValidateCustomCode(code string) error {
	if len(code) < MinCustomCodeLength || len(code) > MaxCustomCodeLength {
		return apperror.Validation("custom code must be 3-20 characters")
	}
	for i := 0; i < len(code); i++ {
		if !isCodeChar(code[i]) {
			return apperror.Validation("custom code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	if isReserved(code) {
		return apperror.Validation("custom code is reserved")
	}
	return nil
}

func isCodeChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '-'
}

func isReserved(code string) bool {
	_, ok := reservedCodes[strings.ToLower(code)]
	return ok
}
