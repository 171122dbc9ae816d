package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	reservationCodePrefix = "EVT-"
	reservationCodeDigits = 5
)

var reservationCodePattern = regexp.MustCompile(`^EVT-\d{5}$`)

// CodeGenerator draws reservation codes of the form EVT-NNNNN. It does not
// check uniqueness; callers retry against their store.
type CodeGenerator struct{}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

func (g *CodeGenerator) Generate() (string, error) {
	var b strings.Builder
	b.Grow(len(reservationCodePrefix) + reservationCodeDigits)
	b.WriteString(reservationCodePrefix)

	ten := big.NewInt(10)
	for range reservationCodeDigits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("draw reservation code digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// ValidateFormat reports whether code looks like a reservation code.
func ValidateFormat(code string) bool {
	return reservationCodePattern.MatchString(code)
}
