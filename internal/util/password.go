package util

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordBytes = 72
)

// PasswordEncoder hashes and verifies passwords with bcrypt.
type PasswordEncoder struct {
	cost int
}

func NewPasswordEncoder(cost int) *PasswordEncoder {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordEncoder{cost: cost}
}

func (e *PasswordEncoder) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), e.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (e *PasswordEncoder) Verify(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

func (e *PasswordEncoder) IsStrong(password string) bool {
	return PasswordWeakness(password) == ""
}

// IsHashed reports whether stored looks like a bcrypt hash rather than a
// legacy plaintext value.
func IsHashed(stored string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(stored, prefix) {
			return true
		}
	}
	return false
}

// PasswordWeakness returns the first strength rule password breaks, or "" when
// the password is strong enough.
func PasswordWeakness(password string) string {
	if password == "" {
		return "password is empty"
	}
	if len(password) < minPasswordLength {
		return "password must be at least 8 characters long"
	}
	if len(password) > maxPasswordBytes {
		return "password must be at most 72 bytes long"
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "password must contain an uppercase letter"
	case !lower:
		return "password must contain a lowercase letter"
	case !digit:
		return "password must contain a digit"
	}
	return ""
}
