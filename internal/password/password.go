// Package password hashes and verifies user passwords.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Policy bounds for direct-login passwords.
const (
	MinLength = 6
	MaxLength = 20
)

// Hasher abstracts the one-way hash so the algorithm can be swapped later.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher hashes with bcrypt; every hash carries its own random salt.
type BcryptHasher struct{ Cost int }

// NewBcryptHasher clamps cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return BcryptHasher{Cost: cost}
}

func (b BcryptHasher) Hash(plaintext string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(plaintext, hash string) bool {
	return Verify(plaintext, hash)
}

// Verify compares plaintext against a stored bcrypt hash. An absent hash
// never verifies.
func Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// WithinPolicy reports whether plaintext satisfies the length policy.
func WithinPolicy(plaintext string) bool {
	n := len([]rune(plaintext))
	return n >= MinLength && n <= MaxLength
}
