package hasher

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher derives and checks one-way secret hashes (passwords, refresh tokens).
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt Hasher. Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// Verify never errors: malformed hashes simply fail to match.
func (b *Bcrypt) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
