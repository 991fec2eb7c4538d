// Package crypto implements server-side password hashing and refresh-token hashing.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes passwords with bcrypt and refresh tokens with a keyed HMAC.
// Password hashes are slow and salted; token hashes are deterministic so they can be indexed.
type Hasher struct {
	cost int
	key  []byte
}

// NewHasher returns a Hasher with the given bcrypt cost (clamped to 4–31) and HMAC key.
func NewHasher(cost int, key []byte) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost, key: append([]byte(nil), key...)}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash returns the bcrypt hash of raw.
func (h *Hasher) Hash(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether raw matches the bcrypt hash. Malformed hashes never match.
func (h *Hasher) Compare(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// KeyedHash returns the hex HMAC-SHA256 of raw.
func (h *Hasher) KeyedHash(raw string) string {
	m := hmac.New(sha256.New, h.key)
	_, _ = m.Write([]byte(raw))
	return hex.EncodeToString(m.Sum(nil))
}
