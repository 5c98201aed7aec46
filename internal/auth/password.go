package auth

import (
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Hasher hashes and verifies passwords with bcrypt at a fixed cost
type Hasher struct {
	cost  int    // bcrypt work factor
	dummy []byte // hash compared against when a user does not exist
}

// NewHasher builds a Hasher for the given cost
func NewHasher(cost int) (*Hasher, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, err
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Hash returns the salted bcrypt hash of password
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check reports whether password matches hash; comparison is constant time
func (h *Hasher) Check(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Burn spends the same work as Check so a missing user is not observable by timing
func (h *Hasher) Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
