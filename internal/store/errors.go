package store

import "github.com/pkg/errors" // Sentinel errors

// Sentinel errors returned by the stores
var (
	ErrNotFound      = errors.New("record not found")         // Row does not exist
	ErrUsernameTaken = errors.New("username already taken")   // Primary key collision
	ErrEmailTaken    = errors.New("email already registered") // Unique email collision
)
