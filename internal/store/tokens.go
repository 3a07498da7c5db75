package store

import "github.com/google/uuid"

// TokenGenerator produces run identifiers. Implemented by UUIDv7Tokens
// (production) and testutil.FixedTokens (deterministic tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Tokens generates time-sortable UUIDv7 run tokens, so listing runs
// by id also lists them by creation time.
//
// Stateless and safe for concurrent use.
type UUIDv7Tokens struct{}

// Generate returns a new hyphenated UUIDv7 string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Tokens) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
