// Package metadata is the key/value store for client state that must survive
// restarts: the theme preference and the persisted session credential.
package metadata

import (
	"context"
)

// Well-known keys. Keys sharing SessionPrefix are written and cleared together.
const (
	KeyTheme = "theme"

	SessionPrefix   = "session."
	KeySessionToken = SessionPrefix + "token"
	KeySessionUser  = SessionPrefix + "user"
)

// Repository is a string-keyed byte store. Get returns (nil, nil) for a
// missing key; deleting a missing key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Scan returns every pair whose key starts with prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}
