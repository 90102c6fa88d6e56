// Package metadata is a small key/value table next to the items table. It
// holds the legacy flat record list, the legacy-import marker and the
// password gate's salt and verifier.
package metadata

import (
	"context"
)

// Repository is the key/value contract. Get returns (nil, nil) for an
// absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
}
