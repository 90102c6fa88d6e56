package client

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
)

// Client is the remote sync contract used by the reconciliation engine.
type Client interface {
	// IsConfigured reports whether remote credentials are present. It does
	// no I/O.
	IsConfigured() bool

	// UpsertOne writes one item. An inline file payload is uploaded first and
	// the returned item carries the blob reference instead.
	UpsertOne(ctx context.Context, item models.Item) (models.Item, error)

	// ReadAll returns every remote item. On failure the collection is empty
	// and the error says why.
	ReadAll(ctx context.Context) ([]models.Item, error)

	// DeleteOne removes the item and, best-effort, its blob.
	DeleteOne(ctx context.Context, item models.Item) error

	// Subscribe delivers the full remote collection whenever it changes.
	Subscribe(ctx context.Context, fn func([]models.Item)) (Subscription, error)

	PayloadURL(ctx context.Context, item models.Item) (string, error)
	OpenPayload(ctx context.Context, item models.Item) ([]byte, error)

	Close() error
}

// Subscription is a cancellable push registration. After Cancel returns no
// callback runs.
type Subscription interface {
	Cancel()
}
