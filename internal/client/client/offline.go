package client

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
)

// Offline is the Client used without remote credentials.
type Offline struct{}

var _ Client = Offline{}

func (Offline) IsConfigured() bool { return false }

func (Offline) UpsertOne(ctx context.Context, item models.Item) (models.Item, error) {
	return item, ErrNotConfigured
}

func (Offline) ReadAll(ctx context.Context) ([]models.Item, error) {
	return []models.Item{}, nil
}

func (Offline) DeleteOne(ctx context.Context, item models.Item) error {
	return ErrNotConfigured
}

func (Offline) Subscribe(ctx context.Context, fn func([]models.Item)) (Subscription, error) {
	return noopSubscription{}, nil
}

func (Offline) PayloadURL(ctx context.Context, item models.Item) (string, error) {
	return "", ErrNotConfigured
}

func (Offline) OpenPayload(ctx context.Context, item models.Item) ([]byte, error) {
	return nil, ErrNotConfigured
}

func (Offline) Close() error { return nil }

type noopSubscription struct{}

func (noopSubscription) Cancel() {}
