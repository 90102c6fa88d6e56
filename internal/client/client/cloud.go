package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophvault/internal/client/blobs"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/documents"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

// BlobStore is the subset of blobs.Store used here.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// Watcher runs onChange for every remote change until ctx is done.
type Watcher interface {
	Run(ctx context.Context, onChange func(ctx context.Context)) error
}

// CloudClient syncs items to a PostgreSQL document table and an S3 bucket.
type CloudClient struct {
	docs    documents.Repository
	blobs   BlobStore
	watcher Watcher
	log     logging.Logger
	closers []func() error
}

var _ Client = (*CloudClient)(nil)

func NewCloudClient(docs documents.Repository, blobs BlobStore, watcher Watcher, log logging.Logger) *CloudClient {
	return &CloudClient{docs: docs, blobs: blobs, watcher: watcher, log: log}
}

func (c *CloudClient) IsConfigured() bool { return true }

func (c *CloudClient) UpsertOne(ctx context.Context, item models.Item) (models.Item, error) {
	if item.HasInlinePayload() {
		key := blobs.Key(item.ID, item.Name)
		if err := c.blobs.Put(ctx, key, item.MediaType, item.Payload.Inline); err != nil {
			return item, fmt.Errorf("%w: %w", ErrCloudWrite, err)
		}
		item = item.WithRemotePayload(key)
	}

	saved, err := c.docs.Upsert(ctx, item)
	if err != nil {
		return item, fmt.Errorf("%w: %w", ErrCloudWrite, err)
	}
	return saved, nil
}

func (c *CloudClient) ReadAll(ctx context.Context) ([]models.Item, error) {
	items, err := c.docs.SelectAll(ctx)
	if err != nil {
		return []models.Item{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return items, nil
}

func (c *CloudClient) DeleteOne(ctx context.Context, item models.Item) error {
	if err := c.docs.DeleteByID(ctx, item.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrCloudWrite, err)
	}
	// The record is gone, so a leftover blob is unreachable.
	if item.IsRemote && item.Payload.Ref != "" {
		if err := c.blobs.Delete(ctx, item.Payload.Ref); err != nil {
			c.log.Warn(ctx, "blob delete failed, presumed absent", "id", item.ID, "key", item.Payload.Ref, "error", err)
		}
	}
	return nil
}

func (c *CloudClient) PayloadURL(ctx context.Context, item models.Item) (string, error) {
	if !item.IsRemote || item.Payload.Ref == "" {
		return "", fmt.Errorf("%w: %s is not stored remotely", ErrPayloadUnavailable, item.ID)
	}
	url, err := c.blobs.PresignGet(ctx, item.Payload.Ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPayloadUnavailable, err)
	}
	return url, nil
}

func (c *CloudClient) OpenPayload(ctx context.Context, item models.Item) ([]byte, error) {
	if !item.IsRemote || item.Payload.Ref == "" {
		return nil, fmt.Errorf("%w: %s is not stored remotely", ErrPayloadUnavailable, item.ID)
	}
	data, err := c.blobs.Get(ctx, item.Payload.Ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadUnavailable, err)
	}
	return data, nil
}

// Subscribe starts the watcher on its own goroutine. Every change triggers a
// full ReadAll; a failed read is logged and that push is skipped.
func (c *CloudClient) Subscribe(ctx context.Context, fn func([]models.Item)) (Subscription, error) {
	runCtx, cancel := context.WithCancel(ctx)
	s := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		err := c.watcher.Run(runCtx, func(ctx context.Context) {
			items, err := c.ReadAll(ctx)
			if err != nil {
				c.log.Warn(ctx, "push skipped, remote read failed", "error", err)
				return
			}
			s.deliver(items, fn)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error(runCtx, "remote watcher stopped", "error", err)
		}
	}()

	return s, nil
}

func (c *CloudClient) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

type subscription struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// deliver holds mu for the whole callback, so Cancel waits for an in-flight
// delivery and suppresses every later one.
func (s *subscription) deliver(items []models.Item, fn func([]models.Item)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	fn(items)
}

func (s *subscription) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
	<-s.done
}
