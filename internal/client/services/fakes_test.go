package services

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/items"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func setupRepos(t *testing.T) *client.Repositories {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return client.NewRepositories(db)
}

// fakeRemote is an in-memory client.Client.
type fakeRemote struct {
	client.Client

	mu         sync.Mutex
	configured bool
	docs       map[string]models.Item
	blobs      map[string][]byte
	readErr    error
	upsertErr  error
	deleteErr  error
	openErr    error
	upserts    []models.Item
	deletes    []string
	onRead     func()
	push       func([]models.Item)
	cancelled  bool
}

func newFakeRemote(configured bool, seed ...models.Item) *fakeRemote {
	r := &fakeRemote{configured: configured, docs: map[string]models.Item{}, blobs: map[string][]byte{}}
	for _, it := range seed {
		r.docs[it.ID] = it
	}
	return r
}

func (r *fakeRemote) IsConfigured() bool { return r.configured }

func (r *fakeRemote) UpsertOne(ctx context.Context, item models.Item) (models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, item)
	if !r.configured {
		return item, client.ErrNotConfigured
	}
	if r.upsertErr != nil {
		return item, r.upsertErr
	}
	if item.HasInlinePayload() {
		key := "items/" + item.ID + "/" + item.Name
		r.blobs[key] = item.Payload.Inline
		item = item.WithRemotePayload(key)
	}
	item.UpdatedAt = t0.Add(time.Hour)
	r.docs[item.ID] = item
	return item, nil
}

func (r *fakeRemote) ReadAll(ctx context.Context) ([]models.Item, error) {
	if r.onRead != nil {
		r.onRead()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return []models.Item{}, r.readErr
	}
	out := []models.Item{}
	for _, it := range r.docs {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b models.Item) int { return strings.Compare(b.ID, a.ID) })
	return out, nil
}

func (r *fakeRemote) DeleteOne(ctx context.Context, item models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, item.ID)
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.docs, item.ID)
	delete(r.blobs, item.Payload.Ref)
	return nil
}

func (r *fakeRemote) Subscribe(ctx context.Context, fn func([]models.Item)) (client.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.push = fn
	r.cancelled = false
	return cancelFunc(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.cancelled = true
	}), nil
}

// emit delivers a push the way the listener goroutine would.
func (r *fakeRemote) emit(list []models.Item) {
	r.mu.Lock()
	fn, cancelled := r.push, r.cancelled
	r.mu.Unlock()
	if fn != nil && !cancelled {
		fn(list)
	}
}

func (r *fakeRemote) OpenPayload(ctx context.Context, item models.Item) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return nil, r.openErr
	}
	data, ok := r.blobs[item.Payload.Ref]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func (r *fakeRemote) PayloadURL(ctx context.Context, item models.Item) (string, error) {
	return "https://blobs.local/" + item.Payload.Ref, nil
}

func (r *fakeRemote) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.upserts)
}

type cancelFunc func()

func (f cancelFunc) Cancel() { f() }

// brokenLocal fails every call.
type brokenLocal struct {
	items.Repository
	err error
}

func (b brokenLocal) ReplaceAll(ctx context.Context, list []models.Item) error { return b.err }

func (b brokenLocal) ReadAll(ctx context.Context) ([]models.Item, error) { return nil, b.err }

func (b brokenLocal) Count(ctx context.Context) (int, error) { return 0, b.err }

func (b brokenLocal) Usage(ctx context.Context) (models.Usage, error) { return models.Usage{}, b.err }

// seqIDs returns id-1, id-2, ...
func seqIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "id-" + strconv.Itoa(n), nil
	}
}

// tickingClock advances one minute per call so new items sort first.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	cur := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Minute)
		return cur
	}
}

func ids(list []models.Item) []string {
	out := make([]string, len(list))
	for i, it := range list {
		out[i] = it.ID
	}
	return out
}
