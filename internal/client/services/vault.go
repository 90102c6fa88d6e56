package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/google/uuid"
)

// Vault is the reconciliation engine. It owns the authoritative item
// collection for one unlocked session and mediates every mutation through
// the remote and the local store.
//
// The collection is an immutable slice replaced wholesale under mu, so
// readers always see a complete snapshot. Mutations are not serialized
// against each other; each one recomputes from the snapshot current at the
// moment it publishes.
type Vault struct {
	remote client.Client
	local  items.Repository
	legacy *LegacyImporter
	policy Policy
	status *StatusTracker
	log    logging.Logger

	now        func() time.Time
	newID      func() (string, error)
	quotaBytes int64
	progress   func(done, total int)

	mu              sync.RWMutex
	items           []models.Item
	configChecked   bool
	remoteAvailable bool
	loaded          bool
	usage           models.Usage
	listeners       map[int]func([]models.Item)
	nextListener    int

	subMu sync.Mutex
	sub   client.Subscription
}

type Option func(*Vault)

func WithPolicy(p Policy) Option { return func(v *Vault) { v.policy = p } }

func WithLogger(l logging.Logger) Option { return func(v *Vault) { v.log = l } }

func WithClock(now func() time.Time) Option { return func(v *Vault) { v.now = now } }

func WithIDGenerator(fn func() (string, error)) Option { return func(v *Vault) { v.newID = fn } }

func WithQuota(bytes int64) Option { return func(v *Vault) { v.quotaBytes = bytes } }

func WithStatusTracker(t *StatusTracker) Option { return func(v *Vault) { v.status = t } }

// WithPushProgress reports progress of the startup push of local items to
// an empty remote.
func WithPushProgress(fn func(done, total int)) Option { return func(v *Vault) { v.progress = fn } }

// NewVault builds an engine. legacy may be nil.
func NewVault(remote client.Client, local items.Repository, legacy *LegacyImporter, opts ...Option) *Vault {
	v := &Vault{
		remote:    remote,
		local:     local,
		legacy:    legacy,
		log:       logging.Nop(),
		now:       time.Now,
		newID:     newItemID,
		items:     []models.Item{},
		listeners: map[int]func([]models.Item){},
	}
	for _, o := range opts {
		o(v)
	}
	if v.status == nil {
		v.status = NewStatusTracker()
	}
	return v
}

// newItemID returns a UUIDv7, so ids sort by creation time.
func newItemID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Open starts a session: it clears the previous session's flags, subscribes
// to remote pushes and runs the startup reconciliation. Pushes arriving
// before Load completes are dropped, on every Open.
func (v *Vault) Open(ctx context.Context) error {
	v.mu.Lock()
	v.loaded = false
	v.configChecked = false
	v.mu.Unlock()

	sub, err := v.remote.Subscribe(ctx, v.applyPush)
	if err != nil {
		v.log.Warn(ctx, "remote subscription failed", "error", err)
	} else {
		v.subMu.Lock()
		v.sub = sub
		v.subMu.Unlock()
	}
	return v.Load(ctx)
}

// Close ends the session and stops push delivery. No push is applied after
// it returns.
func (v *Vault) Close() {
	v.mu.Lock()
	v.loaded = false
	v.mu.Unlock()

	v.subMu.Lock()
	sub := v.sub
	v.sub = nil
	v.subMu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Load reconciles remote, local and legacy data into the authoritative
// collection. Remote wins when it has data; otherwise local data is adopted
// (and pushed when remote is available); otherwise a one-time legacy import
// runs when remote is unavailable. Returned errors are local store faults;
// the collection is usable either way.
func (v *Vault) Load(ctx context.Context) error {
	available := v.checkConfig()

	var errs []error
	if available {
		errs = append(errs, v.loadWithRemote(ctx)...)
	} else {
		errs = append(errs, v.loadLocalOnly(ctx)...)
	}

	v.mu.Lock()
	v.loaded = true
	v.mu.Unlock()

	v.RefreshUsage(ctx)
	return errors.Join(errs...)
}

// checkConfig asks the remote once per session.
func (v *Vault) checkConfig() bool {
	v.mu.Lock()
	first := !v.configChecked
	if first {
		v.remoteAvailable = v.remote.IsConfigured()
		v.configChecked = true
	}
	available := v.remoteAvailable
	v.mu.Unlock()

	if first {
		v.status.Resolve(available)
	}
	return available
}

func (v *Vault) loadWithRemote(ctx context.Context) []error {
	v.status.Begin()
	remoteItems, err := v.remote.ReadAll(ctx)
	v.status.End(err)
	if err != nil {
		v.log.Warn(ctx, "remote read failed, treating remote as empty", "error", err)
		remoteItems = nil
	}

	if len(remoteItems) > 0 {
		v.log.Info(ctx, "adopting remote collection", "items", len(remoteItems))
		v.warnOverCeiling(ctx, "remote", len(remoteItems))
		v.replace(remoteItems)
		return []error{v.persistOnLoad(ctx, remoteItems)}
	}

	localItems, err := v.local.ReadAll(ctx)
	if err != nil {
		return []error{v.localFault(ctx, "read", err)}
	}
	if len(localItems) == 0 {
		return nil
	}

	v.log.Info(ctx, "remote empty, pushing local collection", "items", len(localItems))
	v.warnOverCeiling(ctx, "local", len(localItems))
	v.replace(localItems)
	v.pushAll(ctx, localItems)
	return []error{v.persistOnLoad(ctx, v.Items())}
}

// pushAll upserts items one at a time and swaps in each promoted record.
func (v *Vault) pushAll(ctx context.Context, list []models.Item) {
	total := len(list)
	for i, it := range list {
		v.status.Begin()
		saved, err := v.remote.UpsertOne(ctx, it)
		v.status.End(err)
		if err != nil {
			v.log.Warn(ctx, "initial push failed", "id", it.ID, "error", err)
		} else {
			v.swap(saved)
		}
		if v.progress != nil {
			v.progress(i+1, total)
		}
	}
}

func (v *Vault) loadLocalOnly(ctx context.Context) []error {
	localItems, err := v.local.ReadAll(ctx)
	if err != nil {
		return []error{v.localFault(ctx, "read", err)}
	}
	if len(localItems) > 0 {
		v.warnOverCeiling(ctx, "local", len(localItems))
		v.replace(localItems)
		return nil
	}
	if v.legacy == nil {
		return nil
	}

	pending, err := v.legacy.Pending(ctx)
	if err != nil {
		return []error{v.localFault(ctx, "legacy check", err)}
	}
	if !pending {
		return nil
	}

	imported, err := v.legacy.Read(ctx)
	if err != nil {
		return []error{v.localFault(ctx, "legacy read", err)}
	}

	var errs []error
	if len(imported) > 0 {
		v.log.Info(ctx, "legacy records imported", "items", len(imported))
		v.warnOverCeiling(ctx, "legacy", len(imported))
		v.replace(imported)
		errs = append(errs, v.persistOnLoad(ctx, imported))
	}
	if err := v.legacy.Finish(ctx); err != nil {
		errs = append(errs, v.localFault(ctx, "legacy erase", err))
	}
	return errs
}

// warnOverCeiling logs an adopted collection larger than MaxItems. Existing
// data is never dropped; the ceiling only blocks further additions.
func (v *Vault) warnOverCeiling(ctx context.Context, source string, n int) {
	if v.policy.MaxItems > 0 && n > v.policy.MaxItems {
		v.log.Warn(ctx, "adopted collection exceeds item ceiling", "source", source, "items", n, "max", v.policy.MaxItems)
	}
}

// persistOnLoad writes list to the local store unless that would replace a
// non-empty store with nothing.
func (v *Vault) persistOnLoad(ctx context.Context, list []models.Item) error {
	if len(list) == 0 {
		n, err := v.local.Count(ctx)
		if err != nil {
			return v.localFault(ctx, "count", err)
		}
		if n > 0 {
			v.log.Warn(ctx, "empty overwrite skipped", "stored", n)
			return nil
		}
	}
	if err := v.local.ReplaceAll(ctx, list); err != nil {
		return v.localFault(ctx, "write", err)
	}
	return nil
}

// applyPush is the subscription callback: last write wins at snapshot
// granularity. A push can overwrite the optimistic state of a mutation
// still in flight until that mutation re-publishes.
func (v *Vault) applyPush(list []models.Item) {
	ctx := context.Background()

	v.mu.RLock()
	loaded := v.loaded
	v.mu.RUnlock()
	if !loaded {
		v.log.Debug(ctx, "push ignored before initial load", "items", len(list))
		return
	}

	v.replace(list)
	if err := v.local.ReplaceAll(ctx, v.Items()); err != nil {
		_ = v.localFault(ctx, "write", err)
	}
	v.RefreshUsage(ctx)
}

// AddNote admits a note, publishes it and syncs it.
func (v *Vault) AddNote(ctx context.Context, text string) (models.Item, error) {
	clean, err := v.policy.PrepareNote(text)
	if err != nil {
		return models.Item{}, err
	}
	id, err := v.newID()
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to generate id: %w", err)
	}
	return v.add(ctx, models.NewNote(id, clean, v.now()))
}

// AddFile admits a file upload, publishes it and syncs it. mediaType may be
// empty to detect it from data.
func (v *Vault) AddFile(ctx context.Context, name, mediaType string, data []byte) (models.Item, error) {
	draft, err := v.policy.PrepareFile(name, mediaType, data)
	if err != nil {
		return models.Item{}, err
	}
	id, err := v.newID()
	if err != nil {
		return models.Item{}, fmt.Errorf("failed to generate id: %w", err)
	}
	return v.add(ctx, models.NewFile(id, draft.Name, draft.MediaType, draft.Data, v.now()))
}

func (v *Vault) add(ctx context.Context, item models.Item) (models.Item, error) {
	err := v.update(func(cur []models.Item) ([]models.Item, error) {
		if err := v.policy.CheckCapacity(len(cur)); err != nil {
			return nil, err
		}
		next := make([]models.Item, 0, len(cur)+1)
		next = append(next, item)
		return append(next, cur...), nil
	})
	if err != nil {
		return models.Item{}, err
	}
	v.log.Info(ctx, "item added", "id", item.ID, "kind", item.Kind)
	return v.syncUpsert(ctx, item)
}

// ToggleImportant flips the important flag of id.
func (v *Vault) ToggleImportant(ctx context.Context, id string) (models.Item, error) {
	var toggled models.Item
	err := v.update(func(cur []models.Item) ([]models.Item, error) {
		i := models.IndexOf(cur, id)
		if i < 0 {
			return nil, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
		}
		next := slices.Clone(cur)
		next[i].IsImportant = !next[i].IsImportant
		toggled = next[i]
		return next, nil
	})
	if err != nil {
		return models.Item{}, err
	}
	return v.syncUpsert(ctx, toggled)
}

// syncUpsert runs the remote and local tail of an upsert mutation.
func (v *Vault) syncUpsert(ctx context.Context, item models.Item) (models.Item, error) {
	if v.RemoteAvailable() {
		v.status.Begin()
		saved, err := v.remote.UpsertOne(ctx, item)
		v.status.End(err)
		if err != nil {
			v.log.Warn(ctx, "remote upsert failed", "id", item.ID, "error", err)
		} else {
			item = saved
			v.swap(saved)
		}
	}
	return item, v.persist(ctx)
}

// Delete removes id from the collection, the remote and the local store.
func (v *Vault) Delete(ctx context.Context, id string) error {
	var removed models.Item
	err := v.update(func(cur []models.Item) ([]models.Item, error) {
		i := models.IndexOf(cur, id)
		if i < 0 {
			return nil, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
		}
		removed = cur[i]
		return slices.Delete(slices.Clone(cur), i, i+1), nil
	})
	if err != nil {
		return err
	}
	v.log.Info(ctx, "item deleted", "id", id)

	if v.RemoteAvailable() {
		v.status.Begin()
		err := v.remote.DeleteOne(ctx, removed)
		v.status.End(err)
		if err != nil {
			v.log.Warn(ctx, "remote delete failed", "id", id, "error", err)
		}
	}
	return v.persist(ctx)
}

// persist writes the current collection; an empty one is allowed here.
func (v *Vault) persist(ctx context.Context) error {
	err := v.local.ReplaceAll(ctx, v.Items())
	v.RefreshUsage(ctx)
	if err != nil {
		return v.localFault(ctx, "write", err)
	}
	return nil
}

func (v *Vault) localFault(ctx context.Context, op string, err error) error {
	v.log.Error(ctx, "local store fault", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", common.ErrLocalStore, op, err)
}

// update publishes the collection returned by fn, computed from the
// current one under the lock.
func (v *Vault) update(fn func(cur []models.Item) ([]models.Item, error)) error {
	v.mu.Lock()
	next, err := fn(v.items)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	v.items = sortedClone(next)
	snapshot, listeners := v.items, v.listenersLocked()
	v.mu.Unlock()

	notify(listeners, snapshot)
	return nil
}

func (v *Vault) replace(list []models.Item) {
	_ = v.update(func([]models.Item) ([]models.Item, error) { return list, nil })
}

// swap replaces the item with the same id, if it is still present.
func (v *Vault) swap(item models.Item) {
	_ = v.update(func(cur []models.Item) ([]models.Item, error) {
		i := models.IndexOf(cur, item.ID)
		if i < 0 {
			return cur, nil
		}
		next := slices.Clone(cur)
		next[i] = item
		return next, nil
	})
}

func sortedClone(list []models.Item) []models.Item {
	out := slices.Clone(list)
	if out == nil {
		out = []models.Item{}
	}
	models.SortByCreatedDesc(out)
	return out
}

func (v *Vault) listenersLocked() []func([]models.Item) {
	out := make([]func([]models.Item), 0, len(v.listeners))
	for _, l := range v.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []func([]models.Item), snapshot []models.Item) {
	for _, l := range listeners {
		l(slices.Clone(snapshot))
	}
}

// OnChange registers fn for every published snapshot and returns its
// unregister func.
func (v *Vault) OnChange(fn func([]models.Item)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextListener
	v.nextListener++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.listeners, id)
	}
}

// Items returns the current snapshot, newest first.
func (v *Vault) Items() []models.Item {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.items)
}

func (v *Vault) Find(f models.Filter) []models.Item {
	return f.Apply(v.Items())
}

// Get returns the item with id or common.ErrNotFound.
func (v *Vault) Get(id string) (models.Item, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i := models.IndexOf(v.items, id)
	if i < 0 {
		return models.Item{}, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	return v.items[i], nil
}

// Payload returns a file's bytes from wherever they live. A failed
// retrieval is an error, never an empty result.
func (v *Vault) Payload(ctx context.Context, id string) (models.Item, []byte, error) {
	it, err := v.Get(id)
	if err != nil {
		return models.Item{}, nil, err
	}
	if it.Kind != models.KindFile {
		return it, nil, fmt.Errorf("%w: %s is not a file", client.ErrPayloadUnavailable, id)
	}
	if !it.IsRemote {
		return it, it.Payload.Inline, nil
	}
	data, err := v.remote.OpenPayload(ctx, it)
	if err != nil {
		return it, nil, fmt.Errorf("%w: %w", client.ErrPayloadUnavailable, err)
	}
	return it, data, nil
}

// PayloadURL returns a time-limited download URL for a remote file.
func (v *Vault) PayloadURL(ctx context.Context, id string) (string, error) {
	it, err := v.Get(id)
	if err != nil {
		return "", err
	}
	return v.remote.PayloadURL(ctx, it)
}

func (v *Vault) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

func (v *Vault) RemoteAvailable() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.remoteAvailable
}

func (v *Vault) Status() SyncStatus { return v.status.Status() }

func (v *Vault) StatusTracker() *StatusTracker { return v.status }

func (v *Vault) Usage() models.Usage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.usage
}

// RefreshUsage recomputes the storage report. Failures are only logged.
func (v *Vault) RefreshUsage(ctx context.Context) {
	u, err := v.local.Usage(ctx)
	if err != nil {
		v.log.Warn(ctx, "usage refresh failed", "error", err)
		return
	}
	u.QuotaBytes = v.quotaBytes
	v.mu.Lock()
	v.usage = u
	v.mu.Unlock()
}
