package services

import (
	"errors"
	"fmt"
	"sync"
)

// SyncStatus is the indicator shown to the user. It is observational only.
type SyncStatus int

const (
	StatusChecking SyncStatus = iota
	StatusOffline
	StatusSyncing
	StatusSynced
)

func (s SyncStatus) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusOffline:
		return "offline"
	case StatusSyncing:
		return "syncing"
	case StatusSynced:
		return "synced"
	default:
		return fmt.Sprintf("SyncStatus(%d)", int(s))
	}
}

var ErrIllegalTransition = errors.New("illegal sync status transition")

var transitions = map[SyncStatus][]SyncStatus{
	StatusChecking: {StatusOffline, StatusSyncing},
	StatusOffline:  {StatusOffline, StatusSyncing},
	StatusSyncing:  {StatusSyncing, StatusOffline, StatusSynced},
	StatusSynced:   {StatusSyncing, StatusOffline},
}

// StatusTracker derives SyncStatus from the engine's remote activity.
//
// Begin and End bracket every remote operation. While any is in flight the
// status is syncing. A failure switches to offline at once; when the last
// in-flight operation ends without a failure in its batch the status becomes
// synced.
type StatusTracker struct {
	mu         sync.Mutex
	status     SyncStatus
	configured bool
	inFlight   int
	failed     bool
	nextID     int
	observers  map[int]func(SyncStatus)
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: StatusChecking, observers: map[int]func(SyncStatus){}}
}

func (t *StatusTracker) Status() SyncStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// OnChange registers fn for every status change and returns its
// unregister func. fn runs outside the tracker's lock.
func (t *StatusTracker) OnChange(fn func(SyncStatus)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.observers[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.observers, id)
	}
}

// Resolve records whether remote sync is configured. Unconfigured moves to
// offline for good; configured waits for the first operation.
func (t *StatusTracker) Resolve(configured bool) {
	t.apply(func() error {
		t.configured = configured
		if !configured {
			return t.transitionLocked(StatusOffline)
		}
		return nil
	})
}

// Begin marks a remote operation as started.
func (t *StatusTracker) Begin() {
	t.apply(func() error {
		if !t.configured {
			return nil
		}
		if t.inFlight == 0 {
			t.failed = false
		}
		t.inFlight++
		return t.transitionLocked(StatusSyncing)
	})
}

// End marks a remote operation as finished with err.
func (t *StatusTracker) End(err error) {
	t.apply(func() error {
		if !t.configured || t.inFlight == 0 {
			return nil
		}
		t.inFlight--
		if err != nil {
			t.failed = true
			return t.transitionLocked(StatusOffline)
		}
		if t.inFlight == 0 && !t.failed {
			return t.transitionLocked(StatusSynced)
		}
		return nil
	})
}

// Transition moves to next if the transition table allows it.
func (t *StatusTracker) Transition(next SyncStatus) error {
	var err error
	t.apply(func() error {
		err = t.transitionLocked(next)
		return err
	})
	return err
}

func (t *StatusTracker) transitionLocked(next SyncStatus) error {
	if next == StatusSynced && !t.configured {
		return fmt.Errorf("%w: %s while remote is unconfigured", ErrIllegalTransition, next)
	}
	for _, allowed := range transitions[t.status] {
		if allowed == next {
			t.status = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.status, next)
}

// apply runs fn under the lock and notifies observers if the status changed.
func (t *StatusTracker) apply(fn func() error) {
	t.mu.Lock()
	before := t.status
	_ = fn()
	after := t.status
	var observers []func(SyncStatus)
	if after != before {
		for _, o := range t.observers {
			observers = append(observers, o)
		}
	}
	t.mu.Unlock()

	for _, o := range observers {
		o(after)
	}
}
