// Package optimistic implements the apply-then-confirm mutation pattern
// shared by the task planner and the booking admin: mutate the local
// replica immediately, issue the remote write, and roll the replica
// back to its pre-mutation snapshot if the write fails.
package optimistic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kitchenhire/booking-engine/internal/remote"
)

var ErrNotFound = errors.New("record not found in replica")

// Remote is the store-side contract for one record collection.
type Remote[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) error
	Update(ctx context.Context, id string, patch map[string]any) error
	Delete(ctx context.Context, id string) error
}

// Engine keeps a local replica of one remote collection and applies
// every mutation optimistically. Mutations are serialized so a rollback
// always restores the exact pre-mutation collection; there is no retry,
// queueing, or coalescing — a failed mutation is the caller's to
// re-trigger, and concurrent writes to one id are last-write-wins at
// the store.
type Engine[T any] struct {
	remote Remote[T]
	id     func(T) string
	cache  *Cache[T]
	log    *slog.Logger

	opMu sync.Mutex // serializes mutations end to end
	mu   sync.RWMutex
	items []T
}

type Options[T any] struct {
	Remote Remote[T]
	// ID extracts the record id. Ids are client-generated, so inserts
	// never wait on the store to assign one.
	ID func(T) string
	// CachePath, when set, enables the durable fallback cache that is
	// mirrored on successful writes and read only when hydration
	// cannot reach the store.
	CachePath string
	Logger    *slog.Logger
}

func NewEngine[T any](opts Options[T]) *Engine[T] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var cache *Cache[T]
	if opts.CachePath != "" {
		cache = &Cache[T]{Path: opts.CachePath}
	}
	return &Engine[T]{remote: opts.Remote, id: opts.ID, cache: cache, log: logger}
}

// Hydrate fills the replica from the store. When the store cannot be
// reached the fallback cache (if configured) seeds the replica instead,
// and the remote error is still returned so the caller can surface the
// degraded state.
func (e *Engine[T]) Hydrate(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	items, err := e.remote.List(ctx)
	if err != nil {
		e.logFailure("hydrate", err)
		if e.cache != nil {
			if cached, cacheErr := e.cache.Load(); cacheErr == nil {
				e.setItems(cached)
				e.log.Info("replica hydrated from fallback cache", "items", len(cached))
				return err
			}
		}
		e.setItems(nil)
		return err
	}
	e.setItems(items)
	e.mirror()
	return nil
}

// Items returns a copy of the replica in store order.
func (e *Engine[T]) Items() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]T, len(e.items))
	copy(out, e.items)
	return out
}

// Get looks a record up by id.
func (e *Engine[T]) Get(id string) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, item := range e.items {
		if e.id(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Create inserts the record locally, then persists it. On remote
// failure the replica reverts to the pre-call snapshot.
func (e *Engine[T]) Create(ctx context.Context, item T) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	snap := e.snapshot()
	e.mu.Lock()
	e.items = append(e.items, item)
	e.mu.Unlock()

	if err := e.remote.Create(ctx, item); err != nil {
		e.logFailure("create", err)
		e.restore(snap)
		return err
	}
	e.mirror()
	return nil
}

// Update applies a partial patch locally, then persists it. Returns the
// patched record. Unknown ids fail fast with no mutation or network
// call.
func (e *Engine[T]) Update(ctx context.Context, id string, patch map[string]any) (T, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	var zero T
	snap := e.snapshot()
	updated, err := e.applyLocal(id, patch)
	if err != nil {
		return zero, err
	}
	if err := e.remote.Update(ctx, id, patch); err != nil {
		e.logFailure("update", err)
		e.restore(snap)
		return zero, err
	}
	e.mirror()
	return updated, nil
}

// UpdateBestEffort applies the patch locally and attempts the remote
// write without rolling back on failure. The daily rollover uses this:
// moving an overdue task is a convenience, not a guaranteed-consistent
// operation, so a failed patch keeps the local move and gets logged.
func (e *Engine[T]) UpdateBestEffort(ctx context.Context, id string, patch map[string]any) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if _, err := e.applyLocal(id, patch); err != nil {
		return err
	}
	if err := e.remote.Update(ctx, id, patch); err != nil {
		e.logFailure("update (best effort)", err)
		return err
	}
	e.mirror()
	return nil
}

// Delete removes the record locally, then remotely. On remote failure
// the replica reverts to the pre-call snapshot.
func (e *Engine[T]) Delete(ctx context.Context, id string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	snap := e.snapshot()
	e.mu.Lock()
	found := false
	for i, item := range e.items {
		if e.id(item) == id {
			e.items = append(e.items[:i], e.items[i+1:]...)
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err := e.remote.Delete(ctx, id); err != nil {
		e.logFailure("delete", err)
		e.restore(snap)
		return err
	}
	e.mirror()
	return nil
}

// applyLocal patches the record in the replica through its own JSON
// codec, the same merge the store performs, so local and remote state
// converge field for field.
func (e *Engine[T]) applyLocal(id string, patch map[string]any) (T, error) {
	var zero T
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, item := range e.items {
		if e.id(item) != id {
			continue
		}
		updated, err := mergePatch(item, patch)
		if err != nil {
			return zero, err
		}
		e.items[i] = updated
		return updated, nil
	}
	return zero, fmt.Errorf("%s: %w", id, ErrNotFound)
}

func mergePatch[T any](item T, patch map[string]any) (T, error) {
	var zero T
	raw, err := json.Marshal(item)
	if err != nil {
		return zero, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return zero, err
	}
	for k, v := range patch {
		if v == nil {
			delete(obj, k)
			continue
		}
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, err
	}
	return out, nil
}

func (e *Engine[T]) snapshot() []T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := make([]T, len(e.items))
	copy(snap, e.items)
	return snap
}

func (e *Engine[T]) restore(snap []T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = snap
}

func (e *Engine[T]) setItems(items []T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = items
}

func (e *Engine[T]) mirror() {
	if e.cache == nil {
		return
	}
	if err := e.cache.Store(e.Items()); err != nil {
		e.log.Warn("fallback cache write failed", "err", err)
	}
}

// logFailure distinguishes unreachable from rejected for the log line
// only; both classes roll back the same way.
func (e *Engine[T]) logFailure(op string, err error) {
	switch {
	case errors.Is(err, remote.ErrUnavailable):
		e.log.Warn("remote store unreachable", "op", op, "err", err)
	case errors.Is(err, remote.ErrRejected):
		e.log.Warn("remote store rejected mutation", "op", op, "err", err)
	default:
		e.log.Warn("remote mutation failed", "op", op, "err", err)
	}
}
