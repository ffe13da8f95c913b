package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
)

// ErrNotFound is returned when an operation targets an absent identifier.
var ErrNotFound = errors.New("not found")

// Record is anything a Collection can index.
type Record interface {
	Key() string
}

// Collection is a durable, ordered set of records unique by Key. Every
// operation reads and rewrites the whole collection while holding the
// collection's mutex, so read-modify-write sequences never interleave.
type Collection[T Record] struct {
	mu      sync.Mutex
	name    string
	backend Backend
	log     *slog.Logger
}

// NewCollection binds name on backend, writing an empty collection if none
// exists yet.
func NewCollection[T Record](ctx context.Context, backend Backend, name string, logger *slog.Logger) (*Collection[T], error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collection[T]{
		name:    name,
		backend: backend,
		log:     logger.With("collection", name),
	}
	_, err := backend.Read(ctx, name)
	if errors.Is(err, fs.ErrNotExist) {
		if err := c.save(ctx, nil); err != nil && !errors.Is(err, ErrReadOnly) {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", name, err)
	}
	return c, nil
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// List returns the current snapshot in stored order. An unreadable or
// corrupt collection is logged and reported as empty.
func (c *Collection[T]) List(ctx context.Context) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		c.log.Warn("collection unreadable, returning empty list", "error", err)
		return []T{}
	}
	return items
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	for _, it := range items {
		if it.Key() == id {
			return it, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %q: %w", c.name, id, ErrNotFound)
}

// Upsert replaces the record with the same key, or appends it.
func (c *Collection[T]) Upsert(ctx context.Context, rec T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	for i, it := range items {
		if it.Key() == rec.Key() {
			items[i] = rec
			return c.save(ctx, items)
		}
	}
	return c.save(ctx, append(items, rec))
}

// Append adds rec at the end without checking for an existing key.
func (c *Collection[T]) Append(ctx context.Context, rec T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	return c.save(ctx, append(items, rec))
}

// Update applies fn to the record with the given id and stores the result.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(T) T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	items, err := c.load(ctx)
	if err != nil {
		return zero, err
	}
	for i, it := range items {
		if it.Key() != id {
			continue
		}
		updated := fn(it)
		items[i] = updated
		if err := c.save(ctx, items); err != nil {
			return zero, err
		}
		return updated, nil
	}
	return zero, fmt.Errorf("%s %q: %w", c.name, id, ErrNotFound)
}

// Delete removes the record with the given id and reports whether one was
// removed. Nothing is written when the id is absent.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	n, err := c.RemoveWhere(ctx, func(it T) bool { return it.Key() == id })
	return n > 0, err
}

// RemoveWhere drops every record matching pred and returns how many went.
func (c *Collection[T]) RemoveWhere(ctx context.Context, pred func(T) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		return 0, err
	}
	kept := items[:0]
	for _, it := range items {
		if !pred(it) {
			kept = append(kept, it)
		}
	}
	removed := len(items) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := c.save(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// load must be called with c.mu held. A payload that fails to decode is
// quarantined and treated as an empty collection; only I/O errors are
// returned.
func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	data, err := c.backend.Read(ctx, c.name)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", c.name, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		c.log.Warn("corrupt collection, treating as empty", "error", err)
		switch qErr := c.backend.Quarantine(ctx, c.name); {
		case errors.Is(qErr, ErrReadOnly):
			c.log.Warn("read-only, corrupt collection left in place")
		case qErr != nil:
			c.log.Error("could not back up corrupt collection", "error", qErr)
		}
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// save must be called with c.mu held.
func (c *Collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return c.backend.Write(ctx, c.name, data)
}
