package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Collection names, one per entity type.
const (
	TodosCollection         = "todos"
	RemindersCollection     = "reminders"
	NotificationsCollection = "notifications"
)

// TodoStore is the typed collection of todos.
type TodoStore struct {
	c *Collection[model.Todo]
}

// List returns todos, newest first.
func (s *TodoStore) List(ctx context.Context) []model.Todo {
	items := s.c.List(ctx)
	slices.SortStableFunc(items, func(a, b model.Todo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return items
}

func (s *TodoStore) Get(ctx context.Context, id string) (model.Todo, error) {
	return s.c.Get(ctx, id)
}

func (s *TodoStore) Upsert(ctx context.Context, t model.Todo) error {
	return s.c.Upsert(ctx, t)
}

// Update applies patch to the stored todo atomically.
func (s *TodoStore) Update(ctx context.Context, id string, patch model.TodoPatch, now time.Time) (model.Todo, error) {
	return s.c.Update(ctx, id, func(t model.Todo) model.Todo {
		return t.Apply(patch, now)
	})
}

func (s *TodoStore) Delete(ctx context.Context, id string) (bool, error) {
	return s.c.Delete(ctx, id)
}

// ReminderStore is the typed collection of reminders.
type ReminderStore struct {
	c *Collection[model.Reminder]
}

// List returns reminders ordered by due time, soonest first.
func (s *ReminderStore) List(ctx context.Context) []model.Reminder {
	items := s.c.List(ctx)
	slices.SortStableFunc(items, func(a, b model.Reminder) int {
		return a.DueAt.Compare(b.DueAt)
	})
	return items
}

// Pending returns the reminders that still need a timer at now.
func (s *ReminderStore) Pending(ctx context.Context, now time.Time) []model.Reminder {
	var out []model.Reminder
	for _, r := range s.List(ctx) {
		if r.Pending(now) {
			out = append(out, r)
		}
	}
	return out
}

func (s *ReminderStore) Get(ctx context.Context, id string) (model.Reminder, error) {
	return s.c.Get(ctx, id)
}

func (s *ReminderStore) Upsert(ctx context.Context, r model.Reminder) error {
	return s.c.Upsert(ctx, r)
}

func (s *ReminderStore) Delete(ctx context.Context, id string) (bool, error) {
	return s.c.Delete(ctx, id)
}

// NotificationStore is the append-only collection of fired notifications.
type NotificationStore struct {
	c *Collection[model.Notification]
}

// List returns notifications, most recent first.
func (s *NotificationStore) List(ctx context.Context) []model.Notification {
	items := s.c.List(ctx)
	slices.SortStableFunc(items, func(a, b model.Notification) int {
		return b.FiredAt.Compare(a.FiredAt)
	})
	return items
}

// Add appends n. There is no dedup.
func (s *NotificationStore) Add(ctx context.Context, n model.Notification) error {
	return s.c.Append(ctx, n)
}

// ClearOlderThan drops notifications fired before since and returns how
// many were removed.
func (s *NotificationStore) ClearOlderThan(ctx context.Context, since time.Time) (int, error) {
	return s.c.RemoveWhere(ctx, func(n model.Notification) bool {
		return n.FiredAt.Before(since)
	})
}

// Options selects and configures the backend used by Open.
type Options struct {
	Backend string
	DataDir string
	Logger  *slog.Logger
	// ReadOnly rejects every mutation and never moves corrupt data aside.
	ReadOnly bool
}

// Stores bundles the three domain stores sharing one backend.
type Stores struct {
	Todos         *TodoStore
	Reminders     *ReminderStore
	Notifications *NotificationStore

	backend Backend
}

// Open creates the backend named in opts and binds the three collections.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	backend, err := openBackend(opts)
	if err != nil {
		return nil, err
	}
	if opts.ReadOnly {
		backend = ReadOnly(backend)
	}
	s, err := New(ctx, backend, opts.Logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return s, nil
}

// New binds the domain stores on an existing backend.
func New(ctx context.Context, backend Backend, logger *slog.Logger) (*Stores, error) {
	todos, err := NewCollection[model.Todo](ctx, backend, TodosCollection, logger)
	if err != nil {
		return nil, err
	}
	reminders, err := NewCollection[model.Reminder](ctx, backend, RemindersCollection, logger)
	if err != nil {
		return nil, err
	}
	notifications, err := NewCollection[model.Notification](ctx, backend, NotificationsCollection, logger)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Todos:         &TodoStore{c: todos},
		Reminders:     &ReminderStore{c: reminders},
		Notifications: &NotificationStore{c: notifications},
		backend:       backend,
	}, nil
}

// Close releases the backend.
func (s *Stores) Close() error {
	return s.backend.Close()
}

func openBackend(opts Options) (Backend, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileBackend(opts.DataDir)
	case BackendSQLite:
		return NewSQLiteBackend(filepath.Join(opts.DataDir, "assistant.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
