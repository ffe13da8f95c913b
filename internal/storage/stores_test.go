package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/storage"
)

func openStores(t *testing.T, backend string) *storage.Stores {
	t.Helper()
	s, err := storage.Open(context.Background(), storage.Options{Backend: backend, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(%q): %v", backend, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := storage.Open(context.Background(), storage.Options{Backend: "tape", DataDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestListOrdering(t *testing.T) {
	for _, backend := range []string{storage.BackendFile, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s := openStores(t, backend)
			ctx := context.Background()
			base := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

			for i, id := range []string{"a", "b", "c"} {
				if err := s.Todos.Upsert(ctx, model.NewTodo(id, id, nil, base.Add(time.Duration(i)*time.Minute))); err != nil {
					t.Fatal(err)
				}
			}
			if got := ids(s.Todos.List(ctx)); got != "cba" {
				t.Errorf("todo order = %q, want %q", got, "cba")
			}

			for i, id := range []string{"x", "y", "z"} {
				due := base.Add(time.Duration(3-i) * time.Hour)
				if err := s.Reminders.Upsert(ctx, model.NewReminder(id, id, due, base)); err != nil {
					t.Fatal(err)
				}
			}
			if got := ids(s.Reminders.List(ctx)); got != "zyx" {
				t.Errorf("reminder order = %q, want %q", got, "zyx")
			}

			for i, id := range []string{"1", "2", "3"} {
				n := model.Notification{ID: id, Text: id, FiredAt: base.Add(time.Duration(i) * time.Second)}
				if err := s.Notifications.Add(ctx, n); err != nil {
					t.Fatal(err)
				}
			}
			if got := ids(s.Notifications.List(ctx)); got != "321" {
				t.Errorf("notification order = %q, want %q", got, "321")
			}
		})
	}
}

func TestTodoStoreUpdate(t *testing.T) {
	s := openStores(t, storage.BackendFile)
	ctx := context.Background()
	created := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	if err := s.Todos.Upsert(ctx, model.NewTodo("t1", "draft", nil, created)); err != nil {
		t.Fatal(err)
	}

	done := true
	later := created.Add(time.Hour)
	got, err := s.Todos.Update(ctx, "t1", model.TodoPatch{Completed: &done}, later)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.Completed || got.Title != "draft" || !got.UpdatedAt.Equal(later) {
		t.Errorf("Update = %+v", got)
	}
	stored, err := s.Todos.Get(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Completed {
		t.Error("update was not persisted")
	}

	if _, err := s.Todos.Update(ctx, "missing", model.TodoPatch{}, later); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update missing err = %v, want ErrNotFound", err)
	}
}

func TestReminderStorePending(t *testing.T) {
	s := openStores(t, storage.BackendFile)
	ctx := context.Background()
	now := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	_ = s.Reminders.Upsert(ctx, model.NewReminder("future", "f", now.Add(time.Hour), now))
	_ = s.Reminders.Upsert(ctx, model.NewReminder("past", "p", now.Add(-time.Hour), now))
	_ = s.Reminders.Upsert(ctx, model.NewReminder("done", "d", now.Add(time.Hour), now).MarkCompleted())

	if got := ids(s.Reminders.Pending(ctx, now)); got != "future" {
		t.Errorf("Pending = %q, want %q", got, "future")
	}
}

func TestNotificationClearOlderThan(t *testing.T) {
	s := openStores(t, storage.BackendFile)
	ctx := context.Background()
	cutoff := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)

	_ = s.Notifications.Add(ctx, model.Notification{ID: "old", FiredAt: cutoff.Add(-time.Second)})
	_ = s.Notifications.Add(ctx, model.Notification{ID: "edge", FiredAt: cutoff})
	_ = s.Notifications.Add(ctx, model.Notification{ID: "new", FiredAt: cutoff.Add(time.Second)})

	removed, err := s.Notifications.ClearOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("ClearOlderThan: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if got := ids(s.Notifications.List(ctx)); got != "newedge" {
		t.Errorf("remaining = %q, want %q", got, "newedge")
	}
}

func ids[T storage.Record](items []T) string {
	var out string
	for _, it := range items {
		out += it.Key()
	}
	return out
}
