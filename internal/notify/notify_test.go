package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/notify"
	"github.com/Tiliavir/personal-assistant/internal/storage"
)

func TestEmitAppendsAndPublishes(t *testing.T) {
	ctx := context.Background()
	stores, err := storage.Open(ctx, storage.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	hub := notify.NewHub()
	ch, unsubscribe := hub.Subscribe(1)
	defer unsubscribe()

	e := notify.NewEmitter(stores.Notifications, hub)
	firedAt := time.Date(2026, 2, 27, 17, 0, 3, 0, time.UTC)
	r := model.NewReminder("r1", "submit the report", firedAt.Add(-3*time.Second), firedAt.Add(-time.Hour))

	n, err := e.Emit(ctx, r, firedAt)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if n.ID == "" || n.Text != "submit the report" || !n.FiredAt.Equal(firedAt) {
		t.Errorf("Emit = %+v", n)
	}

	select {
	case got := <-ch:
		if got.ID != n.ID {
			t.Errorf("published %s, want %s", got.ID, n.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("notification was not published")
	}

	stored := stores.Notifications.List(ctx)
	if len(stored) != 1 || stored[0].ID != n.ID {
		t.Errorf("stored = %+v", stored)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	stores, err := storage.Open(ctx, storage.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	e := notify.NewEmitter(stores.Notifications, nil)
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	r := model.NewReminder("r", "x", cutoff, cutoff)

	if _, err := e.Emit(ctx, r, cutoff.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Emit(ctx, r, cutoff.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	removed, err := e.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if got := len(stores.Notifications.List(ctx)); got != 1 {
		t.Errorf("remaining = %d, want 1", got)
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := notify.NewHub()
	ch, unsubscribe := hub.Subscribe(1)

	hub.Publish(model.Notification{ID: "1"})
	hub.Publish(model.Notification{ID: "2"})

	if got := (<-ch).ID; got != "1" {
		t.Errorf("first = %q, want %q", got, "1")
	}
	select {
	case n := <-ch:
		t.Errorf("unexpected second delivery %q", n.ID)
	default:
	}

	unsubscribe()
	unsubscribe()
	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers = %d after unsubscribe", hub.Subscribers())
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed after unsubscribe")
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := notify.NewHub()
	ch, unsubscribe := hub.Subscribe(1)

	hub.Close()
	if _, ok := <-ch; ok {
		t.Error("channel not closed by Close")
	}
	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers = %d after Close", hub.Subscribers())
	}
	unsubscribe()
	hub.Close()

	late, lateUnsubscribe := hub.Subscribe(1)
	defer lateUnsubscribe()
	if _, ok := <-late; ok {
		t.Error("subscription after Close is open")
	}
	hub.Publish(model.Notification{ID: "1"})
}
