// Package notify records fired reminders as notifications and pushes them
// to live listeners.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/storage"
)

// Emitter appends notifications to the store and publishes them on a Hub.
type Emitter struct {
	store *storage.NotificationStore
	hub   *Hub
}

// NewEmitter returns an emitter writing to store. hub may be nil.
func NewEmitter(store *storage.NotificationStore, hub *Hub) *Emitter {
	return &Emitter{store: store, hub: hub}
}

// Emit appends a notification for r fired at firedAt. The text is copied
// verbatim from the reminder.
func (e *Emitter) Emit(ctx context.Context, r model.Reminder, firedAt time.Time) (model.Notification, error) {
	n := model.Notification{
		ID:      uuid.NewString(),
		Text:    r.Text,
		FiredAt: firedAt,
	}
	if err := e.store.Add(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("append notification for reminder %s: %w", r.ID, err)
	}
	if e.hub != nil {
		e.hub.Publish(n)
	}
	return n, nil
}

// Prune removes notifications fired before the cutoff. Nothing calls it on a
// schedule; maintenance jobs and the HTTP/CLI surfaces do.
func (e *Emitter) Prune(ctx context.Context, before time.Time) (int, error) {
	return e.store.ClearOlderThan(ctx, before)
}
