// Package scheduler arms one one-shot timer per pending reminder and, when a
// timer fires, marks the reminder completed and emits a notification.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

// ReminderStore is the persistence the scheduler needs.
type ReminderStore interface {
	Upsert(ctx context.Context, r model.Reminder) error
	Pending(ctx context.Context, now time.Time) []model.Reminder
	Delete(ctx context.Context, id string) (bool, error)
}

// Emitter records a fired reminder.
type Emitter interface {
	Emit(ctx context.Context, r model.Reminder, firedAt time.Time) (model.Notification, error)
}

type timerState int

const (
	stateScheduled timerState = iota
	stateCancelled
	stateFired
)

// entry is one armed timer. Its state only leaves stateScheduled once, under
// Scheduler.mu.
type entry struct {
	timer    *time.Timer
	state    timerState
	reminder model.Reminder
}

// Scheduler owns the mapping from reminder id to pending timer.
type Scheduler struct {
	reminders ReminderStore
	emitter   Emitter
	now       func() time.Time
	log       *slog.Logger

	// ops serializes the store write and timer change of AddOrUpdate, Delete,
	// Cancel and fire, so what is stored and what is armed never diverge.
	// Lock order is ops, then mu.
	ops sync.Mutex

	mu      sync.Mutex
	running bool
	baseCtx context.Context
	entries map[string]*entry
	firing  sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New returns a stopped scheduler.
func New(reminders ReminderStore, emitter Emitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		reminders: reminders,
		emitter:   emitter,
		now:       time.Now,
		log:       slog.Default(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms a timer for every stored reminder that is incomplete and due
// strictly in the future. Overdue reminders are left alone. Calling Start on
// a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.baseCtx = context.WithoutCancel(ctx)
	s.entries = make(map[string]*entry)

	now := s.now()
	pending := s.reminders.Pending(ctx, now)
	for _, r := range pending {
		s.arm(r, now)
	}
	s.log.Info("scheduler started", "rearmed", len(pending))
	return nil
}

// Shutdown stops every pending timer and waits for firings already in
// progress, bounded by ctx. It is a no-op when the scheduler is not running.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancelled := len(s.entries)
	for _, e := range s.entries {
		e.timer.Stop()
		e.state = stateCancelled
	}
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.firing.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped", "cancelled", cancelled)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

// AddOrUpdate persists r and, when the scheduler is running, replaces any
// pending timer for r.ID with one firing at r.DueAt. A reminder that is
// completed or already due gets no timer.
func (s *Scheduler) AddOrUpdate(ctx context.Context, r model.Reminder) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.reminders.Upsert(ctx, r); err != nil {
		return fmt.Errorf("store reminder %s: %w", r.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.log.Debug("scheduler not running, reminder stored without timer", "reminder", r.ID)
		return nil
	}
	now := s.now()
	if !r.Pending(now) {
		s.cancelLocked(r.ID)
		return nil
	}
	s.arm(r, now)
	return nil
}

// Delete removes the stored reminder and, only once that succeeded, its
// pending timer. A failed delete leaves both in place.
func (s *Scheduler) Delete(ctx context.Context, id string) (bool, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	removed, err := s.reminders.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete reminder %s: %w", id, err)
	}
	s.mu.Lock()
	s.cancelLocked(id)
	s.mu.Unlock()
	return removed, nil
}

// Cancel drops the pending timer for id and reports whether there was one.
// Unknown, fired, or never scheduled ids are not an error.
func (s *Scheduler) Cancel(id string) bool {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(id)
}

// Running reports whether Start has been called without a later Shutdown.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending returns the sorted ids that currently have an armed timer.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Scheduled returns the reminder snapshot behind the armed timer for id.
func (s *Scheduler) Scheduled(id string) (model.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return model.Reminder{}, false
	}
	return e.reminder, true
}

// arm must be called with s.mu held.
func (s *Scheduler) arm(r model.Reminder, now time.Time) {
	s.cancelLocked(r.ID)
	e := &entry{state: stateScheduled, reminder: r}
	// Callers hold s.ops and s.mu, so the callback cannot read the entry
	// before e.timer is set.
	e.timer = time.AfterFunc(r.DueAt.Sub(now), func() { s.fire(e) })
	s.entries[r.ID] = e
}

// cancelLocked must be called with s.mu held.
func (s *Scheduler) cancelLocked(id string) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	e.state = stateCancelled
	delete(s.entries, id)
	return true
}

func (s *Scheduler) fire(e *entry) {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.mu.Lock()
	if e.state != stateScheduled {
		s.mu.Unlock()
		return
	}
	e.state = stateFired
	if cur, ok := s.entries[e.reminder.ID]; ok && cur == e {
		delete(s.entries, e.reminder.ID)
	}
	s.firing.Add(1)
	ctx := s.baseCtx
	s.mu.Unlock()
	defer s.firing.Done()

	firedAt := s.now()
	r := e.reminder
	log := s.log.With("reminder", r.ID)

	if err := s.reminders.Upsert(ctx, r.MarkCompleted()); err != nil {
		log.Error("could not mark reminder completed", "error", err)
	}
	n, err := s.emitter.Emit(ctx, r, firedAt)
	if err != nil {
		log.Error("could not emit notification", "error", err)
		return
	}
	log.Info("reminder fired", "notification", n.ID, "due_at", r.DueAt, "late_by", firedAt.Sub(r.DueAt))
}
