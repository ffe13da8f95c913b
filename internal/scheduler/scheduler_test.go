package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/Tiliavir/personal-assistant/internal/model"
	"github.com/Tiliavir/personal-assistant/internal/notify"
	"github.com/Tiliavir/personal-assistant/internal/scheduler"
	"github.com/Tiliavir/personal-assistant/internal/storage"
)

type fixture struct {
	stores *storage.Stores
	sched  *scheduler.Scheduler
	fired  <-chan model.Notification
}

func newFixture(t *testing.T, dir string) *fixture {
	t.Helper()
	stores, err := storage.Open(context.Background(), storage.Options{DataDir: dir})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	hub := notify.NewHub()
	fired, unsubscribe := hub.Subscribe(16)
	sched := scheduler.New(stores.Reminders, notify.NewEmitter(stores.Notifications, hub))
	t.Cleanup(func() {
		_ = sched.Shutdown(context.Background())
		unsubscribe()
		_ = stores.Close()
	})
	return &fixture{stores: stores, sched: sched, fired: fired}
}

func (f *fixture) waitFired(t *testing.T) model.Notification {
	t.Helper()
	select {
	case n := <-f.fired:
		return n
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return model.Notification{}
	}
}

func (f *fixture) expectQuiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case n := <-f.fired:
		t.Fatalf("unexpected notification %+v", n)
	case <-time.After(d):
	}
}

func TestFireMarksCompletedAndNotifies(t *testing.T) {
	f := newFixture(t, t.TempDir())
	ctx := context.Background()
	if err := f.sched.Start(ctx); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	r := model.NewReminder("r1", "call Alex", now.Add(50*time.Millisecond), now)
	if err := f.sched.AddOrUpdate(ctx, r); err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	n := f.waitFired(t)
	if n.Text != "call Alex" {
		t.Errorf("Text = %q, want %q", n.Text, "call Alex")
	}
	if n.FiredAt.Before(r.DueAt) {
		t.Errorf("FiredAt %v is before DueAt %v", n.FiredAt, r.DueAt)
	}

	stored, err := f.stores.Reminders.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Completed {
		t.Error("reminder not marked completed")
	}
	if got := len(f.stores.Notifications.List(ctx)); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
	if pending := f.sched.Pending(); len(pending) != 0 {
		t.Errorf("Pending after fire = %v", pending)
	}

	// A timer fires at most once per scheduling.
	f.expectQuiet(t, 150*time.Millisecond)
	if got := len(f.stores.Notifications.List(ctx)); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
}

func TestCancelBeforeDuePreventsNotification(t *testing.T) {
	f := newFixture(t, t.TempDir())
	ctx := context.Background()
	if err := f.sched.Start(ctx); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	r := model.NewReminder("r1", "water plants", now.Add(80*time.Millisecond), now)
	if err := f.sched.AddOrUpdate(ctx, r); err != nil {
		t.Fatal(err)
	}
	if !f.sched.Cancel("r1") {
		t.Error("Cancel reported no pending timer")
	}
	if f.sched.Cancel("r1") {
		t.Error("second Cancel reported a pending timer")
	}

	f.expectQuiet(t, 250*time.Millisecond)
	if got := len(f.stores.Notifications.List(ctx)); got != 0 {
		t.Errorf("notifications = %d, want 0", got)
	}
}

func TestCancelUnknownIsNoop(t *testing.T) {
	f := newFixture(t, t.TempDir())
	if f.sched.Cancel("never-scheduled") {
		t.Error("Cancel on stopped scheduler reported a timer")
	}
	_ = f.sched.Start(context.Background())
	if f.sched.Cancel("never-scheduled") {
		t.Error("Cancel of unknown id reported a timer")
	}
}

func TestRescheduleReplacesTimer(t *testing.T) {
	f := newFixture(t, t.TempDir())
	ctx := context.Background()
	_ = f.sched.Start(ctx)

	now := time.Now()
	r := model.NewReminder("r1", "stand up", now.Add(50*time.Millisecond), now)
	if err := f.sched.AddOrUpdate(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.DueAt = now.Add(time.Hour)
	if err := f.sched.AddOrUpdate(ctx, r); err != nil {
		t.Fatal(err)
	}

	f.expectQuiet(t, 200*time.Millisecond)
	if got := f.sched.Pending(); len(got) != 1 || got[0] != "r1" {
		t.Errorf("Pending = %v, want [r1]", got)
	}
}

func TestAddOrUpdateNotPendingArmsNothing(t *testing.T) {
	f := newFixture(t, t.TempDir())
	ctx := context.Background()
	_ = f.sched.Start(ctx)

	now := time.Now()
	if err := f.sched.AddOrUpdate(ctx, model.NewReminder("past", "x", now.Add(-time.Minute), now)); err != nil {
		t.Fatal(err)
	}
	if err := f.sched.AddOrUpdate(ctx, model.NewReminder("done", "x", now.Add(time.Hour), now).MarkCompleted()); err != nil {
		t.Fatal(err)
	}
	if got := f.sched.Pending(); len(got) != 0 {
		t.Errorf("Pending = %v, want none", got)
	}
	if got := len(f.stores.Reminders.List(ctx)); got != 2 {
		t.Errorf("stored reminders = %d, want 2", got)
	}
}

func TestStoppedSchedulerStillPersists(t *testing.T) {
	f := newFixture(t, t.TempDir())
	ctx := context.Background()

	now := time.Now()
	r := model.NewReminder("r1", "x", now.Add(50*time.Millisecond), now)
	if err := f.sched.AddOrUpdate(ctx, r); err != nil {
		t.Fatalf("AddOrUpdate before Start: %v", err)
	}
	if _, err := f.stores.Reminders.Get(ctx, "r1"); err != nil {
		t.Errorf("reminder not persisted: %v", err)
	}
	if got := f.sched.Pending(); len(got) != 0 {
		t.Errorf("Pending = %v on stopped scheduler", got)
	}
	f.expectQuiet(t, 150*time.Millisecond)
}

func TestRestartRehydratesFutureAndSkipsOverdue(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	now := time.Now()

	// Seed the store as a previous process would have left it.
	seed := newFixture(t, dir)
	_ = seed.stores.Reminders.Upsert(ctx, model.NewReminder("overdue", "missed", now.Add(-time.Minute), now.Add(-time.Hour)))
	_ = seed.stores.Reminders.Upsert(ctx, model.NewReminder("future", "soon", now.Add(100*time.Millisecond), now))
	_ = seed.stores.Reminders.Upsert(ctx, model.NewReminder("done", "old", now.Add(time.Hour), now).MarkCompleted())

	f := newFixture(t, dir)
	if err := f.sched.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.sched.Pending(); len(got) != 1 || got[0] != "future" {
		t.Fatalf("Pending after restart = %v, want [future]", got)
	}

	n := f.waitFired(t)
	if n.Text != "soon" {
		t.Errorf("fired %q, want %q", n.Text, "soon")
	}
	f.expectQuiet(t, 100*time.Millisecond)

	overdue, err := f.stores.Reminders.Get(ctx, "overdue")
	if err != nil {
		t.Fatal(err)
	}
	if overdue.Completed {
		t.Error("overdue reminder was fired retroactively")
	}
}

func TestStartShutdownIdempotent(t *testing.T) {
	f := newFixture(t, t.TempDir())
	ctx := context.Background()

	if err := f.sched.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown before Start: %v", err)
	}
	if err := f.sched.Start(ctx); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	_ = f.sched.AddOrUpdate(ctx, model.NewReminder("r1", "x", now.Add(80*time.Millisecond), now))

	// A second Start must not re-arm or drop anything.
	if err := f.sched.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.sched.Pending(); len(got) != 1 {
		t.Fatalf("Pending after second Start = %v", got)
	}

	if err := f.sched.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.sched.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if f.sched.Running() {
		t.Error("Running after Shutdown")
	}
	if got := f.sched.Pending(); len(got) != 0 {
		t.Errorf("Pending after Shutdown = %v", got)
	}
	f.expectQuiet(t, 200*time.Millisecond)
}

func TestWithClockControlsFiredAt(t *testing.T) {
	stores, err := storage.Open(context.Background(), storage.Options{DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	hub := notify.NewHub()
	fired, unsubscribe := hub.Subscribe(1)
	defer unsubscribe()

	fixed := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	sched := scheduler.New(stores.Reminders, notify.NewEmitter(stores.Notifications, hub),
		scheduler.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	_ = sched.Start(ctx)
	defer sched.Shutdown(ctx)

	// Due 10ms after the fake clock, so the real timer waits 10ms.
	if err := sched.AddOrUpdate(ctx, model.NewReminder("r1", "x", fixed.Add(10*time.Millisecond), fixed)); err != nil {
		t.Fatal(err)
	}
	select {
	case n := <-fired:
		if !n.FiredAt.Equal(fixed) {
			t.Errorf("FiredAt = %v, want %v", n.FiredAt, fixed)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out")
	}
}
