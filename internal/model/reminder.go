package model

import "time"

// Reminder is a piece of text that becomes a Notification at DueAt.
type Reminder struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
	Completed bool      `json:"completed"`
}

// Key returns the identifier the collection store indexes by.
func (r Reminder) Key() string { return r.ID }

// NewReminder builds a reminder that has not fired yet.
func NewReminder(id, text string, dueAt, now time.Time) Reminder {
	return Reminder{
		ID:        id,
		Text:      text,
		DueAt:     dueAt,
		CreatedAt: now,
	}
}

// Pending reports whether r still needs a timer: not completed and due
// strictly after now.
func (r Reminder) Pending(now time.Time) bool {
	return !r.Completed && r.DueAt.After(now)
}

// MarkCompleted returns a copy of r flagged as fired.
func (r Reminder) MarkCompleted() Reminder {
	r.Completed = true
	return r
}
