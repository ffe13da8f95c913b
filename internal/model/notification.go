package model

import "time"

// Notification records a fired reminder. Notifications are append-only.
type Notification struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	FiredAt time.Time `json:"fired_at"`
}

// Key returns the identifier the collection store indexes by.
func (n Notification) Key() string { return n.ID }
