package model

import "time"

// Todo is a single item on the todo list.
type Todo struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DueAt     *time.Time `json:"due_at"`
}

// Key returns the identifier the collection store indexes by.
func (t Todo) Key() string { return t.ID }

// TodoPatch carries the optional fields of a partial update.
// A nil field keeps the previous value.
type TodoPatch struct {
	Title     *string    `json:"title"`
	Completed *bool      `json:"completed"`
	DueAt     *time.Time `json:"due_at"`
}

// NewTodo builds a fresh, incomplete todo.
func NewTodo(id, title string, dueAt *time.Time, now time.Time) Todo {
	return Todo{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		DueAt:     dueAt,
	}
}

// Apply returns a copy of t with the patch applied. ID and CreatedAt are
// preserved and UpdatedAt is always set to now.
func (t Todo) Apply(p TodoPatch, now time.Time) Todo {
	out := t
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.DueAt != nil {
		due := *p.DueAt
		out.DueAt = &due
	}
	out.UpdatedAt = now
	return out
}
