package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

type createReminderRequest struct {
	Text  string     `json:"text"`
	DueAt *time.Time `json:"due_at"`
}

// GET /api/reminders
func (a *api) listReminders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.stores.Reminders.List(r.Context()))
}

// POST /api/reminders
func (a *api) createReminder(w http.ResponseWriter, r *http.Request) {
	var in createReminderRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if in.DueAt == nil || in.DueAt.IsZero() {
		writeError(w, http.StatusBadRequest, "due_at is required")
		return
	}

	reminder := model.NewReminder(uuid.NewString(), in.Text, *in.DueAt, a.now().UTC())
	if err := a.sched.AddOrUpdate(r.Context(), reminder); err != nil {
		writeStoreError(w, a.log, "Reminder not found", err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

// DELETE /api/reminders/{id}
func (a *api) deleteReminder(w http.ResponseWriter, r *http.Request) {
	removed, err := a.sched.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, a.log, "Reminder not found", err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Reminder not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
