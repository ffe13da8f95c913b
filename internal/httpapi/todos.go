package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

type createTodoRequest struct {
	Title string     `json:"title"`
	DueAt *time.Time `json:"due_at"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// GET /api/todos
func (a *api) listTodos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.stores.Todos.List(r.Context()))
}

// POST /api/todos
func (a *api) createTodo(w http.ResponseWriter, r *http.Request) {
	var in createTodoRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	todo := model.NewTodo(uuid.NewString(), in.Title, in.DueAt, a.now().UTC())
	if err := a.stores.Todos.Upsert(r.Context(), todo); err != nil {
		writeStoreError(w, a.log, "Todo not found", err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// PUT /api/todos/{id}
func (a *api) updateTodo(w http.ResponseWriter, r *http.Request) {
	var patch model.TodoPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}

	updated, err := a.stores.Todos.Update(r.Context(), chi.URLParam(r, "id"), patch, a.now().UTC())
	if err != nil {
		writeStoreError(w, a.log, "Todo not found", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/todos/{id}
func (a *api) deleteTodo(w http.ResponseWriter, r *http.Request) {
	removed, err := a.stores.Todos.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, a.log, "Todo not found", err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
