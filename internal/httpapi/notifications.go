package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type pruneResponse struct {
	Removed int `json:"removed"`
}

// GET /api/notifications
func (a *api) listNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.stores.Notifications.List(r.Context()))
}

// DELETE /api/notifications?before=RFC3339
func (a *api) pruneNotifications(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "before is required")
		return
	}
	before, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
		return
	}
	removed, err := a.emitter.Prune(r.Context(), before)
	if err != nil {
		writeStoreError(w, a.log, "", err)
		return
	}
	writeJSON(w, http.StatusOK, pruneResponse{Removed: removed})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS already allows every origin for the JSON API.
	CheckOrigin: func(*http.Request) bool { return true },
}

const wsWriteWait = 10 * time.Second

// GET /api/notifications/ws streams each new notification as a JSON message.
func (a *api) streamNotifications(w http.ResponseWriter, r *http.Request) {
	events, unsubscribe := a.hub.Subscribe(16)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case n, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(n); err != nil {
				a.log.Debug("websocket write failed", "error", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
