package httpapi

import (
	"fmt"
	"net/http"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

type chatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// POST /api/chat
func (a *api) chat(w http.ResponseWriter, r *http.Request) {
	var in chatRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i, m := range in.Messages {
		if !model.ValidRole(m.Role) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role))
			return
		}
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: a.assistant.Reply(r.Context(), in.Messages)})
}
