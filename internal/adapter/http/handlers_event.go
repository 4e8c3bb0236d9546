package http

import (
	"net/http"

	"github.com/Gladowsky-Labs/brane/internal/domain/event"
	"github.com/Gladowsky-Labs/brane/internal/middleware"
)

// ListEvents handles GET /api/v1/events
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	items, err := h.Events.List(r.Context(), u.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if items == nil {
		items = []event.Event{}
	}

	writeJSON(w, http.StatusOK, items)
}
