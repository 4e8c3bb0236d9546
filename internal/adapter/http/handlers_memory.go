package http

import (
	"net/http"

	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
	"github.com/Gladowsky-Labs/brane/internal/middleware"
)

// ListMemories handles GET /api/v1/memories
func (h *Handlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	items, err := h.Memories.List(r.Context(), u.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if items == nil {
		items = []memory.Memory{}
	}

	writeJSON(w, http.StatusOK, items)
}
