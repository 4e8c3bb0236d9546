package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Gladowsky-Labs/brane/internal/domain/chat"
	"github.com/Gladowsky-Labs/brane/internal/middleware"
	"github.com/Gladowsky-Labs/brane/internal/service"
)

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// Chat handles POST /api/v1/chat. It runs one agent turn for the
// authenticated user and streams the run's events as SSE. Each event is
// one `data:` line carrying a JSON-encoded service.RunEvent.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	req, ok := readJSON[chatRequest](w, r)
	if !ok {
		return
	}

	if err := chat.ValidateHistory(req.Messages); err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	if h.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ChatTimeout)
		defer cancel()
	}

	toolset := service.NewToolset(u.ID, service.ToolsetDeps{
		Memories: h.Memories,
		Events:   h.Events,
		Searcher: h.Searcher,
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan service.RunEvent, 16)
	go h.Agent.Run(ctx, toolset, req.Messages, events)

	// Keep draining after a write failure so the run goroutine can finish.
	writable := true
	for ev := range events {
		if !writable {
			continue
		}
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Error("marshal run event", "error", err)
			continue
		}
		if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
			writable = false
			continue
		}
		flusher.Flush()
	}
}
