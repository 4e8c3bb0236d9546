package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventRunStarted   = "run.started"
	EventRunFinished  = "run.finished"
	EventToolExecuted = "tool.executed"
)

// RunStartedEvent is broadcast when an agent run begins.
type RunStartedEvent struct {
	RunID string `json:"run_id"`
}

// RunFinishedEvent is broadcast when an agent run completes or fails.
type RunFinishedEvent struct {
	RunID string `json:"run_id"`
	Steps int    `json:"steps"`
	OK    bool   `json:"ok"`
}

// ToolExecutedEvent is broadcast after a tool call completes.
type ToolExecutedEvent struct {
	Tool string `json:"tool"`
}

// BroadcastEvent marshals a typed event and broadcasts it to all clients.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
