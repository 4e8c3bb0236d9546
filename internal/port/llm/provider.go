// Package llm defines the language model port (interface) and the stream
// event types it emits.
package llm

import (
	"context"

	"github.com/Gladowsky-Labs/brane/internal/domain/chat"
)

// EventType discriminates StreamEvent values.
type EventType string

const (
	EventTypeText     EventType = "text"
	EventTypeToolCall EventType = "tool_call"
	EventTypeDone     EventType = "done"
	EventTypeError    EventType = "error"
)

// StreamEvent is one item of a model turn's output stream.
type StreamEvent struct {
	Type     EventType
	Text     string
	ToolCall *chat.ToolCall
	Err      error
}

// ToolDefinition describes one tool exposed to the model. Schema is a JSON
// Schema object for the tool's arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      []byte
}

// ChatRequest is one model turn: system prompt, transcript so far and the
// tools the model may call.
type ChatRequest struct {
	System   string
	Messages []chat.Message
	Tools    []ToolDefinition
}

// Provider streams one model turn. The returned channel is closed after a
// terminal Done or Error event.
type Provider interface {
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error)
}
