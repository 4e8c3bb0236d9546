// Package chat defines conversation messages and the history validation
// contract for the agent loop.
package chat

import (
	"encoding/json"
	"fmt"

	"github.com/Gladowsky-Labs/brane/internal/domain"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ToolResult carries one tool's output back into the transcript.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// Message is one entry of a conversation transcript. Assistant messages
// may carry tool calls alongside text; tool messages carry results.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// UserMessage builds a plain user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message with optional tool calls.
func AssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage builds a tool message carrying the given results.
func ToolMessage(results []ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: results}
}

var validRoles = map[string]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
	RoleTool:      true,
}

// ValidateHistory checks an inbound conversation before it reaches the
// model: roles must be known, the history must contain at least one user
// message, tool calls may only appear on assistant messages, and every
// tool result must answer a tool call from the preceding assistant turn.
// Malformed history is a client error, never fed to the model.
func ValidateHistory(history []Message) error {
	if len(history) == 0 {
		return fmt.Errorf("messages are required: %w", domain.ErrValidation)
	}

	hasUser := false
	pending := map[string]bool{}

	for i, msg := range history {
		if !validRoles[msg.Role] {
			return fmt.Errorf("message %d: unknown role %q: %w", i, msg.Role, domain.ErrValidation)
		}

		switch msg.Role {
		case RoleUser:
			hasUser = true
			if msg.Content == "" {
				return fmt.Errorf("message %d: user message has no content: %w", i, domain.ErrValidation)
			}
		case RoleAssistant:
			pending = map[string]bool{}
			for _, tc := range msg.ToolCalls {
				if tc.ID == "" || tc.Name == "" {
					return fmt.Errorf("message %d: tool call missing id or name: %w", i, domain.ErrValidation)
				}
				pending[tc.ID] = true
			}
		case RoleTool:
			if len(msg.ToolResults) == 0 {
				return fmt.Errorf("message %d: tool message has no results: %w", i, domain.ErrValidation)
			}
			for _, tr := range msg.ToolResults {
				if !pending[tr.ToolCallID] {
					return fmt.Errorf("message %d: tool result %q does not answer a preceding tool call: %w", i, tr.ToolCallID, domain.ErrValidation)
				}
			}
		default:
			if len(msg.ToolCalls) > 0 || len(msg.ToolResults) > 0 {
				return fmt.Errorf("message %d: %s messages must not carry tool parts: %w", i, msg.Role, domain.ErrValidation)
			}
		}
	}

	if !hasUser {
		return fmt.Errorf("at least one user message is required: %w", domain.ErrValidation)
	}
	return nil
}
