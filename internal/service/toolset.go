package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/chat"
	"github.com/Gladowsky-Labs/brane/internal/port/llm"
	"github.com/Gladowsky-Labs/brane/internal/port/websearch"
)

// Envelope is the uniform result shell every tool returns to the model.
// Failures of any kind (validation, store, external capability) become
// {success:false, message}; nothing throws across the tool boundary.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Tool names form a closed set known at compile time.
const (
	ToolStoreMemory    = "storeMemory"
	ToolSearchMemories = "searchMemories"
	ToolUpdateMemory   = "updateMemory"
	ToolStoreEvent     = "storeEvent"
	ToolSearchEvents   = "searchEvents"
	ToolUpdateEvent    = "updateEvent"
	ToolSearchInternet = "searchInternet"
)

// Toolset is the per-user collection of tool adapters handed to one agent
// loop instance. The user id is bound into every adapter at construction;
// no tool argument ever carries a user identifier. Build one per
// authenticated request, never cache across users.
type Toolset struct {
	storeMemory    storeMemoryTool
	searchMemories searchMemoriesTool
	updateMemory   updateMemoryTool
	storeEvent     storeEventTool
	searchEvents   searchEventsTool
	updateEvent    updateEventTool
	searchInternet searchInternetTool
}

// ToolsetDeps are the capabilities the tools operate on.
type ToolsetDeps struct {
	Memories *MemoryService
	Events   *EventService
	Searcher websearch.Searcher
}

// NewToolset binds userID into a fresh set of tool adapters.
func NewToolset(userID string, deps ToolsetDeps) *Toolset {
	return &Toolset{
		storeMemory:    storeMemoryTool{userID: userID, memories: deps.Memories},
		searchMemories: searchMemoriesTool{userID: userID, memories: deps.Memories},
		updateMemory:   updateMemoryTool{userID: userID, memories: deps.Memories},
		storeEvent:     storeEventTool{userID: userID, events: deps.Events},
		searchEvents:   searchEventsTool{userID: userID, events: deps.Events},
		updateEvent:    updateEventTool{userID: userID, events: deps.Events},
		searchInternet: searchInternetTool{searcher: deps.Searcher},
	}
}

// Definitions returns the tool schemas exposed to the model.
func (t *Toolset) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{Name: ToolStoreMemory, Description: storeMemoryDescription, Schema: []byte(storeMemorySchema)},
		{Name: ToolSearchMemories, Description: searchMemoriesDescription, Schema: []byte(searchMemoriesSchema)},
		{Name: ToolUpdateMemory, Description: updateMemoryDescription, Schema: []byte(updateMemorySchema)},
		{Name: ToolStoreEvent, Description: storeEventDescription, Schema: []byte(storeEventSchema)},
		{Name: ToolSearchEvents, Description: searchEventsDescription, Schema: []byte(searchEventsSchema)},
		{Name: ToolUpdateEvent, Description: updateEventDescription, Schema: []byte(updateEventSchema)},
		{Name: ToolSearchInternet, Description: searchInternetDescription, Schema: []byte(searchInternetSchema)},
	}
}

// Execute dispatches one tool call and returns its transcript entry. The
// switch over the closed name set is the only dispatch point; an unknown
// name is itself just a failed envelope, so a hallucinated tool cannot
// break the loop.
func (t *Toolset) Execute(ctx context.Context, call chat.ToolCall) chat.ToolResult {
	var out any

	switch call.Name {
	case ToolStoreMemory:
		out = t.storeMemory.execute(ctx, call.Args)
	case ToolSearchMemories:
		out = t.searchMemories.execute(ctx, call.Args)
	case ToolUpdateMemory:
		out = t.updateMemory.execute(ctx, call.Args)
	case ToolStoreEvent:
		out = t.storeEvent.execute(ctx, call.Args)
	case ToolSearchEvents:
		out = t.searchEvents.execute(ctx, call.Args)
	case ToolUpdateEvent:
		out = t.updateEvent.execute(ctx, call.Args)
	case ToolSearchInternet:
		out = t.searchInternet.execute(ctx, call.Args)
	default:
		out = Envelope{Success: false, Message: fmt.Sprintf("Unknown tool %q", call.Name)}
	}

	content, err := json.Marshal(out)
	if err != nil {
		slog.Error("marshal tool result", "tool", call.Name, "error", err)
		content = []byte(`{"success":false,"message":"Internal error encoding tool result"}`)
	}

	return chat.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    string(content),
	}
}

// errMessage renders an error for the model-visible transcript, dropping
// the sentinel suffix validation errors carry for the HTTP layer.
func errMessage(err error) string {
	return strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error())
}
