package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
)

const (
	storeMemoryDescription = "Store a new memory about the user for future reference. Use this to remember important facts, preferences, or context about the user."
	storeMemorySchema      = `{
		"type": "object",
		"properties": {
			"text": {"type": "string", "description": "The memory content to store"}
		},
		"required": ["text"]
	}`

	searchMemoriesDescription = "Search for relevant memories about the user using semantic search. Returns memories ranked by relevance to the query."
	searchMemoriesSchema      = `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query to find relevant memories"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Maximum number of memories to return (default: 5)"}
		},
		"required": ["query"]
	}`

	updateMemoryDescription = "Update an existing memory by ID. Updates the text content of the memory."
	updateMemorySchema      = `{
		"type": "object",
		"properties": {
			"id": {"type": "integer", "minimum": 1, "description": "The ID of the memory to update"},
			"text": {"type": "string", "description": "New text content for the memory"}
		},
		"required": ["id", "text"]
	}`
)

// memoryHit is one ranked search result as the model sees it. Similarity
// is a rounded integer percent, a presentation contract only.
type memoryHit struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	Similarity int    `json:"similarity"`
	CreatedAt  string `json:"createdAt"`
}

type storeMemoryTool struct {
	userID   string
	memories *MemoryService
}

func (t storeMemoryTool) execute(ctx context.Context, args json.RawMessage) any {
	var req memory.CreateRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return Envelope{Success: false, Message: "Invalid arguments for storeMemory: " + err.Error()}
	}

	id, err := t.memories.Store(ctx, t.userID, &req)
	if err != nil {
		return Envelope{Success: false, Message: "Failed to store memory: " + errMessage(err)}
	}

	return struct {
		Envelope
		MemoryID int64 `json:"memoryId"`
	}{
		Envelope: Envelope{Success: true, Message: fmt.Sprintf("Memory stored successfully with ID %d", id)},
		MemoryID: id,
	}
}

type searchMemoriesTool struct {
	userID   string
	memories *MemoryService
}

func (t searchMemoriesTool) execute(ctx context.Context, args json.RawMessage) any {
	var req memory.SearchRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return Envelope{Success: false, Message: "Invalid arguments for searchMemories: " + err.Error()}
	}

	type result struct {
		Envelope
		Memories []memoryHit `json:"memories"`
	}

	found, err := t.memories.Search(ctx, t.userID, &req)
	if err != nil {
		return result{
			Envelope: Envelope{Success: false, Message: "Failed to search memories: " + errMessage(err)},
			Memories: []memoryHit{},
		}
	}

	if len(found) == 0 {
		return result{
			Envelope: Envelope{Success: true, Message: "No relevant memories found"},
			Memories: []memoryHit{},
		}
	}

	hits := make([]memoryHit, len(found))
	for i, m := range found {
		hits[i] = memoryHit{
			ID:         m.ID,
			Text:       m.Text,
			Similarity: int(math.Round(m.Similarity * 100)),
			CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	noun := "memories"
	if len(hits) == 1 {
		noun = "memory"
	}
	return result{
		Envelope: Envelope{Success: true, Message: fmt.Sprintf("Found %d relevant %s", len(hits), noun)},
		Memories: hits,
	}
}

type updateMemoryTool struct {
	userID   string
	memories *MemoryService
}

func (t updateMemoryTool) execute(ctx context.Context, args json.RawMessage) any {
	var req memory.UpdateRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return Envelope{Success: false, Message: "Invalid arguments for updateMemory: " + err.Error()}
	}

	err := t.memories.Update(ctx, t.userID, &req)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Envelope{Success: false, Message: "Memory not found or you do not have permission to update it"}
	case err != nil:
		return Envelope{Success: false, Message: "Failed to update memory: " + errMessage(err)}
	}

	return Envelope{Success: true, Message: fmt.Sprintf("Memory %d updated successfully", req.ID)}
}
