package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/event"
)

const (
	storeEventDescription = "Store a new event related to the user for future reference. Use this to log significant occurrences, actions, or updates about the user."
	storeEventSchema      = `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "The title of the event to store"},
			"description": {"type": "string", "description": "A detailed description of the event"},
			"date": {"type": "string", "description": "The date of the event in ISO format"},
			"location": {"type": "string", "description": "The location of the event"},
			"event_type": {"type": "string", "description": "The type of event. MUST BE ONE OF: meeting, appointment, assignment, reminder, task"}
		},
		"required": ["title", "description", "date"]
	}`

	searchEventsDescription = "Search for relevant events using semantic search. Returns events ranked by relevance to the query."
	searchEventsSchema      = `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query to find relevant events"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Maximum number of events to return (default: 5)"}
		},
		"required": ["query"]
	}`

	updateEventDescription = "Update an existing event by ID. Can update title, description, dates, location, type, and status."
	updateEventSchema      = `{
		"type": "object",
		"properties": {
			"id": {"type": "integer", "minimum": 1, "description": "The ID of the event to update"},
			"title": {"type": "string", "description": "New title for the event"},
			"description": {"type": "string", "description": "New description for the event"},
			"startTime": {"type": "string", "description": "New start time in ISO format"},
			"endTime": {"type": "string", "description": "New end time in ISO format"},
			"location": {"type": "string", "description": "New location for the event"},
			"eventType": {"type": "string", "description": "New event type (meeting, appointment, assignment, reminder, task)"},
			"status": {"type": "string", "description": "New status (upcoming, completed, cancelled)"}
		},
		"required": ["id"]
	}`
)

// eventHit is one ranked search result as the model sees it.
type eventHit struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	EventType   string `json:"eventType"`
	Status      string `json:"status"`
	Location    string `json:"location"`
	Similarity  int    `json:"similarity"`
	CreatedAt   string `json:"createdAt"`
}

type storeEventTool struct {
	userID string
	events *EventService
}

func (t storeEventTool) execute(ctx context.Context, args json.RawMessage) any {
	var req event.CreateRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return Envelope{Success: false, Message: "Invalid arguments for storeEvent: " + err.Error()}
	}

	id, err := t.events.Store(ctx, t.userID, &req)
	if err != nil {
		return Envelope{Success: false, Message: "Failed to store event: " + errMessage(err)}
	}

	return struct {
		Envelope
		EventID int64 `json:"eventId"`
	}{
		Envelope: Envelope{Success: true, Message: fmt.Sprintf("Event stored successfully with ID %d", id)},
		EventID:  id,
	}
}

type searchEventsTool struct {
	userID string
	events *EventService
}

func (t searchEventsTool) execute(ctx context.Context, args json.RawMessage) any {
	var req event.SearchRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return Envelope{Success: false, Message: "Invalid arguments for searchEvents: " + err.Error()}
	}

	type result struct {
		Envelope
		Events []eventHit `json:"events"`
	}

	found, err := t.events.Search(ctx, t.userID, &req)
	if err != nil {
		return result{
			Envelope: Envelope{Success: false, Message: "Failed to search events: " + errMessage(err)},
			Events:   []eventHit{},
		}
	}

	if len(found) == 0 {
		return result{
			Envelope: Envelope{Success: true, Message: "No relevant events found"},
			Events:   []eventHit{},
		}
	}

	hits := make([]eventHit, len(found))
	for i, e := range found {
		hits[i] = eventHit{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			StartTime:   e.StartTime.UTC().Format(time.RFC3339),
			EndTime:     e.EndTime.UTC().Format(time.RFC3339),
			EventType:   string(e.Type),
			Status:      string(e.Status),
			Location:    e.Location,
			Similarity:  int(math.Round(e.Similarity * 100)),
			CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	noun := "events"
	if len(hits) == 1 {
		noun = "event"
	}
	return result{
		Envelope: Envelope{Success: true, Message: fmt.Sprintf("Found %d relevant %s", len(hits), noun)},
		Events:   hits,
	}
}

type updateEventTool struct {
	userID string
	events *EventService
}

func (t updateEventTool) execute(ctx context.Context, args json.RawMessage) any {
	var req event.UpdateRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return Envelope{Success: false, Message: "Invalid arguments for updateEvent: " + err.Error()}
	}

	// A no-op update is rejected before any store access.
	if req.ID > 0 && !req.HasUpdates() {
		return Envelope{Success: false, Message: "No updates provided"}
	}

	err := t.events.Update(ctx, t.userID, &req)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Envelope{Success: false, Message: "Event not found or you do not have permission to update it"}
	case err != nil:
		return Envelope{Success: false, Message: "Failed to update event: " + errMessage(err)}
	}

	return Envelope{Success: true, Message: fmt.Sprintf("Event %d updated successfully", req.ID)}
}
