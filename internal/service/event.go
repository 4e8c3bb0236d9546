package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Gladowsky-Labs/brane/internal/domain/event"
	"github.com/Gladowsky-Labs/brane/internal/port/database"
	"github.com/Gladowsky-Labs/brane/internal/port/embedding"
)

// EventService composes embedding and storage for scheduled events.
type EventService struct {
	db       database.Store
	embedder embedding.Embedder
}

// NewEventService creates a new EventService.
func NewEventService(db database.Store, embedder embedding.Embedder) *EventService {
	return &EventService{db: db, embedder: embedder}
}

// Store normalizes the request (insert defaults: end time mirrors the
// date, type falls back to reminder, location to "none"), embeds the
// composed event text and inserts the row.
func (s *EventService) Store(ctx context.Context, userID string, req *event.CreateRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	e := req.Normalize(userID)
	text := event.EmbeddingText(e.Title, e.Description, e.StartTime, e.Location, e.Type)

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embed event: %w", err)
	}

	id, err := s.db.InsertEvent(ctx, &e, vec)
	if err != nil {
		return 0, err
	}

	slog.Debug("event stored", "event_id", id, "event_type", e.Type)
	return id, nil
}

// Update applies a partial update. The store runs it transactionally and
// calls back into the embedder only when title or description changed.
func (s *EventService) Update(ctx context.Context, userID string, req *event.UpdateRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.db.UpdateEvent(ctx, userID, req, s.embedder.Embed)
}

// Search embeds the query and returns the user's events ranked by
// similarity.
func (s *EventService) Search(ctx context.Context, userID string, req *event.SearchRequest) ([]event.Scored, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return s.db.SearchEvents(ctx, userID, vec, req.Limit)
}

// List returns all of a user's events ordered by start time.
func (s *EventService) List(ctx context.Context, userID string) ([]event.Event, error) {
	return s.db.ListEvents(ctx, userID)
}
