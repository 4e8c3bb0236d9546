package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/event"
	"github.com/Gladowsky-Labs/brane/internal/port/database"
)

// InsertEvent writes a new event row with its embedding and returns the
// assigned id.
func (s *Store) InsertEvent(ctx context.Context, e *event.Event, embedding []float32) (int64, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (user_id, title, description, start_time, end_time, event_type, status, location, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
		 RETURNING id, created_at`,
		e.UserID, e.Title, e.Description, e.StartTime, e.EndTime,
		string(e.Type), string(e.Status), e.Location, encodeVector(embedding),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return e.ID, nil
}

// UpdateEvent applies a partial update inside a transaction. When the
// update touches the embedding text (title or description), the current
// row is re-read under FOR UPDATE, the embedding is regenerated from the
// merged field values via embed, and fields plus embedding commit in one
// UPDATE. Untouched fields, including the embedding when no regeneration
// happens, are never written.
func (s *Store) UpdateEvent(ctx context.Context, userID string, req *event.UpdateRequest, embed database.EmbedFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update event: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var embedding []float32
	if req.NeedsReembed() {
		var cur event.Event
		err := tx.QueryRow(ctx,
			`SELECT title, description, start_time, end_time, event_type, status, location
			 FROM events WHERE id = $1 AND user_id = $2
			 FOR UPDATE`,
			req.ID, userID,
		).Scan(&cur.Title, &cur.Description, &cur.StartTime, &cur.EndTime, &cur.Type, &cur.Status, &cur.Location)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("update event %d: %w", req.ID, domain.ErrNotFound)
			}
			return fmt.Errorf("read event %d: %w", req.ID, err)
		}

		merged := req.Apply(cur)
		text := event.EmbeddingText(merged.Title, merged.Description, merged.StartTime, merged.Location, merged.Type)
		embedding, err = embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed event %d: %w", req.ID, err)
		}
	}

	sets := make([]string, 0, 8)
	args := []any{req.ID, userID}
	set := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if req.Title != nil {
		set("title", *req.Title)
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.StartTime != nil {
		t, err := event.ParseTime(*req.StartTime)
		if err != nil {
			return fmt.Errorf("update event %d: bad startTime: %w", req.ID, domain.ErrValidation)
		}
		set("start_time", t)
	}
	if req.EndTime != nil {
		t, err := event.ParseTime(*req.EndTime)
		if err != nil {
			return fmt.Errorf("update event %d: bad endTime: %w", req.ID, domain.ErrValidation)
		}
		set("end_time", t)
	}
	if req.Location != nil {
		set("location", *req.Location)
	}
	if req.Type != nil {
		set("event_type", *req.Type)
	}
	if req.Status != nil {
		set("status", *req.Status)
	}
	if embedding != nil {
		args = append(args, encodeVector(embedding))
		sets = append(sets, fmt.Sprintf("embedding = $%d::vector", len(args)))
	}
	if len(sets) == 0 {
		return fmt.Errorf("update event %d: no updates provided: %w", req.ID, domain.ErrValidation)
	}

	q := "UPDATE events SET " + strings.Join(sets, ", ") + " WHERE id = $1 AND user_id = $2"
	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update event %d: %w", req.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event %d: %w", req.ID, domain.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update event %d: %w", req.ID, err)
	}
	return nil
}

// SearchEvents returns up to limit events owned by userID ranked by
// similarity to the query embedding.
func (s *Store) SearchEvents(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]event.Scored, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, start_time, end_time, event_type, status, location, created_at,
		        1 - (embedding <=> $2::vector) AS similarity
		 FROM events
		 WHERE user_id = $1
		 ORDER BY similarity DESC, id ASC
		 LIMIT $3`,
		userID, encodeVector(queryEmbedding), s.clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	var result []event.Scored
	for rows.Next() {
		var e event.Scored
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
			&e.Type, &e.Status, &e.Location, &e.CreatedAt, &e.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.UserID = userID
		result = append(result, e)
	}
	return result, rows.Err()
}

// ListEvents returns all events for a user ordered by start time.
func (s *Store) ListEvents(ctx context.Context, userID string) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, start_time, end_time, event_type, status, location, created_at
		 FROM events WHERE user_id = $1 ORDER BY start_time ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var result []event.Event
	for rows.Next() {
		var e event.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
			&e.Type, &e.Status, &e.Location, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.UserID = userID
		result = append(result, e)
	}
	return result, rows.Err()
}
