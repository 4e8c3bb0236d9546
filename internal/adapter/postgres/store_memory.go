package postgres

import (
	"context"
	"fmt"

	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
)

// InsertMemory writes a new memory row with its embedding and returns the
// assigned id. The row is either fully present with a valid embedding or
// not present at all.
func (s *Store) InsertMemory(ctx context.Context, m *memory.Memory, embedding []float32) (int64, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO memories (user_id, text, embedding)
		 VALUES ($1, $2, $3::vector)
		 RETURNING id, created_at`,
		m.UserID, m.Text, encodeVector(embedding),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	return m.ID, nil
}

// UpdateMemory replaces a memory's text and embedding in one statement.
// The user id predicate is the ownership check: zero rows affected means
// wrong id or wrong owner, reported identically as domain.ErrNotFound.
func (s *Store) UpdateMemory(ctx context.Context, id int64, userID, text string, embedding []float32) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE memories SET text = $3, embedding = $4::vector
		 WHERE id = $1 AND user_id = $2`,
		id, userID, text, encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("update memory %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update memory %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SearchMemories returns up to limit memories owned by userID ranked by
// similarity to the query embedding. The user predicate is applied before
// ranking so cost stays proportional to one user's partition.
func (s *Store) SearchMemories(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]memory.Scored, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, text, created_at, 1 - (embedding <=> $2::vector) AS similarity
		 FROM memories
		 WHERE user_id = $1
		 ORDER BY similarity DESC, id ASC
		 LIMIT $3`,
		userID, encodeVector(queryEmbedding), s.clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	var result []memory.Scored
	for rows.Next() {
		var m memory.Scored
		if err := rows.Scan(&m.ID, &m.Text, &m.CreatedAt, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.UserID = userID
		result = append(result, m)
	}
	return result, rows.Err()
}

// ListMemories returns all memories for a user, newest first.
func (s *Store) ListMemories(ctx context.Context, userID string) ([]memory.Memory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, text, created_at FROM memories
		 WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var result []memory.Memory
	for rows.Next() {
		var m memory.Memory
		if err := rows.Scan(&m.ID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.UserID = userID
		result = append(result, m)
	}
	return result, rows.Err()
}
