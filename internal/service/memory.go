package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
	"github.com/Gladowsky-Labs/brane/internal/port/database"
	"github.com/Gladowsky-Labs/brane/internal/port/embedding"
)

// MemoryService composes embedding and storage for user memories. The
// stored embedding always matches the current text: inserts embed before
// writing, updates embed the new text and ship it with the text change in
// a single statement.
type MemoryService struct {
	db       database.Store
	embedder embedding.Embedder
}

// NewMemoryService creates a new MemoryService.
func NewMemoryService(db database.Store, embedder embedding.Embedder) *MemoryService {
	return &MemoryService{db: db, embedder: embedder}
}

// Store embeds the memory text and inserts the row, returning its id.
func (s *MemoryService) Store(ctx context.Context, userID string, req *memory.CreateRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	vec, err := s.embedder.Embed(ctx, req.Text)
	if err != nil {
		return 0, fmt.Errorf("embed memory: %w", err)
	}

	m := memory.Memory{UserID: userID, Text: req.Text}
	id, err := s.db.InsertMemory(ctx, &m, vec)
	if err != nil {
		return 0, err
	}

	slog.Debug("memory stored", "memory_id", id)
	return id, nil
}

// Update replaces a memory's text. The new embedding is computed first so
// the write carries text and embedding together; the embedding depends
// only on the new text, so no re-read of the current row is needed.
func (s *MemoryService) Update(ctx context.Context, userID string, req *memory.UpdateRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	vec, err := s.embedder.Embed(ctx, req.Text)
	if err != nil {
		return fmt.Errorf("embed memory: %w", err)
	}

	return s.db.UpdateMemory(ctx, req.ID, userID, req.Text, vec)
}

// Search embeds the query and returns the user's memories ranked by
// similarity.
func (s *MemoryService) Search(ctx context.Context, userID string, req *memory.SearchRequest) ([]memory.Scored, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return s.db.SearchMemories(ctx, userID, vec, req.Limit)
}

// List returns all of a user's memories, newest first.
func (s *MemoryService) List(ctx context.Context, userID string) ([]memory.Memory, error) {
	return s.db.ListMemories(ctx, userID)
}
