// Package memory defines the user memory domain model.
package memory

import (
	"fmt"
	"time"

	"github.com/Gladowsky-Labs/brane/internal/domain"
)

// Memory is a single remembered fact about a user. The stored embedding is
// always the embedding of the current Text value.
type Memory struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Scored is a memory annotated with its similarity to a search query.
// Similarity is 1 - cosine distance, higher is more relevant.
type Scored struct {
	Memory
	Similarity float64 `json:"similarity"`
}

// CreateRequest is the input for storing a new memory.
type CreateRequest struct {
	Text string `json:"text"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("text is required: %w", domain.ErrValidation)
	}
	return nil
}

// UpdateRequest is the input for replacing a memory's text.
type UpdateRequest struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Validate checks that the UpdateRequest has all required fields.
func (r *UpdateRequest) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("id must be a positive integer: %w", domain.ErrValidation)
	}
	if r.Text == "" {
		return fmt.Errorf("text is required: %w", domain.ErrValidation)
	}
	return nil
}

// SearchRequest is the input for a vector similarity search over memories.
// A zero Limit means the configured default applies.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate checks that the SearchRequest has all required fields.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %w", domain.ErrValidation)
	}
	return nil
}
