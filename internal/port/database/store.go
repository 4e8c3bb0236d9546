// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Gladowsky-Labs/brane/internal/domain/event"
	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
	"github.com/Gladowsky-Labs/brane/internal/domain/user"
)

// EmbedFunc produces the embedding for the given text. The store calls it
// inside the update transaction so a regenerated embedding and the field
// changes that caused it commit together.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Store is the port interface for durable storage. Every memory and event
// operation takes the owning user id as a mandatory predicate; update
// operations return domain.ErrNotFound for a wrong id and a wrong owner
// alike.
type Store interface {
	// Memories
	InsertMemory(ctx context.Context, m *memory.Memory, embedding []float32) (int64, error)
	UpdateMemory(ctx context.Context, id int64, userID, text string, embedding []float32) error
	SearchMemories(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]memory.Scored, error)
	ListMemories(ctx context.Context, userID string) ([]memory.Memory, error)

	// Events
	InsertEvent(ctx context.Context, e *event.Event, embedding []float32) (int64, error)
	UpdateEvent(ctx context.Context, userID string, req *event.UpdateRequest, embed EmbedFunc) error
	SearchEvents(ctx context.Context, userID string, queryEmbedding []float32, limit int) ([]event.Scored, error)
	ListEvents(ctx context.Context, userID string) ([]event.Event, error)

	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}
