package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gladowsky-Labs/brane/internal/config"
	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/user"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	search config.Search
}

// NewStore creates a new Store backed by the given connection pool.
// The search config bounds similarity query limits.
func NewStore(pool *pgxpool.Pool, search config.Search) *Store {
	return &Store{pool: pool, search: search}
}

// clampLimit applies the default when limit is unset and caps it at the
// configured maximum to bound query cost.
func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		return s.search.DefaultLimit
	}
	if limit > s.search.MaxLimit {
		return s.search.MaxLimit
	}
	return limit
}

// --- Users ---

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		u.ID, u.Email, u.Name, u.PasswordHash,
	).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`, id)

	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`, email)

	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user by email: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}
