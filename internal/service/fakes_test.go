package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/event"
	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
	"github.com/Gladowsky-Labs/brane/internal/domain/user"
	"github.com/Gladowsky-Labs/brane/internal/port/database"
	"github.com/Gladowsky-Labs/brane/internal/port/llm"
)

// fakeStore is an in-memory database.Store. Rows are keyed by id; every
// lookup applies the user predicate the way the real store does.
type fakeStore struct {
	memories map[int64]*memory.Memory
	events   map[int64]*event.Event
	users    map[string]*user.User
	nextID   int64

	memoryHits []memory.Scored
	eventHits  []event.Scored
	searchErr  error

	lastSearchLimit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		memories: make(map[int64]*memory.Memory),
		events:   make(map[int64]*event.Event),
		users:    make(map[string]*user.User),
		nextID:   1,
	}
}

func (s *fakeStore) InsertMemory(_ context.Context, m *memory.Memory, _ []float32) (int64, error) {
	id := s.nextID
	s.nextID++
	cp := *m
	cp.ID = id
	cp.CreatedAt = time.Now()
	s.memories[id] = &cp
	return id, nil
}

func (s *fakeStore) UpdateMemory(_ context.Context, id int64, userID, text string, _ []float32) error {
	m, ok := s.memories[id]
	if !ok || m.UserID != userID {
		return domain.ErrNotFound
	}
	m.Text = text
	return nil
}

func (s *fakeStore) SearchMemories(_ context.Context, _ string, _ []float32, limit int) ([]memory.Scored, error) {
	s.lastSearchLimit = limit
	return s.memoryHits, s.searchErr
}

func (s *fakeStore) ListMemories(_ context.Context, userID string) ([]memory.Memory, error) {
	var out []memory.Memory
	for _, m := range s.memories {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertEvent(_ context.Context, e *event.Event, _ []float32) (int64, error) {
	id := s.nextID
	s.nextID++
	cp := *e
	cp.ID = id
	cp.CreatedAt = time.Now()
	s.events[id] = &cp
	return id, nil
}

func (s *fakeStore) UpdateEvent(ctx context.Context, userID string, req *event.UpdateRequest, embed database.EmbedFunc) error {
	e, ok := s.events[req.ID]
	if !ok || e.UserID != userID {
		return domain.ErrNotFound
	}
	merged := req.Apply(*e)
	if req.NeedsReembed() {
		text := event.EmbeddingText(merged.Title, merged.Description, merged.StartTime, merged.Location, merged.Type)
		if _, err := embed(ctx, text); err != nil {
			return err
		}
	}
	s.events[req.ID] = &merged
	return nil
}

func (s *fakeStore) SearchEvents(_ context.Context, _ string, _ []float32, limit int) ([]event.Scored, error) {
	s.lastSearchLimit = limit
	return s.eventHits, s.searchErr
}

func (s *fakeStore) ListEvents(_ context.Context, userID string) ([]event.Event, error) {
	var out []event.Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateUser(_ context.Context, u *user.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	cp := *u
	cp.CreatedAt = time.Now()
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeStore) GetUser(_ context.Context, id string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

// fakeEmbedder returns a constant vector and records the texts it saw.
type fakeEmbedder struct {
	texts []string
	err   error
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) Dimensions() int { return 3 }

// fakeProvider plays back scripted turns; when the script runs out it
// repeats the last turn, which lets budget tests request tools forever.
type fakeProvider struct {
	turns []providerTurn
	n     int
}

type providerTurn struct {
	events []llm.StreamEvent
	err    error
}

func (p *fakeProvider) Stream(_ context.Context, _ *llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	i := p.n
	if i >= len(p.turns) {
		i = len(p.turns) - 1
	}
	p.n++
	turn := p.turns[i]
	if turn.err != nil {
		return nil, turn.err
	}
	ch := make(chan llm.StreamEvent, len(turn.events)+1)
	for _, ev := range turn.events {
		ch <- ev
	}
	ch <- llm.StreamEvent{Type: llm.EventTypeDone}
	close(ch)
	return ch, nil
}

// fakeSearcher returns a canned payload or error.
type fakeSearcher struct {
	payload json.RawMessage
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string) (json.RawMessage, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}
