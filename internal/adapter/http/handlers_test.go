package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Gladowsky-Labs/brane/internal/config"
	"github.com/Gladowsky-Labs/brane/internal/domain"
	"github.com/Gladowsky-Labs/brane/internal/domain/event"
	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
	"github.com/Gladowsky-Labs/brane/internal/domain/user"
	"github.com/Gladowsky-Labs/brane/internal/middleware"
	"github.com/Gladowsky-Labs/brane/internal/port/database"
	"github.com/Gladowsky-Labs/brane/internal/port/llm"
	"github.com/Gladowsky-Labs/brane/internal/service"
)

// stubStore is a minimal database.Store for handler tests.
type stubStore struct {
	users    map[string]*user.User
	memories []memory.Memory
	events   []event.Event
}

func newStubStore() *stubStore {
	return &stubStore{users: make(map[string]*user.User)}
}

func (s *stubStore) InsertMemory(_ context.Context, m *memory.Memory, _ []float32) (int64, error) {
	s.memories = append(s.memories, *m)
	return int64(len(s.memories)), nil
}

func (s *stubStore) UpdateMemory(context.Context, int64, string, string, []float32) error {
	return domain.ErrNotFound
}

func (s *stubStore) SearchMemories(context.Context, string, []float32, int) ([]memory.Scored, error) {
	return nil, nil
}

func (s *stubStore) ListMemories(_ context.Context, userID string) ([]memory.Memory, error) {
	var out []memory.Memory
	for _, m := range s.memories {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubStore) InsertEvent(_ context.Context, e *event.Event, _ []float32) (int64, error) {
	s.events = append(s.events, *e)
	return int64(len(s.events)), nil
}

func (s *stubStore) UpdateEvent(context.Context, string, *event.UpdateRequest, database.EmbedFunc) error {
	return domain.ErrNotFound
}

func (s *stubStore) SearchEvents(context.Context, string, []float32, int) ([]event.Scored, error) {
	return nil, nil
}

func (s *stubStore) ListEvents(_ context.Context, userID string) ([]event.Event, error) {
	var out []event.Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubStore) CreateUser(_ context.Context, u *user.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubStore) GetUser(_ context.Context, id string) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (stubEmbedder) Dimensions() int { return 1 }

type stubCache struct{ m map[string][]byte }

func (c *stubCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.m[key] = value
	return nil
}

func (c *stubCache) Delete(_ context.Context, key string) error {
	delete(c.m, key)
	return nil
}

// stubProvider emits one text-only turn per Stream call.
type stubProvider struct{ text string }

func (p *stubProvider) Stream(context.Context, *llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	ch := make(chan llm.StreamEvent, 2)
	ch <- llm.StreamEvent{Type: llm.EventTypeText, Text: p.text}
	ch <- llm.StreamEvent{Type: llm.EventTypeDone}
	close(ch)
	return ch, nil
}

type stubSearcher struct{}

func (stubSearcher) Search(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := newStubStore()
	authSvc := service.NewAuthService(store, &stubCache{m: make(map[string][]byte)}, &config.Auth{
		JWTSecret:         "test-secret",
		BcryptCost:        4,
		AccessTokenExpiry: time.Hour,
	})

	handlers := &Handlers{
		Auth:        authSvc,
		Agent:       service.NewAgentService(&stubProvider{text: "hello"}, nil, nil, 10),
		Memories:    service.NewMemoryService(store, stubEmbedder{}),
		Events:      service.NewEventService(store, stubEmbedder{}),
		Searcher:    stubSearcher{},
		ChatTimeout: 5 * time.Second,
	}

	r := chi.NewRouter()
	r.Use(middleware.Auth(authSvc))
	MountRoutes(r, handlers)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func signupAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, err := http.Post(srv.URL+"/api/v1/auth/signup", "application/json",
		strings.NewReader(`{"email":"ada@example.com","name":"Ada","password":"correct horse"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/v1/auth/login", "application/json",
		strings.NewReader(`{"email":"ada@example.com","password":"correct horse"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}

	var out user.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.AccessToken == "" {
		t.Fatal("no access token")
	}
	return out.AccessToken
}

func authedRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/chat", "/api/v1/memories", "/api/v1/events", "/api/v1/auth/me"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestSignupLoginMe(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := authedRequest(t, http.MethodGet, srv.URL+"/api/v1/auth/me", token, "")
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status %d", resp.StatusCode)
	}

	var u user.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		t.Fatal(err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	_ = signupAndLogin(t, srv)

	resp, err := http.Post(srv.URL+"/api/v1/auth/signup", "application/json",
		strings.NewReader(`{"email":"ada@example.com","name":"Ada II","password":"correct horse"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestChatRejectsMalformedHistory(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	cases := []string{
		`{"messages":[]}`,
		`{"messages":[{"role":"narrator","content":"x"}]}`,
		`{"messages":[{"role":"tool","tool_results":[{"tool_call_id":"c9","name":"x","content":"{}"}]},{"role":"user","content":"hi"}]}`,
	}
	for _, body := range cases {
		resp := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/chat", token, body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestChatStreamsSSE(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/chat", token,
		`{"messages":[{"role":"user","content":"hi"}]}`)
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var sawText, sawDone bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev service.RunEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad event line %q: %v", line, err)
		}
		switch ev.Type {
		case service.RunEventText:
			sawText = true
		case service.RunEventDone:
			sawDone = true
			if ev.Text != "hello" {
				t.Fatalf("unexpected final text %q", ev.Text)
			}
		}
	}
	if !sawText || !sawDone {
		t.Fatalf("incomplete stream: text=%v done=%v", sawText, sawDone)
	}
}

func TestListMemoriesEmptyArray(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := authedRequest(t, http.MethodGet, srv.URL+"/api/v1/memories", token, "")
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var body string
	{
		b := new(strings.Builder)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			b.WriteString(scanner.Text())
		}
		body = strings.TrimSpace(b.String())
	}
	if body != "[]" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := authedRequest(t, http.MethodPost, srv.URL+"/api/v1/auth/logout", token, "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status %d", resp.StatusCode)
	}

	resp = authedRequest(t, http.MethodGet, srv.URL+"/api/v1/auth/me", token, "")
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}
