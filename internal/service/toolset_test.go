package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Gladowsky-Labs/brane/internal/domain/chat"
	"github.com/Gladowsky-Labs/brane/internal/domain/event"
	"github.com/Gladowsky-Labs/brane/internal/domain/memory"
)

func newTestToolset(store *fakeStore, searcher *fakeSearcher) *Toolset {
	embedder := &fakeEmbedder{}
	return NewToolset("user-1", ToolsetDeps{
		Memories: NewMemoryService(store, embedder),
		Events:   NewEventService(store, embedder),
		Searcher: searcher,
	})
}

func execute(t *testing.T, ts *Toolset, name, args string) map[string]any {
	t.Helper()
	res := ts.Execute(context.Background(), chat.ToolCall{
		ID:   "call-1",
		Name: name,
		Args: json.RawMessage(args),
	})
	if res.ToolCallID != "call-1" || res.Name != name {
		t.Fatalf("result identity mismatch: %+v", res)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatalf("tool result is not JSON: %v\n%s", err, res.Content)
	}
	return out
}

func TestExecuteUnknownTool(t *testing.T) {
	ts := newTestToolset(newFakeStore(), &fakeSearcher{})

	out := execute(t, ts, "deleteEverything", `{}`)
	if out["success"] != false {
		t.Fatalf("expected failure envelope, got %v", out)
	}
	if !strings.Contains(out["message"].(string), "Unknown tool") {
		t.Fatalf("unexpected message: %v", out["message"])
	}
}

func TestStoreMemory(t *testing.T) {
	store := newFakeStore()
	ts := newTestToolset(store, &fakeSearcher{})

	out := execute(t, ts, ToolStoreMemory, `{"text":"likes black coffee"}`)
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if out["message"] != "Memory stored successfully with ID 1" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
	if out["memoryId"] != float64(1) {
		t.Fatalf("unexpected memoryId: %v", out["memoryId"])
	}
	if store.memories[1].UserID != "user-1" {
		t.Fatalf("memory not bound to calling user: %+v", store.memories[1])
	}
}

func TestStoreMemoryValidation(t *testing.T) {
	ts := newTestToolset(newFakeStore(), &fakeSearcher{})

	out := execute(t, ts, ToolStoreMemory, `{"text":""}`)
	if out["success"] != false {
		t.Fatalf("expected failure, got %v", out)
	}
	msg := out["message"].(string)
	if !strings.HasPrefix(msg, "Failed to store memory: ") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if strings.Contains(msg, "validation") {
		t.Fatalf("sentinel suffix leaked into tool message: %q", msg)
	}
}

func TestSearchMemoriesRounding(t *testing.T) {
	store := newFakeStore()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.memoryHits = []memory.Scored{
		{Memory: memory.Memory{ID: 7, Text: "a", CreatedAt: created}, Similarity: 0.876},
	}
	ts := newTestToolset(store, &fakeSearcher{})

	out := execute(t, ts, ToolSearchMemories, `{"query":"coffee"}`)
	if out["message"] != "Found 1 relevant memory" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
	hits := out["memories"].([]any)
	hit := hits[0].(map[string]any)
	if hit["similarity"] != float64(88) {
		t.Fatalf("expected similarity 88, got %v", hit["similarity"])
	}
	if hit["createdAt"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected createdAt: %v", hit["createdAt"])
	}
}

func TestSearchMemoriesEmpty(t *testing.T) {
	ts := newTestToolset(newFakeStore(), &fakeSearcher{})

	out := execute(t, ts, ToolSearchMemories, `{"query":"anything"}`)
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if out["message"] != "No relevant memories found" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
	if hits, ok := out["memories"].([]any); !ok || len(hits) != 0 {
		t.Fatalf("expected empty array, got %v", out["memories"])
	}
}

func TestUpdateMemoryWrongOwner(t *testing.T) {
	store := newFakeStore()
	_, _ = store.InsertMemory(context.Background(),
		&memory.Memory{UserID: "someone-else", Text: "private"}, nil)
	ts := newTestToolset(store, &fakeSearcher{})

	out := execute(t, ts, ToolUpdateMemory, `{"id":1,"text":"stolen"}`)
	if out["success"] != false {
		t.Fatalf("expected failure, got %v", out)
	}
	if out["message"] != "Memory not found or you do not have permission to update it" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
	if store.memories[1].Text != "private" {
		t.Fatal("memory text was modified across user boundary")
	}
}

func TestStoreEventDefaults(t *testing.T) {
	store := newFakeStore()
	ts := newTestToolset(store, &fakeSearcher{})

	out := execute(t, ts, ToolStoreEvent,
		`{"title":"Dentist","description":"Checkup","date":"2026-09-15T10:00:00Z"}`)
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	e := store.events[1]
	if e.Type != event.TypeReminder {
		t.Fatalf("expected default type reminder, got %s", e.Type)
	}
	if e.Location != "none" {
		t.Fatalf("expected default location none, got %s", e.Location)
	}
	if !e.EndTime.Equal(e.StartTime) {
		t.Fatal("expected end time to mirror start time on insert")
	}
	if e.Status != event.StatusUpcoming {
		t.Fatalf("expected status upcoming, got %s", e.Status)
	}
}

func TestUpdateEventNoUpdates(t *testing.T) {
	store := newFakeStore()
	_, _ = store.InsertEvent(context.Background(), &event.Event{UserID: "user-1", Title: "t"}, nil)
	ts := newTestToolset(store, &fakeSearcher{})

	out := execute(t, ts, ToolUpdateEvent, `{"id":1}`)
	if out["success"] != false {
		t.Fatalf("expected failure, got %v", out)
	}
	if out["message"] != "No updates provided" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
}

func TestUpdateEventReembedsOnTitleChange(t *testing.T) {
	store := newFakeStore()
	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	_, _ = store.InsertEvent(context.Background(), &event.Event{
		UserID: "user-1", Title: "Old", Description: "Desc",
		StartTime: start, EndTime: start,
		Type: event.TypeMeeting, Status: event.StatusUpcoming, Location: "office",
	}, nil)

	embedder := &fakeEmbedder{}
	ts := NewToolset("user-1", ToolsetDeps{
		Memories: NewMemoryService(store, embedder),
		Events:   NewEventService(store, embedder),
		Searcher: &fakeSearcher{},
	})

	out := execute(t, ts, ToolUpdateEvent, `{"id":1,"title":"New"}`)
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	want := event.EmbeddingText("New", "Desc", start, "office", event.TypeMeeting)
	if len(embedder.texts) != 1 || embedder.texts[0] != want {
		t.Fatalf("expected merged embedding text %q, got %v", want, embedder.texts)
	}
}

func TestUpdateEventLocationOnlySkipsEmbedding(t *testing.T) {
	store := newFakeStore()
	_, _ = store.InsertEvent(context.Background(), &event.Event{
		UserID: "user-1", Title: "T", Description: "D",
	}, nil)

	embedder := &fakeEmbedder{}
	ts := NewToolset("user-1", ToolsetDeps{
		Memories: NewMemoryService(store, embedder),
		Events:   NewEventService(store, embedder),
		Searcher: &fakeSearcher{},
	})

	out := execute(t, ts, ToolUpdateEvent, `{"id":1,"location":"home"}`)
	if out["success"] != true {
		t.Fatalf("expected success, got %v", out)
	}
	if len(embedder.texts) != 0 {
		t.Fatalf("location-only update must not regenerate the embedding, embedded %v", embedder.texts)
	}
	if store.events[1].Location != "home" {
		t.Fatalf("location not updated: %+v", store.events[1])
	}
}

func TestSearchInternetPassthrough(t *testing.T) {
	searcher := &fakeSearcher{payload: json.RawMessage(`{"results":[{"title":"x"}]}`)}
	ts := newTestToolset(newFakeStore(), searcher)

	out := execute(t, ts, ToolSearchInternet, `{"query":"weather"}`)
	if _, hasResults := out["results"]; !hasResults {
		t.Fatalf("expected raw provider payload, got %v", out)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "weather" {
		t.Fatalf("unexpected queries: %v", searcher.queries)
	}
}

func TestSearchInternetFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("upstream 500")}
	ts := newTestToolset(newFakeStore(), searcher)

	out := execute(t, ts, ToolSearchInternet, `{"query":"weather"}`)
	if out["error"] != true {
		t.Fatalf("expected error shape, got %v", out)
	}
	if out["message"] != "Failed to search: upstream 500" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
}

func TestSearchInternetEmptyQuery(t *testing.T) {
	ts := newTestToolset(newFakeStore(), &fakeSearcher{})

	out := execute(t, ts, ToolSearchInternet, `{"query":""}`)
	if out["error"] != true || out["message"] != "Failed to search: query is required" {
		t.Fatalf("unexpected result: %v", out)
	}
}
