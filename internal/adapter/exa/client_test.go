package exa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"title":"Go","text":"..."}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123")
	payload, err := c.Search(context.Background(), "golang")
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/search" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "key-123" {
		t.Fatalf("unexpected api key %q", gotKey)
	}
	if gotBody["query"] != "golang" || gotBody["type"] != "auto" {
		t.Fatalf("unexpected request body: %v", gotBody)
	}
	cont, _ := gotBody["contents"].(map[string]any)
	if cont["text"] != true {
		t.Fatalf("expected contents.text=true, got %v", gotBody["contents"])
	}

	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("payload not passed through raw: %v", err)
	}
	if _, ok := out["results"]; !ok {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestSearchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key")
	_, err := c.Search(context.Background(), "golang")
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestSearchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, "key")
	if _, err := c.Search(ctx, "golang"); err == nil {
		t.Fatal("expected context error")
	}
}
