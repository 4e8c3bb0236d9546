package service

import (
	"context"
	"encoding/json"

	"github.com/Gladowsky-Labs/brane/internal/port/websearch"
)

const (
	searchInternetDescription = "Search the internet for relevant information."
	searchInternetSchema      = `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query."}
		},
		"required": ["query"]
	}`
)

// searchError is the failure shape of the internet search tool. Unlike
// the store-backed tools it mirrors the upstream passthrough contract:
// success is the provider's raw payload, failure is {error, message}.
type searchError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type searchInternetTool struct {
	searcher websearch.Searcher
}

func (t searchInternetTool) execute(ctx context.Context, args json.RawMessage) any {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return searchError{Error: true, Message: "Invalid arguments for searchInternet: " + err.Error()}
	}
	if req.Query == "" {
		return searchError{Error: true, Message: "Failed to search: query is required"}
	}

	payload, err := t.searcher.Search(ctx, req.Query)
	if err != nil {
		return searchError{Error: true, Message: "Failed to search: " + err.Error()}
	}
	return payload
}
