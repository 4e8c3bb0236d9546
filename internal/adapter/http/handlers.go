package http

import (
	"time"

	"github.com/Gladowsky-Labs/brane/internal/port/websearch"
	"github.com/Gladowsky-Labs/brane/internal/service"
)

// Handlers bundles the services the HTTP adapter exposes.
type Handlers struct {
	Auth     *service.AuthService
	Agent    *service.AgentService
	Memories *service.MemoryService
	Events   *service.EventService
	Searcher websearch.Searcher

	// ChatTimeout bounds a single chat request end to end, including all
	// model turns and tool calls.
	ChatTimeout time.Duration
}
