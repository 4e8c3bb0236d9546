package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Gladowsky-Labs/brane/internal/adapter/exa"
	branehttp "github.com/Gladowsky-Labs/brane/internal/adapter/http"
	braneopenai "github.com/Gladowsky-Labs/brane/internal/adapter/openai"
	braneotel "github.com/Gladowsky-Labs/brane/internal/adapter/otel"
	"github.com/Gladowsky-Labs/brane/internal/adapter/postgres"
	"github.com/Gladowsky-Labs/brane/internal/adapter/ristretto"
	"github.com/Gladowsky-Labs/brane/internal/adapter/ws"
	"github.com/Gladowsky-Labs/brane/internal/config"
	"github.com/Gladowsky-Labs/brane/internal/logger"
	"github.com/Gladowsky-Labs/brane/internal/middleware"
	"github.com/Gladowsky-Labs/brane/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"chat_model", cfg.OpenAI.ChatModel,
		"embedding_model", cfg.OpenAI.EmbeddingModel,
		"embedding_dimensions", cfg.OpenAI.EmbeddingDimensions,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// The vector columns are fixed-width; refuse to start when the schema
	// disagrees with the configured embedding size.
	if err := postgres.CheckVectorDimensions(ctx, pool, cfg.OpenAI.EmbeddingDimensions); err != nil {
		return fmt.Errorf("vector dimensions: %w", err)
	}

	revoked, err := ristretto.New(16 << 20) // 16 MB for revoked token JTIs
	if err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	defer revoked.Close()

	// --- Adapters ---

	store := postgres.NewStore(pool, cfg.Search)
	embedder := braneopenai.NewEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimensions)
	provider := braneopenai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	searcher := exa.NewClient(cfg.Exa.BaseURL, cfg.Exa.APIKey)
	hub := ws.NewHub()
	metrics, err := braneotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	authSvc := service.NewAuthService(store, revoked, &cfg.Auth)
	memorySvc := service.NewMemoryService(store, embedder)
	eventSvc := service.NewEventService(store, embedder)
	agentSvc := service.NewAgentService(provider, hub, metrics, cfg.Agent.MaxSteps)

	// --- HTTP ---

	handlers := &branehttp.Handlers{
		Auth:        authSvc,
		Agent:       agentSvc,
		Memories:    memorySvc,
		Events:      eventSvc,
		Searcher:    searcher,
		ChatTimeout: cfg.Server.ChatTimeout,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(5*time.Minute, 30*time.Minute)
	defer stopCleanup()

	r := chi.NewRouter()

	r.Use(branehttp.CORS(cfg.Server.CORSOrigin))
	r.Use(branehttp.SecurityHeaders)
	r.Use(branehttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(limiter.Handler)
	r.Use(braneotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.Auth(authSvc))

	r.Get("/health", healthHandler(hub))
	r.Get("/ws", hub.HandleWS)

	branehttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Writes stay open for the whole chat stream.
		WriteTimeout: cfg.Server.ChatTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports service liveness and the active WebSocket count.
func healthHandler(hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		Connections int    `json:"ws_connections"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:      "ok",
			Connections: hub.ConnectionCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
