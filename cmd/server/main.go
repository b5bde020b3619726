package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/rubberduck/common/id"
	"basegraph.app/rubberduck/common/llm"
	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/common/otel"
	"basegraph.app/rubberduck/core/config"
	"basegraph.app/rubberduck/core/db"
	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/http/handler"
	"basegraph.app/rubberduck/internal/http/handler/webhook"
	"basegraph.app/rubberduck/internal/http/middleware"
	httprouter "basegraph.app/rubberduck/internal/http/router"
	"basegraph.app/rubberduck/internal/mapper"
	"basegraph.app/rubberduck/internal/queue"
	"basegraph.app/rubberduck/internal/service/issue_tracker"
	"basegraph.app/rubberduck/internal/snapshot"
	"basegraph.app/rubberduck/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "rubber duck starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"async", cfg.Pipeline.Async)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	orchestrator, err := newOrchestrator(cfg, database)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	checks := map[string]handler.Check{
		"database": database.Ping,
	}

	var enqueuer webhook.EventEnqueuer
	if cfg.Pipeline.Async {
		redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

		producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, nil)
		defer producer.Close()

		enqueuer = producer
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, httprouter.Handlers{
		Health:  handler.NewHealthHandler(checks),
		Webhook: webhook.NewGitLabWebhookHandler(cfg.GitLab.WebhookSecret, mapper.NewGitLabEventMapper(), orchestrator, enqueuer),
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Synchronous webhooks wait on the tracker and the model.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newOrchestrator(cfg config.Config, database *db.DB) (*brain.Orchestrator, error) {
	tracker, err := issue_tracker.NewGitLabIssueTracker(cfg.GitLab.URL, cfg.GitLab.Token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	llmClient, err := llm.New(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	return brain.NewOrchestrator(
		brain.OrchestratorConfig{
			TriggerPhrase:     cfg.Duck.TriggerPhrase,
			ProtectedBranches: cfg.Duck.ProtectedBranches,
			MaxContextFiles:   cfg.Duck.MaxContextFiles,
		},
		tracker,
		brain.NewLLMGenerator(llmClient),
		snapshot.NewBuilder(tracker),
		store.NewStores(database.Queries()),
		brain.NewTxRunner(database),
	), nil
}

func setupRouter(cfg config.Config, handlers httprouter.Handlers) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, handlers)

	return router
}

const banner = `
 ____  _   _ ____  ____  _____ ____    ____  _   _  ____ _  __
|  _ \| | | | __ )| __ )| ____|  _ \  |  _ \| | | |/ ___| |/ /
| |_) | | | |  _ \|  _ \|  _| | |_) | | | | | | | | |   | ' /
|  _ <| |_| | |_) | |_) | |___|  _ <  | |_| | |_| | |___| . \
|_| \_\\___/|____/|____/|_____|_| \_\ |____/ \___/ \____|_|\_\
`
