package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/rubberduck/common/id"
	"basegraph.app/rubberduck/common/llm"
	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/common/otel"
	"basegraph.app/rubberduck/core/config"
	"basegraph.app/rubberduck/core/db"
	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/queue"
	"basegraph.app/rubberduck/internal/service/issue_tracker"
	"basegraph.app/rubberduck/internal/snapshot"
	"basegraph.app/rubberduck/internal/store"
	"basegraph.app/rubberduck/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "rubber duck worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node id than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer,
		DLQStream: cfg.Pipeline.RedisDLQStream,
		// One event at a time keeps replies on a thread in arrival order.
		BatchSize:    1,
		Block:        5 * time.Second,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	orchestrator, err := newOrchestrator(cfg, database)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, orchestrator, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:        cfg.Pipeline.RedisStream,
		Group:         cfg.Pipeline.RedisGroup,
		Consumer:      cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:       5 * time.Minute,
		Interval:      1 * time.Minute,
		BatchSize:     10,
		MaxDeliveries: int64(cfg.Pipeline.MaxAttempts),
	}, consumer, w.HandleMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first, it stops quickly
	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
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

const banner = `
 ____  _   _  ____ _  __ __        _____  ____  _  _______ ____
|  _ \| | | |/ ___| |/ / \ \      / / _ \|  _ \| |/ / ____|  _ \
| | | | | | | |   | ' /   \ \ /\ / / | | | |_) | ' /|  _| | |_) |
| |_| | |_| | |___| . \    \ V  V /| |_| |  _ <| . \| |___|  _ <
|____/ \___/ \____|_|\_\    \_/\_/  \___/|_| \_\_|\_\_____|_| \_\
`
