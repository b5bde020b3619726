package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/internal/queue"
)

type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
	// MaxDeliveries caps how often one entry is handed out before it is
	// parked in the DLQ without another attempt. Zero disables the cap.
	MaxDeliveries int64
}

// RedisReclaimer periodically reclaims stale pending messages: a worker that
// dies after XREADGROUP but before XACK leaves its entries pending forever
// otherwise.
type RedisReclaimer struct {
	client    *redis.Client
	cfg       RedisReclaimerConfig
	consumer  Consumer
	processor queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRedisReclaimer(client *redis.Client, cfg RedisReclaimerConfig, consumer Consumer, processor queue.MessageProcessor) *RedisReclaimer {
	return &RedisReclaimer{
		client:    client,
		cfg:       cfg,
		consumer:  consumer,
		processor: processor,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the reclaimer loop. Blocks until Stop() is called.
func (r *RedisReclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "rubberduck.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"stream", r.cfg.Stream,
		"group", r.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.reclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *RedisReclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// reclaimOnce claims every entry idle for longer than MinIdle. Entries
// handed out more than MaxDeliveries times are parked in the DLQ instead of
// being processed again.
func (r *RedisReclaimer) reclaimOnce(ctx context.Context) error {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("xpending: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	deliveries := make(map[string]int64, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		deliveries[p.ID] = p.RetryCount
		ids = append(ids, p.ID)
	}

	// XCLAIM re-checks MinIdle, so entries another reclaimer took in the
	// meantime are not returned.
	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return fmt.Errorf("xclaim: %w", err)
	}

	slog.InfoContext(ctx, "reclaimed stale pending messages",
		"pending", len(pending),
		"claimed", len(claimed))

	for _, entry := range claimed {
		if err := r.handleClaimed(ctx, entry, deliveries[entry.ID]); err != nil {
			slog.ErrorContext(ctx, "failed to process reclaimed message",
				"error", err,
				"message_id", entry.ID)
		}
	}

	return nil
}

func (r *RedisReclaimer) handleClaimed(ctx context.Context, entry redis.XMessage, deliveries int64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: logger.Ptr(entry.ID),
	})

	msg, err := queue.ParseMessage(entry)
	if err != nil {
		slog.ErrorContext(ctx, "dropping unparseable reclaimed entry", "error", err)
		return r.consumer.Ack(ctx, queue.Message{ID: entry.ID, Raw: entry})
	}

	if r.cfg.MaxDeliveries > 0 && deliveries > r.cfg.MaxDeliveries {
		return r.consumer.SendDLQ(ctx, msg, fmt.Sprintf("delivered %d times without ack", deliveries))
	}

	slog.InfoContext(ctx, "processing reclaimed message", "deliveries", deliveries)

	start := time.Now()
	if err := r.processor(ctx, msg); err != nil {
		return err
	}

	slog.DebugContext(ctx, "reclaimed message processed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
