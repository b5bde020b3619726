package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/internal/domain"
)

type ConsumerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	DLQStream string // defaults to Stream + "_dlq"
	BatchSize int64
	Block     time.Duration
	// RequeueDelay is waited out before a failed entry goes back on the stream.
	RequeueDelay time.Duration
}

type Message struct {
	ID        string
	Event     domain.Event
	Attempt   int
	TraceID   string
	LastError string
	Raw       redis.XMessage
}

// MessageProcessor processes a queue message.
type MessageProcessor func(ctx context.Context, msg Message) error

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.DLQStream == "" {
		cfg.DLQStream = cfg.Stream + "_dlq"
	}

	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(context.Background()); err != nil { //nolint:contextcheck
		return nil, err
	}

	return consumer, nil
}

// ensureGroup creates the group at id "0" so entries written while no
// worker was running are still delivered.
func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Read blocks up to cfg.Block for entries never delivered to this group.
// Entries that cannot be parsed are acked and dropped.
func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "rubberduck.queue.consumer",
	})

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			msg, err := ParseMessage(entry)
			if err != nil {
				slog.ErrorContext(ctx, "dropping unparseable stream entry",
					"error", err,
					"raw_message_id", entry.ID,
					"stream", c.cfg.Stream)
				_ = c.Ack(ctx, Message{ID: entry.ID, Raw: entry})
				continue
			}
			messages = append(messages, msg)
		}
	}

	if len(messages) > 0 {
		slog.DebugContext(ctx, "read messages from stream",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

// Requeue acks msg and appends a copy with the attempt counter bumped, in
// one MULTI so a crash between the two cannot lose the event.
func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	values, err := messageValues(msg, msg.Attempt+1)
	if err != nil {
		return err
	}
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if c.cfg.RequeueDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.RequeueDelay):
		}
	}

	if err := c.moveTo(ctx, msg, c.cfg.Stream, values); err != nil {
		return fmt.Errorf("requeue: %w", err)
	}

	slog.InfoContext(ctx, "message requeued for retry",
		"next_attempt", msg.Attempt+1,
		"reason", errMsg)
	return nil
}

// SendDLQ acks msg and parks it on the dead letter stream with the error.
func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	values, err := messageValues(msg, msg.Attempt)
	if err != nil {
		return err
	}
	values["error"] = errMsg

	if err := c.moveTo(ctx, msg, c.cfg.DLQStream, values); err != nil {
		return fmt.Errorf("dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	slog.ErrorContext(ctx, "message sent to DLQ",
		"final_error", errMsg,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}

func (c *RedisConsumer) moveTo(ctx context.Context, msg Message, stream string, values map[string]any) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID)
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values})
		return nil
	})
	return err
}

// ParseMessage decodes a stream entry written by the producer, the requeue
// path or the DLQ.
func ParseMessage(msg redis.XMessage) (Message, error) {
	raw, err := parseString(msg.Values, "event")
	if err != nil {
		return Message{}, err
	}

	var event domain.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return Message{}, fmt.Errorf("decoding event: %w", err)
	}
	if event.Kind == "" {
		return Message{}, fmt.Errorf("event has no kind")
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	traceID, err := parseOptionalString(msg.Values, "trace_id")
	if err != nil {
		return Message{}, err
	}
	lastError, err := parseOptionalString(msg.Values, "last_error")
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:        msg.ID,
		Event:     event,
		Attempt:   attempt,
		TraceID:   traceID,
		LastError: lastError,
		Raw:       msg,
	}, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}

func messageValues(msg Message, attempt int) (map[string]any, error) {
	return eventValues(msg.Event, attempt, msg.TraceID)
}
