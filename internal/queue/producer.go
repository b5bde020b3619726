package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"basegraph.app/rubberduck/internal/domain"
)

// EventMessage is one webhook event on its way to the worker.
type EventMessage struct {
	Event   domain.Event
	TraceID string
	Attempt int
}

type Producer interface {
	// Enqueue appends msg to the stream and returns the stream entry id.
	Enqueue(ctx context.Context, msg EventMessage) (string, error)
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg EventMessage) (string, error) {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields, err := eventValues(msg.Event, attempt, msg.TraceID)
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue event: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued event",
		"message_id", id,
		"event_kind", msg.Event.Kind,
		"project_id", msg.Event.ProjectID,
		"issue_iid", msg.Event.IssueIID,
		"attempt", attempt)
	return id, nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

// eventValues flattens an event into stream fields. The full event travels
// as JSON; kind and ids are duplicated so XRANGE output stays readable.
func eventValues(event domain.Event, attempt int, traceID string) (map[string]any, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}

	values := map[string]any{
		"event":      string(payload),
		"event_kind": string(event.Kind),
		"project_id": event.ProjectID,
		"attempt":    attempt,
	}
	if event.IssueIID != 0 {
		values["issue_iid"] = event.IssueIID
	}
	if event.DeliveryID != "" {
		values["delivery_id"] = event.DeliveryID
	}
	if traceID != "" {
		values["trace_id"] = traceID
	}
	return values, nil
}
