package worker

import (
	"context"

	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// EventHandler runs one event to completion. Satisfied by brain.Orchestrator.
type EventHandler interface {
	HandleEvent(ctx context.Context, event domain.Event) brain.Result
}
