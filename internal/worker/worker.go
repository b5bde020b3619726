package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/queue"
)

// errPermanent marks failures that must not be retried.
var errPermanent = errors.New("permanent failure")

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer Consumer
	handler  EventHandler
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, handler EventHandler, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		handler:   handler,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "rubberduck.worker",
	})
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started", "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		_ = w.HandleMessage(ctx, msg)
	}

	return nil
}

// HandleMessage processes msg and settles it on the stream: ack on success
// or skip, requeue on a retryable failure, DLQ once attempts run out or the
// failure is permanent. Shared with the reclaimer.
func (w *Worker) HandleMessage(ctx context.Context, msg queue.Message) error {
	ctx = messageContext(ctx, msg)

	err := w.processMessageSafe(ctx, msg)
	if err == nil {
		return nil
	}

	slog.ErrorContext(ctx, "message processing failed",
		"error", err,
		"attempt", msg.Attempt)
	return w.handleFailedMessage(ctx, msg, err)
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs the event through the handler and acks it unless the
// handler failed.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_message")
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "processing message",
		"attempt", msg.Attempt,
		"last_error", msg.LastError)

	start := time.Now()
	result := w.handler.HandleEvent(ctx, msg.Event)

	if result.Status == brain.StatusError {
		sc.RecordError(result.Err)
		if result.Retryable() {
			return fmt.Errorf("%s: %w", result.State, result.Err)
		}
		return fmt.Errorf("%w: %s: %v", errPermanent, result.State, result.Err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer may redeliver; the bot-replied-last check keeps
		// that from producing a second reply.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "message processed",
		"status", result.Status,
		"state", result.State,
		"note_id", result.NoteID,
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) error {
	if errors.Is(err, errPermanent) || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "sending message to DLQ",
			"attempts", msg.Attempt,
			"permanent", errors.Is(err, errPermanent))
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
			return dlqErr
		}
		return err
	}

	slog.WarnContext(ctx, "requeuing failed message", "attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
		return requeueErr
	}
	return err
}

func messageContext(ctx context.Context, msg queue.Message) context.Context {
	fields := logger.LogFields{
		MessageID: logger.Ptr(msg.ID),
		ProjectID: logger.Ptr(msg.Event.ProjectID),
		EventKind: logger.Ptr(string(msg.Event.Kind)),
	}
	if msg.Event.IssueIID != 0 {
		fields.IssueIID = logger.Ptr(msg.Event.IssueIID)
	}
	if msg.Event.DeliveryID != "" {
		fields.DeliveryID = logger.Ptr(msg.Event.DeliveryID)
	}
	return logger.WithLogFields(ctx, fields)
}
