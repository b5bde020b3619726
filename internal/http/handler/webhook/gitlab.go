package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/http/dto"
	"basegraph.app/rubberduck/internal/mapper"
	"basegraph.app/rubberduck/internal/queue"
)

// EventProcessor runs one event to completion inside the request.
type EventProcessor interface {
	HandleEvent(ctx context.Context, event domain.Event) brain.Result
}

// EventEnqueuer hands an event to the worker and returns the stream id.
type EventEnqueuer interface {
	Enqueue(ctx context.Context, msg queue.EventMessage) (string, error)
}

type GitLabWebhookHandler struct {
	secret    string
	mapper    mapper.EventMapper
	processor EventProcessor
	enqueuer  EventEnqueuer
}

// NewGitLabWebhookHandler builds the handler. With a non-nil enqueuer events
// are queued for the worker; otherwise processor runs them synchronously.
// An empty secret disables X-Gitlab-Token verification.
func NewGitLabWebhookHandler(secret string, mapper mapper.EventMapper, processor EventProcessor, enqueuer EventEnqueuer) *GitLabWebhookHandler {
	return &GitLabWebhookHandler{
		secret:    secret,
		mapper:    mapper,
		processor: processor,
		enqueuer:  enqueuer,
	}
}

func (h *GitLabWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Component: "rubberduck.http.webhook.gitlab",
	})

	if h.secret != "" {
		token := c.GetHeader("X-Gitlab-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
			slog.WarnContext(ctx, "rejected gitlab webhook with invalid token")
			c.JSON(http.StatusForbidden, dto.WebhookResponse{Status: string(brain.StatusError), Message: "invalid webhook token"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Status: string(brain.StatusError), Message: "failed to read request body"})
		return
	}

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	event, err := h.mapper.Map(ctx, body, headers)
	if err != nil {
		if errors.Is(err, mapper.ErrUnsupportedEvent) {
			slog.InfoContext(ctx, "ignoring unsupported gitlab event",
				"gitlab_event", c.GetHeader("X-Gitlab-Event"),
				"error", err)
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: dto.WebhookStatusIgnored, Message: "event type not supported"})
			return
		}
		slog.WarnContext(ctx, "invalid gitlab webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, dto.WebhookResponse{Status: string(brain.StatusError), Message: err.Error()})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProjectID:  logger.Ptr(event.ProjectID),
		EventKind:  logger.Ptr(string(event.Kind)),
		DeliveryID: optional(event.DeliveryID),
	})
	if event.IssueIID != 0 {
		ctx = logger.WithLogFields(ctx, logger.LogFields{IssueIID: logger.Ptr(event.IssueIID)})
	}

	slog.InfoContext(ctx, "received gitlab webhook",
		"action", event.Action,
		"author", event.Author)

	// The duck's own notes come back as note hooks; drop them before they
	// cost a queue round trip.
	if event.Kind == domain.EventKindNote && brain.IsSelfComment(event.Body) {
		slog.DebugContext(ctx, "ignoring self comment at ingress")
		c.JSON(http.StatusOK, dto.WebhookResponse{
			Status:  string(brain.StatusSkipped),
			Message: "comment was posted by the bot",
			State:   string(brain.StateSkippedSelfComment),
		})
		return
	}

	if h.enqueuer != nil {
		msgID, err := h.enqueuer.Enqueue(ctx, queue.EventMessage{
			Event:   event,
			TraceID: logger.TraceIDFromContext(ctx),
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to enqueue gitlab event", "error", err)
			c.JSON(http.StatusInternalServerError, dto.WebhookResponse{Status: string(brain.StatusError), Message: "failed to enqueue event"})
			return
		}
		c.JSON(http.StatusAccepted, dto.WebhookResponse{Status: dto.WebhookStatusQueued, MessageID: msgID})
		return
	}

	result := h.processor.HandleEvent(ctx, event)
	resp := dto.WebhookResponse{
		Status:  string(result.Status),
		Message: result.Message,
		State:   string(result.State),
		Intent:  string(result.Intent),
		NoteID:  result.NoteID,
	}

	if result.Status == brain.StatusError {
		slog.ErrorContext(ctx, "gitlab event failed",
			"state", result.State,
			"error", result.Err)
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	slog.InfoContext(ctx, "gitlab webhook processed",
		"status", result.Status,
		"state", result.State,
		"note_id", result.NoteID)
	c.JSON(http.StatusOK, resp)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
