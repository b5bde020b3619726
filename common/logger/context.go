package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every log record emitted with the enriched context.
type LogFields struct {
	ProjectID  *int64  // GitLab project ID
	IssueIID   *int64  // Issue IID within the project
	EventKind  *string // issue, note, merge_request, push
	DeliveryID *string // X-Gitlab-Event-UUID of the webhook delivery
	MessageID  *string // Redis stream message ID
	Component  string  // e.g. "rubberduck.brain.orchestrator"
}

// WithLogFields enriches context with structured log fields.
// Newer non-nil values win over the ones already on the context.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.ProjectID != nil {
		result.ProjectID = next.ProjectID
	}
	if next.IssueIID != nil {
		result.IssueIID = next.IssueIID
	}
	if next.EventKind != nil {
		result.EventKind = next.EventKind
	}
	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr returns a pointer to v, handy for inline LogFields.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate shortens s to maxLen runes for log output, appending "...".
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
