package dto

// WebhookResponse is the body returned for every GitLab webhook delivery.
type WebhookResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	State     string `json:"state,omitempty"`
	Intent    string `json:"intent,omitempty"`
	NoteID    int64  `json:"note_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

const (
	WebhookStatusQueued  = "queued"
	WebhookStatusIgnored = "ignored"
)
