package model

import "time"

// Issue is an audit copy of a GitLab issue the duck has looked at. It never
// feeds back into session decisions.
type Issue struct {
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastAIResponseAt  *time.Time `json:"last_ai_response_at,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Title             string     `json:"title"`
	State             string     `json:"state"`
	Author            string     `json:"author"`
	WebURL            string     `json:"web_url"`
	Labels            []string   `json:"labels"`
	ID                int64      `json:"id"`
	ExternalProjectID int64      `json:"external_project_id"`
	IssueIID          int64      `json:"issue_iid"`
	IsSession         bool       `json:"is_session"`
}
