package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"basegraph.app/rubberduck/internal/domain"
)

const (
	headerEvent      = "X-Gitlab-Event"
	headerDeliveryID = "X-Gitlab-Event-UUID"
)

type GitLabEventMapper struct{}

func NewGitLabEventMapper() *GitLabEventMapper {
	return &GitLabEventMapper{}
}

func (m *GitLabEventMapper) Map(ctx context.Context, body []byte, headers map[string]string) (domain.Event, error) {
	var payload gitlabWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	headerEventType := header(headers, headerEvent)
	kind := m.mapGitLabEvent(headerEventType, payload.ObjectKind)
	if kind == "" {
		return domain.Event{}, fmt.Errorf("%w: header=%q object_kind=%q", ErrUnsupportedEvent, headerEventType, payload.ObjectKind)
	}

	event := domain.Event{
		Kind:       kind,
		ProjectID:  payload.Project.ID,
		DeliveryID: header(headers, headerDeliveryID),
		Author:     payload.User.Username,
		Project: domain.ProjectPayload{
			ID:                payload.Project.ID,
			Name:              payload.Project.Name,
			Description:       payload.Project.Description,
			WebURL:            payload.Project.WebURL,
			DefaultBranch:     payload.Project.DefaultBranch,
			PathWithNamespace: payload.Project.PathWithNamespace,
			Namespace:         payload.Project.Namespace,
		},
	}
	if event.ProjectID == 0 {
		event.ProjectID = payload.ProjectID
		event.Project.ID = payload.ProjectID
	}

	attrs := payload.ObjectAttributes
	switch kind {
	case domain.EventKindIssue:
		event.IssueIID = attrs.IID
		event.Title = attrs.Title
		event.Body = attrs.Description
		event.Action = attrs.Action
		event.State = attrs.State
	case domain.EventKindNote:
		event.IssueIID = payload.Issue.IID
		event.Title = payload.Issue.Title
		event.Body = attrs.Note
		event.NoteableType = attrs.NoteableType
	case domain.EventKindMergeRequest:
		event.TargetBranch = attrs.TargetBranch
		event.Action = attrs.Action
		event.State = attrs.State
	case domain.EventKindPush:
		event.Ref = payload.Ref
		if event.Author == "" {
			event.Author = payload.UserUsername
		}
	}

	if event.ProjectID == 0 {
		return domain.Event{}, fmt.Errorf("%w: missing project id", ErrInvalidPayload)
	}

	return event, nil
}

// mapGitLabEvent trusts the header first and falls back to object_kind.
func (m *GitLabEventMapper) mapGitLabEvent(headerEventType, objectKind string) domain.EventKind {
	switch gitlab.EventType(headerEventType) {
	case gitlab.EventTypeIssue, gitlab.EventConfidentialIssue:
		return domain.EventKindIssue
	case gitlab.EventTypeNote, gitlab.EventConfidentialNote:
		return domain.EventKindNote
	case gitlab.EventTypeMergeRequest:
		return domain.EventKindMergeRequest
	case gitlab.EventTypePush:
		return domain.EventKindPush
	}

	switch objectKind {
	case "issue":
		return domain.EventKindIssue
	case "note":
		return domain.EventKindNote
	case "merge_request":
		return domain.EventKindMergeRequest
	case "push":
		return domain.EventKindPush
	}

	return ""
}

func header(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	return headers[http.CanonicalHeaderKey(key)]
}

type gitlabWebhookPayload struct {
	ObjectKind   string `json:"object_kind"`
	ProjectID    int64  `json:"project_id"`
	Ref          string `json:"ref"`
	UserUsername string `json:"user_username"`
	User         struct {
		Username string `json:"username"`
	} `json:"user"`
	Project struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		Description       string `json:"description"`
		WebURL            string `json:"web_url"`
		DefaultBranch     string `json:"default_branch"`
		PathWithNamespace string `json:"path_with_namespace"`
		Namespace         string `json:"namespace"`
	} `json:"project"`
	ObjectAttributes struct {
		ID           int64  `json:"id"`
		IID          int64  `json:"iid"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		Note         string `json:"note"`
		NoteableType string `json:"noteable_type"`
		Action       string `json:"action"`
		State        string `json:"state"`
		TargetBranch string `json:"target_branch"`
	} `json:"object_attributes"`
	Issue struct {
		IID   int64  `json:"iid"`
		Title string `json:"title"`
	} `json:"issue"`
}
