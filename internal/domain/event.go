package domain

import "strings"

// EventKind is the GitLab object kind an inbound webhook describes.
type EventKind string

const (
	EventKindIssue        EventKind = "issue"
	EventKindNote         EventKind = "note"
	EventKindMergeRequest EventKind = "merge_request"
	EventKindPush         EventKind = "push"
)

const NoteableTypeIssue = "Issue"

// Event is the mapped, immutable form of one webhook delivery. Which fields
// are meaningful depends on Kind:
//   - issue: IssueIID, Title, Body (description), Author, Action
//   - note: IssueIID, Title (of the issue), Body (the note), Author, NoteableType
//   - merge_request: TargetBranch, Action, State
//   - push: Ref
type Event struct {
	Kind         EventKind      `json:"kind"`
	ProjectID    int64          `json:"project_id"`
	IssueIID     int64          `json:"issue_iid,omitempty"`
	Title        string         `json:"title,omitempty"`
	Body         string         `json:"body,omitempty"`
	Author       string         `json:"author,omitempty"`
	NoteableType string         `json:"noteable_type,omitempty"`
	TargetBranch string         `json:"target_branch,omitempty"`
	Ref          string         `json:"ref,omitempty"`
	Action       string         `json:"action,omitempty"`
	State        string         `json:"state,omitempty"`
	Project      ProjectPayload `json:"project"`
	DeliveryID   string         `json:"delivery_id,omitempty"`
}

// ProjectPayload is the project block GitLab embeds in every webhook.
type ProjectPayload struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	WebURL            string `json:"web_url"`
	DefaultBranch     string `json:"default_branch"`
	PathWithNamespace string `json:"path_with_namespace"`
	Namespace         string `json:"namespace"`
}

// IsDialogue reports whether the event can belong to an issue session.
func (e Event) IsDialogue() bool {
	return e.Kind == EventKindIssue || e.Kind == EventKindNote
}

// IsRepositoryUpdate reports whether the event may refresh the snapshot.
func (e Event) IsRepositoryUpdate() bool {
	return e.Kind == EventKindMergeRequest || e.Kind == EventKindPush
}

// IsIssueNote is false for notes left on merge requests, commits and snippets.
func (e Event) IsIssueNote() bool {
	return e.Kind == EventKindNote && strings.EqualFold(e.NoteableType, NoteableTypeIssue)
}
