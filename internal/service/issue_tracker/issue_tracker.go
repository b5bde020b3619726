package issue_tracker

import (
	"context"
	"errors"

	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/model"
)

// ErrNotFound is returned when GitLab answers 404 for the requested object.
var ErrNotFound = errors.New("not found in issue tracker")

// ErrUnauthorized is returned when GitLab rejects the token with 401 or 403.
var ErrUnauthorized = errors.New("issue tracker rejected credentials")

const (
	TreeEntryBlob = "blob"
	TreeEntryTree = "tree"
)

// TreeEntry is one node of a recursive repository tree listing.
type TreeEntry struct {
	Path string
	Name string
	Type string // blob or tree
	// Size is zero when the tree API does not report it.
	Size int64
}

// IssueTracker is everything the duck needs from the hosting service: reading
// issues and repository content, and posting a single note per turn.
type IssueTracker interface {
	GetIssue(ctx context.Context, projectID, issueIID int64) (*domain.IssueThread, error)
	GetProject(ctx context.Context, projectID int64) (*model.ProjectMetadata, error)
	// GetProjectLanguage returns the dominant language, or "" when unknown.
	GetProjectLanguage(ctx context.Context, projectID int64) (string, error)
	GetFileTree(ctx context.Context, projectID int64, branch string) ([]TreeEntry, error)
	// GetFileContent returns ErrNotFound when the path does not exist on branch.
	GetFileContent(ctx context.Context, projectID int64, path, branch string) (string, error)
	// GetLastCommit returns nil without error for an empty branch.
	GetLastCommit(ctx context.Context, projectID int64, branch string) (*model.CommitSummary, error)
	PostComment(ctx context.Context, projectID, issueIID int64, body string) (int64, error)
}
