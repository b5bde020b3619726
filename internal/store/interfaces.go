package store

import (
	"context"
	"errors"
	"time"

	"basegraph.app/rubberduck/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ProjectStore defines the contract for project record access
type ProjectStore interface {
	GetByExternalID(ctx context.Context, externalProjectID int64) (*model.Project, error)
	Upsert(ctx context.Context, project *model.Project) (*model.Project, error)
	// MarkRepoUpdated records that a snapshot was stored at the given time.
	MarkRepoUpdated(ctx context.Context, externalProjectID int64, at time.Time) (*model.Project, error)
}

// SnapshotStore defines the contract for repository snapshot access.
// Put replaces any previous snapshot for the project.
type SnapshotStore interface {
	Get(ctx context.Context, externalProjectID int64) (*model.RepositorySnapshot, error)
	Put(ctx context.Context, externalProjectID int64, snapshot *model.RepositorySnapshot) error
}

// IssueStore defines the contract for issue audit record access
type IssueStore interface {
	Get(ctx context.Context, externalProjectID, issueIID int64) (*model.Issue, error)
	Upsert(ctx context.Context, issue *model.Issue) (*model.Issue, error)
}
