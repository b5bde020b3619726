package store

import (
	"context"
	"errors"

	"basegraph.app/rubberduck/core/db/sqlc"
	"basegraph.app/rubberduck/internal/model"
	"github.com/jackc/pgx/v5"
)

type issueStore struct {
	queries *sqlc.Queries
}

func newIssueStore(queries *sqlc.Queries) IssueStore {
	return &issueStore{queries: queries}
}

func (s *issueStore) Get(ctx context.Context, externalProjectID, issueIID int64) (*model.Issue, error) {
	row, err := s.queries.GetIssueByProjectAndIID(ctx, sqlc.GetIssueByProjectAndIIDParams{
		ExternalProjectID: externalProjectID,
		IssueIid:          issueIID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toIssueModel(row), nil
}

func (s *issueStore) Upsert(ctx context.Context, issue *model.Issue) (*model.Issue, error) {
	labels := issue.Labels
	if labels == nil {
		labels = []string{}
	}

	row, err := s.queries.UpsertIssue(ctx, sqlc.UpsertIssueParams{
		ID:                issue.ID,
		ExternalProjectID: issue.ExternalProjectID,
		IssueIid:          issue.IssueIID,
		Title:             issue.Title,
		Description:       issue.Description,
		State:             issue.State,
		Author:            issue.Author,
		Labels:            labels,
		WebUrl:            issue.WebURL,
		IsSession:         issue.IsSession,
		LastAiResponseAt:  toTimestamptz(issue.LastAIResponseAt),
	})
	if err != nil {
		return nil, err
	}
	return toIssueModel(row), nil
}

func toIssueModel(row sqlc.Issue) *model.Issue {
	return &model.Issue{
		ID:                row.ID,
		ExternalProjectID: row.ExternalProjectID,
		IssueIID:          row.IssueIid,
		Title:             row.Title,
		Description:       row.Description,
		State:             row.State,
		Author:            row.Author,
		Labels:            row.Labels,
		WebURL:            row.WebUrl,
		IsSession:         row.IsSession,
		LastAIResponseAt:  fromTimestamptz(row.LastAiResponseAt),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}
