package store

import (
	"context"
	"errors"
	"time"

	"basegraph.app/rubberduck/core/db/sqlc"
	"basegraph.app/rubberduck/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type projectStore struct {
	queries *sqlc.Queries
}

func newProjectStore(queries *sqlc.Queries) ProjectStore {
	return &projectStore{queries: queries}
}

func (s *projectStore) GetByExternalID(ctx context.Context, externalProjectID int64) (*model.Project, error) {
	row, err := s.queries.GetProjectByExternalID(ctx, externalProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toProjectModel(row), nil
}

func (s *projectStore) Upsert(ctx context.Context, project *model.Project) (*model.Project, error) {
	row, err := s.queries.UpsertProject(ctx, sqlc.UpsertProjectParams{
		ID:                project.ID,
		ExternalProjectID: project.ExternalProjectID,
		Name:              project.Name,
		Description:       project.Description,
		WebUrl:            project.WebURL,
		DefaultBranch:     project.DefaultBranch,
		PathWithNamespace: project.PathWithNamespace,
		Namespace:         project.Namespace,
		Language:          project.Language,
		RepoContentStored: project.RepoContentStored,
		LastRepoUpdate:    toTimestamptz(project.LastRepoUpdate),
		RegisteredAt:      registeredAt(project.RegisteredAt),
	})
	if err != nil {
		return nil, err
	}
	return toProjectModel(row), nil
}

func (s *projectStore) MarkRepoUpdated(ctx context.Context, externalProjectID int64, at time.Time) (*model.Project, error) {
	row, err := s.queries.MarkProjectRepoUpdated(ctx, sqlc.MarkProjectRepoUpdatedParams{
		ExternalProjectID: externalProjectID,
		LastRepoUpdate:    toTimestamptz(&at),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toProjectModel(row), nil
}

// registeredAt leaves a zero time unset so the database default applies.
func registeredAt(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return toTimestamptz(&t)
}

func toProjectModel(row sqlc.Project) *model.Project {
	return &model.Project{
		ID:                row.ID,
		ExternalProjectID: row.ExternalProjectID,
		Name:              row.Name,
		Description:       row.Description,
		WebURL:            row.WebUrl,
		DefaultBranch:     row.DefaultBranch,
		PathWithNamespace: row.PathWithNamespace,
		Namespace:         row.Namespace,
		Language:          row.Language,
		RepoContentStored: row.RepoContentStored,
		LastRepoUpdate:    fromTimestamptz(row.LastRepoUpdate),
		RegisteredAt:      row.RegisteredAt.Time,
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}
