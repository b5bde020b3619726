package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"basegraph.app/rubberduck/core/db/sqlc"
	"basegraph.app/rubberduck/internal/model"
	"github.com/jackc/pgx/v5"
)

type snapshotStore struct {
	queries *sqlc.Queries
}

func newSnapshotStore(queries *sqlc.Queries) SnapshotStore {
	return &snapshotStore{queries: queries}
}

func (s *snapshotStore) Get(ctx context.Context, externalProjectID int64) (*model.RepositorySnapshot, error) {
	row, err := s.queries.GetRepositorySnapshot(ctx, externalProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSnapshotModel(row)
}

func (s *snapshotStore) Put(ctx context.Context, externalProjectID int64, snapshot *model.RepositorySnapshot) error {
	content, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = s.queries.UpsertRepositorySnapshot(ctx, sqlc.UpsertRepositorySnapshotParams{
		ExternalProjectID: externalProjectID,
		Branch:            snapshot.Branch,
		Content:           content,
		TotalFiles:        int32(snapshot.TotalFiles),
		CapturedAt:        toTimestamptz(&snapshot.CapturedAt),
	})
	return err
}

func toSnapshotModel(row sqlc.RepositorySnapshot) (*model.RepositorySnapshot, error) {
	var snapshot model.RepositorySnapshot
	if len(row.Content) > 0 {
		if err := json.Unmarshal(row.Content, &snapshot); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
	}
	snapshot.Branch = row.Branch
	snapshot.TotalFiles = int(row.TotalFiles)
	if row.CapturedAt.Valid {
		snapshot.CapturedAt = row.CapturedAt.Time
	}
	return &snapshot, nil
}
