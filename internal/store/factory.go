package store

import (
	"basegraph.app/rubberduck/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Projects() ProjectStore {
	return newProjectStore(s.queries)
}

func (s *Stores) Snapshots() SnapshotStore {
	return newSnapshotStore(s.queries)
}

func (s *Stores) Issues() IssueStore {
	return newIssueStore(s.queries)
}
