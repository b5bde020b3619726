package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/store"
)

// IsBotLast reports whether the newest non-system comment is the duck's.
// comments must be ordered newest first.
func IsBotLast(commentsDesc []domain.Comment) bool {
	for _, c := range commentsDesc {
		if c.System {
			continue
		}
		return IsBotAuthored(c.Body)
	}
	return false
}

// IsTriggered reports whether an issue is an active session: the title carries
// the trigger phrase or the duck already took part in the thread.
func IsTriggered(triggerPhrase, title string, comments []domain.Comment) bool {
	if triggerPhrase != "" && strings.Contains(strings.ToLower(title), strings.ToLower(triggerPhrase)) {
		return true
	}
	for _, c := range comments {
		if !c.System && IsBotAuthored(c.Body) {
			return true
		}
	}
	return false
}

// Guard answers the store-backed idempotency question.
type Guard struct {
	projects store.ProjectStore
}

func NewGuard(projects store.ProjectStore) *Guard {
	return &Guard{projects: projects}
}

// IsNewProject is true when no project record exists yet.
func (g *Guard) IsNewProject(ctx context.Context, projectID int64) (bool, error) {
	_, err := g.projects.GetByExternalID(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up project %d: %w", projectID, err)
	}
	return false, nil
}
