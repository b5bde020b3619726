package domain

import (
	"sort"
	"time"
)

// Comment is one note on an issue. Whether a bot wrote it is derived from the
// body, never stored.
type Comment struct {
	CreatedAt time.Time `json:"created_at"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	ID        int64     `json:"id"`
	// System notes are GitLab's own activity entries ("changed the label").
	System bool `json:"system"`
}

// IssueThread is an issue together with all of its notes.
type IssueThread struct {
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	State       string    `json:"state"`
	WebURL      string    `json:"web_url"`
	Labels      []string  `json:"labels"`
	Comments    []Comment `json:"comments"`
	ProjectID   int64     `json:"project_id"`
	IID         int64     `json:"iid"`
}

// SortAscending returns a copy ordered oldest first; ties fall back to id.
func SortAscending(comments []Comment) []Comment {
	out := make([]Comment, len(comments))
	copy(out, comments)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SortDescending returns a copy ordered newest first.
func SortDescending(comments []Comment) []Comment {
	asc := SortAscending(comments)
	for i, j := 0, len(asc)-1; i < j; i, j = i+1, j-1 {
		asc[i], asc[j] = asc[j], asc[i]
	}
	return asc
}
