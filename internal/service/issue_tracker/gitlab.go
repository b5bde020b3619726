package issue_tracker

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/model"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const notesPerPage = 100

type gitLabIssueTracker struct {
	client *gitlab.Client
}

// NewGitLabIssueTracker builds a tracker for a GitLab instance. baseURL is the
// instance root (https://gitlab.example.com); empty means gitlab.com.
func NewGitLabIssueTracker(baseURL, token string) (IssueTracker, error) {
	client, err := newClient(baseURL, token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &gitLabIssueTracker{client: client}, nil
}

func newClient(baseURL, token string) (*gitlab.Client, error) {
	if baseURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

func (t *gitLabIssueTracker) GetIssue(ctx context.Context, projectID, issueIID int64) (*domain.IssueThread, error) {
	issue, resp, err := t.client.Issues.GetIssue(projectID, issueIID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching issue from gitlab: %w", classify(resp, err))
	}

	comments, err := t.listNotes(ctx, projectID, issueIID)
	if err != nil {
		return nil, err
	}

	thread := &domain.IssueThread{
		ProjectID:   projectID,
		IID:         issueIID,
		Title:       issue.Title,
		Description: issue.Description,
		State:       issue.State,
		WebURL:      issue.WebURL,
		Labels:      []string(issue.Labels),
		Comments:    comments,
	}
	if issue.Author != nil {
		thread.Author = issue.Author.Username
	}
	if issue.CreatedAt != nil {
		thread.CreatedAt = *issue.CreatedAt
	}

	return thread, nil
}

func (t *gitLabIssueTracker) listNotes(ctx context.Context, projectID, issueIID int64) ([]domain.Comment, error) {
	opts := &gitlab.ListIssueNotesOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: notesPerPage},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("asc"),
	}

	var comments []domain.Comment
	for {
		notes, resp, err := t.client.Notes.ListIssueNotes(projectID, issueIID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetching notes from gitlab: %w", classify(resp, err))
		}

		for _, n := range notes {
			if n == nil {
				continue
			}
			c := domain.Comment{
				ID:     n.ID,
				Body:   n.Body,
				Author: n.Author.Username,
				System: n.System,
			}
			if n.CreatedAt != nil {
				c.CreatedAt = *n.CreatedAt
			}
			comments = append(comments, c)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

func (t *gitLabIssueTracker) GetProject(ctx context.Context, projectID int64) (*model.ProjectMetadata, error) {
	p, resp, err := t.client.Projects.GetProject(projectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching project from gitlab: %w", classify(resp, err))
	}

	meta := &model.ProjectMetadata{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		DefaultBranch:     p.DefaultBranch,
		WebURL:            p.WebURL,
		PathWithNamespace: p.PathWithNamespace,
		Visibility:        string(p.Visibility),
		Topics:            p.Topics,
		CreatedAt:         p.CreatedAt,
		LastActivityAt:    p.LastActivityAt,
	}
	if p.Namespace != nil {
		meta.Namespace = p.Namespace.FullPath
	}

	return meta, nil
}

func (t *gitLabIssueTracker) GetProjectLanguage(ctx context.Context, projectID int64) (string, error) {
	langs, resp, err := t.client.Projects.GetProjectLanguages(projectID, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetching project languages from gitlab: %w", classify(resp, err))
	}
	if langs == nil {
		return "", nil
	}
	return dominantLanguage(*langs), nil
}

// dominantLanguage picks the highest share; ties go to the alphabetically
// first name so the result is stable.
func dominantLanguage(shares map[string]float32) string {
	names := make([]string, 0, len(shares))
	for name := range shares {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	var bestShare float32 = -1
	for _, name := range names {
		if shares[name] > bestShare {
			best, bestShare = name, shares[name]
		}
	}
	return best
}

func (t *gitLabIssueTracker) GetFileTree(ctx context.Context, projectID int64, branch string) ([]TreeEntry, error) {
	opts := &gitlab.ListTreeOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 100},
		Recursive:   gitlab.Ptr(true),
	}
	if branch != "" {
		opts.Ref = gitlab.Ptr(branch)
	}

	var entries []TreeEntry
	for {
		nodes, resp, err := t.client.Repositories.ListTree(projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetching repository tree from gitlab: %w", classify(resp, err))
		}

		for _, n := range nodes {
			if n == nil {
				continue
			}
			entries = append(entries, TreeEntry{
				Path: n.Path,
				Name: n.Name,
				Type: n.Type,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entries, nil
}

func (t *gitLabIssueTracker) GetFileContent(ctx context.Context, projectID int64, path, branch string) (string, error) {
	opts := &gitlab.GetFileOptions{}
	if branch != "" {
		opts.Ref = gitlab.Ptr(branch)
	}

	file, resp, err := t.client.RepositoryFiles.GetFile(projectID, path, opts, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetching %s from gitlab: %w", path, classify(resp, err))
	}

	if file.Encoding != "base64" {
		return file.Content, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(file.Content)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return string(decoded), nil
}

func (t *gitLabIssueTracker) GetLastCommit(ctx context.Context, projectID int64, branch string) (*model.CommitSummary, error) {
	opts := &gitlab.ListCommitsOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 1},
	}
	if branch != "" {
		opts.RefName = gitlab.Ptr(branch)
	}

	commits, resp, err := t.client.Commits.ListCommits(projectID, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching commits from gitlab: %w", classify(resp, err))
	}
	if len(commits) == 0 || commits[0] == nil {
		return nil, nil
	}

	c := commits[0]
	return &model.CommitSummary{
		ID:            c.ID,
		ShortID:       c.ShortID,
		Title:         c.Title,
		Message:       c.Message,
		AuthorName:    c.AuthorName,
		AuthorEmail:   c.AuthorEmail,
		CommittedDate: c.CommittedDate,
	}, nil
}

func (t *gitLabIssueTracker) PostComment(ctx context.Context, projectID, issueIID int64, body string) (int64, error) {
	note, resp, err := t.client.Notes.CreateIssueNote(projectID, issueIID, &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("posting note to gitlab: %w", classify(resp, err))
	}
	return note.ID, nil
}

// classify tags 404 answers with ErrNotFound, 401 and 403 with ErrUnauthorized
// and everything else as transient.
func classify(resp *gitlab.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}
	return &TransientError{Err: err}
}

// TransientError marks a failed tracker call that may succeed when retried.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
