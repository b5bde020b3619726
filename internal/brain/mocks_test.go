package brain_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"basegraph.app/rubberduck/common/llm"
	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/model"
	"basegraph.app/rubberduck/internal/service/issue_tracker"
	"basegraph.app/rubberduck/internal/store"
)

type postedComment struct {
	ProjectID int64
	IssueIID  int64
	Body      string
}

// mockTracker serves a single issue thread and records posts.
type mockTracker struct {
	mu sync.Mutex

	getIssueFn    func(ctx context.Context, projectID, issueIID int64) (*domain.IssueThread, error)
	postCommentFn func(ctx context.Context, projectID, issueIID int64, body string) (int64, error)

	posted []postedComment
}

func (m *mockTracker) GetIssue(ctx context.Context, projectID, issueIID int64) (*domain.IssueThread, error) {
	if m.getIssueFn != nil {
		return m.getIssueFn(ctx, projectID, issueIID)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockTracker) GetProject(context.Context, int64) (*model.ProjectMetadata, error) {
	return nil, errors.New("not used")
}

func (m *mockTracker) GetProjectLanguage(context.Context, int64) (string, error) {
	return "", nil
}

func (m *mockTracker) GetFileTree(context.Context, int64, string) ([]issue_tracker.TreeEntry, error) {
	return nil, errors.New("not used")
}

func (m *mockTracker) GetFileContent(context.Context, int64, string, string) (string, error) {
	return "", issue_tracker.ErrNotFound
}

func (m *mockTracker) GetLastCommit(context.Context, int64, string) (*model.CommitSummary, error) {
	return nil, nil
}

func (m *mockTracker) PostComment(ctx context.Context, projectID, issueIID int64, body string) (int64, error) {
	if m.postCommentFn != nil {
		if id, err := m.postCommentFn(ctx, projectID, issueIID, body); err != nil {
			return id, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, postedComment{ProjectID: projectID, IssueIID: issueIID, Body: body})
	return int64(1000 + len(m.posted)), nil
}

func (m *mockTracker) Posted() []postedComment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]postedComment(nil), m.posted...)
}

type mockGenerator struct {
	mu         sync.Mutex
	generateFn func(ctx context.Context, req brain.GenerateRequest) (string, error)
	requests   []brain.GenerateRequest
}

func (m *mockGenerator) Generate(ctx context.Context, req brain.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(ctx, req)
	}
	return "What have you tried so far?", nil
}

func (m *mockGenerator) Requests() []brain.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]brain.GenerateRequest(nil), m.requests...)
}

type mockSnapshotBuilder struct {
	buildFn  func(ctx context.Context, projectID int64, branch string) (*model.RepositorySnapshot, error)
	branches []string
}

func (m *mockSnapshotBuilder) Build(ctx context.Context, projectID int64, branch string) (*model.RepositorySnapshot, error) {
	m.branches = append(m.branches, branch)
	if m.buildFn != nil {
		return m.buildFn(ctx, projectID, branch)
	}
	return &model.RepositorySnapshot{
		ProjectMetadata: model.ProjectMetadata{ID: projectID, Name: "duck", Language: "Go"},
		Branch:          branch,
		CapturedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ImportantFiles:  []model.FileContent{{Path: "main.go", Content: "package main"}},
	}, nil
}

// memoryStores keeps every record in maps; it satisfies brain.StoreProvider.
type memoryStores struct {
	mu        sync.Mutex
	projects  map[int64]*model.Project
	snapshots map[int64]*model.RepositorySnapshot
	issues    map[[2]int64]*model.Issue

	projectGetErr error
	issueErr      error
	snapshotErr   error
}

func newMemoryStores() *memoryStores {
	return &memoryStores{
		projects:  map[int64]*model.Project{},
		snapshots: map[int64]*model.RepositorySnapshot{},
		issues:    map[[2]int64]*model.Issue{},
	}
}

func (m *memoryStores) Projects() store.ProjectStore   { return memoryProjects{m} }
func (m *memoryStores) Snapshots() store.SnapshotStore { return memorySnapshots{m} }
func (m *memoryStores) Issues() store.IssueStore       { return memoryIssues{m} }

type memoryProjects struct{ m *memoryStores }

func (s memoryProjects) GetByExternalID(_ context.Context, id int64) (*model.Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.projectGetErr != nil {
		return nil, s.m.projectGetErr
	}
	p, ok := s.m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s memoryProjects) Upsert(_ context.Context, p *model.Project) (*model.Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *p
	s.m.projects[p.ExternalProjectID] = &cp
	return &cp, nil
}

func (s memoryProjects) MarkRepoUpdated(_ context.Context, id int64, at time.Time) (*model.Project, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.LastRepoUpdate = &at
	p.RepoContentStored = true
	cp := *p
	return &cp, nil
}

type memorySnapshots struct{ m *memoryStores }

func (s memorySnapshots) Get(_ context.Context, id int64) (*model.RepositorySnapshot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	snap, ok := s.m.snapshots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

func (s memorySnapshots) Put(_ context.Context, id int64, snap *model.RepositorySnapshot) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.snapshotErr != nil {
		return s.m.snapshotErr
	}
	s.m.snapshots[id] = snap
	return nil
}

type memoryIssues struct{ m *memoryStores }

func (s memoryIssues) Get(_ context.Context, projectID, iid int64) (*model.Issue, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	i, ok := s.m.issues[[2]int64{projectID, iid}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return i, nil
}

func (s memoryIssues) Upsert(_ context.Context, issue *model.Issue) (*model.Issue, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.issueErr != nil {
		return nil, s.m.issueErr
	}
	key := [2]int64{issue.ExternalProjectID, issue.IssueIID}
	cp := *issue
	if prev, ok := s.m.issues[key]; ok && cp.LastAIResponseAt == nil {
		cp.LastAIResponseAt = prev.LastAIResponseAt
	}
	s.m.issues[key] = &cp
	return &cp, nil
}

// passthroughTxRunner runs fn against the same stores without isolation.
type passthroughTxRunner struct {
	stores *memoryStores
}

func (r passthroughTxRunner) WithTx(_ context.Context, fn func(stores brain.StoreProvider) error) error {
	return fn(r.stores)
}

type mockLLMClient struct {
	completeFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
	requests   []llm.Request
}

func (m *mockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockLLMClient) Model() string {
	return "test-model"
}

func humanComment(id int64, author, body string, at time.Time) domain.Comment {
	return domain.Comment{ID: id, Author: author, Body: body, CreatedAt: at}
}

func botComment(id int64, body string, at time.Time) domain.Comment {
	return domain.Comment{ID: id, Author: "duck-bot", Body: brain.Sign(body), CreatedAt: at}
}
