package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/rubberduck/common/id"
	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/model"
	"basegraph.app/rubberduck/internal/service/issue_tracker"
)

const DefaultTriggerPhrase = "Rubber Duck Help Me"

var DefaultProtectedBranches = []string{"main", "master", "develop"}

type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// State is where an event's processing ended.
type State string

const (
	StateIdle                  State = "idle"
	StateClassifying           State = "classifying"
	StateSkippedNotTriggered   State = "skipped_not_triggered"
	StateSkippedSelfComment    State = "skipped_self_comment"
	StateSkippedBotRepliedLast State = "skipped_bot_replied_last"
	StateSkippedIgnored        State = "skipped_ignored"
	StateBootstrappingProject  State = "bootstrapping_project"
	StateDialoguing            State = "dialoguing"
	StateRefreshingSnapshot    State = "refreshing_snapshot"
	StateCompleted             State = "completed"
)

// Result is the terminal outcome of one event. Skips are not errors.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	// State is the state the event stopped in: a skip state, completed, or
	// the state that failed.
	State  State  `json:"state"`
	NoteID int64  `json:"note_id,omitempty"`
	Intent Intent `json:"intent,omitempty"`
	Err    error  `json:"-"`
}

// Retryable reports whether a failed event may succeed if processed again.
func (r Result) Retryable() bool {
	var eventErr *EventError
	return r.Status == StatusError && errors.As(r.Err, &eventErr) && eventErr.Retryable
}

func skipped(state State, msg string) Result {
	return Result{Status: StatusSkipped, State: state, Message: msg}
}

func failed(state State, err error) Result {
	return Result{Status: StatusError, State: state, Message: err.Error(), Err: classifyError(err)}
}

// SnapshotBuilder captures a repository snapshot from the tracker.
type SnapshotBuilder interface {
	Build(ctx context.Context, projectID int64, branch string) (*model.RepositorySnapshot, error)
}

type OrchestratorConfig struct {
	TriggerPhrase     string
	ProtectedBranches []string
	MaxContextFiles   int
}

type Orchestrator struct {
	cfg       OrchestratorConfig
	tracker   issue_tracker.IssueTracker
	generator Generator
	snapshots SnapshotBuilder
	stores    StoreProvider
	txRunner  TxRunner
	guard     *Guard
	retriever *ContextRetriever
	now       func() time.Time
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	tracker issue_tracker.IssueTracker,
	generator Generator,
	snapshots SnapshotBuilder,
	stores StoreProvider,
	txRunner TxRunner,
) *Orchestrator {
	if cfg.TriggerPhrase == "" {
		cfg.TriggerPhrase = DefaultTriggerPhrase
	}
	if len(cfg.ProtectedBranches) == 0 {
		cfg.ProtectedBranches = DefaultProtectedBranches
	}
	if cfg.MaxContextFiles <= 0 {
		cfg.MaxContextFiles = DefaultMaxContextFiles
	}

	slog.InfoContext(context.Background(), "orchestrator initialized",
		"trigger_phrase", cfg.TriggerPhrase,
		"protected_branches", cfg.ProtectedBranches,
		"max_context_files", cfg.MaxContextFiles)

	return &Orchestrator{
		cfg:       cfg,
		tracker:   tracker,
		generator: generator,
		snapshots: snapshots,
		stores:    stores,
		txRunner:  txRunner,
		guard:     NewGuard(stores.Projects()),
		retriever: NewContextRetriever(stores.Projects(), stores.Snapshots(), cfg.MaxContextFiles),
		now:       time.Now,
	}
}

// HandleEvent drives one event from Idle to a terminal state. It performs
// at most one outbound post.
func (o *Orchestrator) HandleEvent(ctx context.Context, event domain.Event) Result {
	kind := string(event.Kind)
	fields := logger.LogFields{
		ProjectID: &event.ProjectID,
		EventKind: &kind,
		Component: "rubberduck.brain.orchestrator",
	}
	if event.IssueIID != 0 {
		fields.IssueIID = &event.IssueIID
	}
	if event.DeliveryID != "" {
		fields.DeliveryID = &event.DeliveryID
	}
	ctx = logger.WithLogFields(ctx, fields)

	sc := logger.StartSpan(ctx, "brain.handle_event")
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "handling event", "state", StateClassifying)

	var res Result
	switch {
	case event.IsRepositoryUpdate():
		res = o.handleRepositoryUpdate(ctx, event)
	case event.IsDialogue():
		res = o.handleDialogue(ctx, event)
	default:
		res = skipped(StateSkippedIgnored, fmt.Sprintf("unsupported event kind %q", event.Kind))
	}

	switch res.Status {
	case StatusError:
		sc.RecordError(res.Err)
		slog.ErrorContext(ctx, "event failed",
			"state", res.State,
			"retryable", res.Retryable(),
			"error", res.Err)
	case StatusSkipped:
		slog.InfoContext(ctx, "event skipped", "state", res.State, "reason", res.Message)
	default:
		slog.InfoContext(ctx, "event completed", "state", res.State, "note_id", res.NoteID)
	}

	return res
}

func (o *Orchestrator) handleDialogue(ctx context.Context, event domain.Event) Result {
	if event.Kind == domain.EventKindNote {
		if !event.IsIssueNote() {
			return skipped(StateSkippedIgnored, fmt.Sprintf("note on %s is not an issue comment", event.NoteableType))
		}
		if IsSelfComment(event.Body) {
			return skipped(StateSkippedSelfComment, "comment was written by the bot")
		}
	}

	if event.IssueIID == 0 {
		return failed(StateClassifying, fmt.Errorf("%s event without issue iid", event.Kind))
	}

	thread, err := o.tracker.GetIssue(ctx, event.ProjectID, event.IssueIID)
	if err != nil {
		return failed(StateClassifying, fmt.Errorf("fetching issue: %w", err))
	}

	if !IsTriggered(o.cfg.TriggerPhrase, thread.Title, thread.Comments) {
		return skipped(StateSkippedNotTriggered, "not a rubber duck session")
	}

	isNew, err := o.guard.IsNewProject(ctx, event.ProjectID)
	if err != nil {
		return failed(StateClassifying, err)
	}
	if isNew {
		slog.InfoContext(ctx, "new project detected, bootstrapping", "state", StateBootstrappingProject)
		if err := o.bootstrap(ctx, event, ""); err != nil {
			return failed(StateBootstrappingProject, fmt.Errorf("bootstrapping project: %w", err))
		}
	}

	if IsBotLast(domain.SortDescending(thread.Comments)) {
		return skipped(StateSkippedBotRepliedLast, "last comment was written by the bot")
	}

	return o.dialogue(ctx, event, thread)
}

func (o *Orchestrator) dialogue(ctx context.Context, event domain.Event, thread *domain.IssueThread) Result {
	if _, err := o.stores.Issues().Upsert(ctx, issueRecord(event, thread, nil)); err != nil {
		return failed(StateDialoguing, fmt.Errorf("storing issue metadata: %w", err))
	}

	conv := ReconstructConversation(thread.Title, thread.Description, thread.Comments)
	history := conv.FormattedHistory()
	intent := ClassifyIntent(conv.ProblemStatement, history)

	slog.InfoContext(ctx, "intent classified",
		"intent", intent,
		"history_entries", len(conv.History))

	repoContext := ""
	if intent != IntentClosing {
		var err error
		repoContext, err = o.retriever.Retrieve(ctx, event.ProjectID)
		if err != nil {
			return failed(StateDialoguing, fmt.Errorf("retrieving repository context: %w", err))
		}
	}

	reply, err := o.generator.Generate(ctx, GenerateRequest{
		ProblemStatement:  conv.ProblemStatement,
		History:           history,
		RepositoryContext: repoContext,
		Intent:            intent,
	})
	if err != nil {
		return failed(StateDialoguing, err)
	}

	noteID, err := o.tracker.PostComment(ctx, event.ProjectID, event.IssueIID, Sign(reply))
	if err != nil {
		return failed(StateDialoguing, fmt.Errorf("posting reply: %w", err))
	}

	// The reply is out; a failed audit update must not cause a second post.
	answeredAt := o.now()
	if _, err := o.stores.Issues().Upsert(ctx, issueRecord(event, thread, &answeredAt)); err != nil {
		slog.WarnContext(ctx, "failed to record reply time", "error", err)
	}

	return Result{
		Status:  StatusSuccess,
		State:   StateCompleted,
		Message: fmt.Sprintf("%s response posted", intent),
		NoteID:  noteID,
		Intent:  intent,
	}
}

func (o *Orchestrator) handleRepositoryUpdate(ctx context.Context, event domain.Event) Result {
	branch, ok := o.updatedBranch(event)
	if !ok {
		return skipped(StateSkippedIgnored, "not a merge or push to a protected branch")
	}

	isNew, err := o.guard.IsNewProject(ctx, event.ProjectID)
	if err != nil {
		return failed(StateRefreshingSnapshot, err)
	}

	if isNew {
		slog.InfoContext(ctx, "refresh for unknown project, bootstrapping", "branch", branch)
		if err := o.bootstrap(ctx, event, branch); err != nil {
			return failed(StateBootstrappingProject, fmt.Errorf("bootstrapping project: %w", err))
		}
		return Result{Status: StatusSuccess, State: StateCompleted, Message: "project bootstrapped"}
	}

	snap, err := o.snapshots.Build(ctx, event.ProjectID, branch)
	if err != nil {
		return failed(StateRefreshingSnapshot, fmt.Errorf("building snapshot: %w", err))
	}

	err = o.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Snapshots().Put(ctx, event.ProjectID, snap); err != nil {
			return fmt.Errorf("storing snapshot: %w", err)
		}
		if _, err := stores.Projects().MarkRepoUpdated(ctx, event.ProjectID, snap.CapturedAt); err != nil {
			return fmt.Errorf("marking project updated: %w", err)
		}
		return nil
	})
	if err != nil {
		return failed(StateRefreshingSnapshot, err)
	}

	slog.InfoContext(ctx, "snapshot refreshed",
		"branch", snap.Branch,
		"total_files", snap.TotalFiles,
		"important_files", len(snap.ImportantFiles))

	return Result{Status: StatusSuccess, State: StateCompleted, Message: "repository snapshot refreshed"}
}

// updatedBranch returns the protected branch a merge or push landed on.
func (o *Orchestrator) updatedBranch(event domain.Event) (string, bool) {
	switch event.Kind {
	case domain.EventKindMergeRequest:
		if event.Action != "merge" || event.State != "merged" {
			return "", false
		}
		return event.TargetBranch, o.isProtected(event.TargetBranch)
	case domain.EventKindPush:
		branch, ok := strings.CutPrefix(event.Ref, "refs/heads/")
		if !ok {
			return "", false
		}
		return branch, o.isProtected(branch)
	default:
		return "", false
	}
}

func (o *Orchestrator) isProtected(branch string) bool {
	for _, b := range o.cfg.ProtectedBranches {
		if b == branch {
			return true
		}
	}
	return false
}

// bootstrap captures the first snapshot and registers the project. The
// record and snapshot are written together.
func (o *Orchestrator) bootstrap(ctx context.Context, event domain.Event, branch string) error {
	if branch == "" {
		branch = event.Project.DefaultBranch
	}

	snap, err := o.snapshots.Build(ctx, event.ProjectID, branch)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}

	project := projectRecord(event, snap)
	err = o.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if _, err := stores.Projects().Upsert(ctx, project); err != nil {
			return fmt.Errorf("registering project: %w", err)
		}
		if err := stores.Snapshots().Put(ctx, event.ProjectID, snap); err != nil {
			return fmt.Errorf("storing snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "project bootstrapped",
		"project_name", project.Name,
		"branch", snap.Branch,
		"total_files", snap.TotalFiles)

	return nil
}

// projectRecord prefers the webhook's project block and fills gaps from the
// freshly fetched metadata.
func projectRecord(event domain.Event, snap *model.RepositorySnapshot) *model.Project {
	meta := snap.ProjectMetadata
	p := event.Project

	project := &model.Project{
		ID:                id.New(),
		ExternalProjectID: event.ProjectID,
		Name:              firstNonEmpty(p.Name, meta.Name),
		WebURL:            firstNonEmpty(p.WebURL, meta.WebURL),
		DefaultBranch:     firstNonEmpty(p.DefaultBranch, meta.DefaultBranch, snap.Branch),
		PathWithNamespace: firstNonEmpty(p.PathWithNamespace, meta.PathWithNamespace),
		Namespace:         firstNonEmpty(p.Namespace, meta.Namespace),
		RepoContentStored: true,
		LastRepoUpdate:    &snap.CapturedAt,
		RegisteredAt:      snap.CapturedAt,
	}
	if d := firstNonEmpty(p.Description, meta.Description); d != "" {
		project.Description = &d
	}
	if meta.Language != "" {
		lang := meta.Language
		project.Language = &lang
	}
	return project
}

func issueRecord(event domain.Event, thread *domain.IssueThread, answeredAt *time.Time) *model.Issue {
	issue := &model.Issue{
		ID:                id.New(),
		ExternalProjectID: event.ProjectID,
		IssueIID:          event.IssueIID,
		Title:             thread.Title,
		State:             thread.State,
		Author:            thread.Author,
		WebURL:            thread.WebURL,
		Labels:            thread.Labels,
		IsSession:         true,
		LastAIResponseAt:  answeredAt,
	}
	if thread.Description != "" {
		d := thread.Description
		issue.Description = &d
	}
	return issue
}
