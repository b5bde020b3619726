package brain_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/model"
	"basegraph.app/rubberduck/internal/service/issue_tracker"
)

var _ = Describe("Orchestrator", func() {
	const (
		projectID = int64(7)
		issueIID  = int64(3)
	)

	var (
		ctx       context.Context
		tracker   *mockTracker
		generator *mockGenerator
		builder   *mockSnapshotBuilder
		stores    *memoryStores
		orch      *brain.Orchestrator

		title    string
		comments []domain.Comment
		base     time.Time
	)

	// The thread reflects whatever the bot has posted so far.
	currentThread := func() *domain.IssueThread {
		all := append([]domain.Comment(nil), comments...)
		for i, p := range tracker.Posted() {
			all = append(all, domain.Comment{
				ID:        int64(500 + i),
				Body:      p.Body,
				Author:    "duck-bot",
				CreatedAt: base.Add(time.Hour + time.Duration(i)*time.Minute),
			})
		}
		return &domain.IssueThread{
			ProjectID:   projectID,
			IID:         issueIID,
			Title:       title,
			Description: "crash on start",
			Author:      "alice",
			State:       "opened",
			Comments:    all,
		}
	}

	noteEvent := func(body string) domain.Event {
		return domain.Event{
			Kind:         domain.EventKindNote,
			ProjectID:    projectID,
			IssueIID:     issueIID,
			Body:         body,
			Author:       "alice",
			NoteableType: domain.NoteableTypeIssue,
			Project:      domain.ProjectPayload{ID: projectID, Name: "duck", DefaultBranch: "main"},
		}
	}

	registerProject := func() {
		stores.projects[projectID] = &model.Project{ExternalProjectID: projectID, Name: "duck", DefaultBranch: "main"}
		stores.snapshots[projectID] = &model.RepositorySnapshot{ReadmeContent: "readme text"}
	}

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		title = "Rubber Duck Help Me: null pointer"
		comments = nil

		tracker = &mockTracker{}
		tracker.getIssueFn = func(context.Context, int64, int64) (*domain.IssueThread, error) {
			return currentThread(), nil
		}
		generator = &mockGenerator{}
		builder = &mockSnapshotBuilder{}
		stores = newMemoryStores()
		orch = brain.NewOrchestrator(brain.OrchestratorConfig{}, tracker, generator, builder, stores, passthroughTxRunner{stores: stores})
	})

	Describe("dialogue events", func() {
		It("skips issues that are not sessions", func() {
			title = "null pointer"
			registerProject()

			res := orch.HandleEvent(ctx, noteEvent("help"))

			Expect(res.Status).To(Equal(brain.StatusSkipped))
			Expect(res.State).To(Equal(brain.StateSkippedNotTriggered))
			Expect(tracker.Posted()).To(BeEmpty())
			Expect(builder.branches).To(BeEmpty())
		})

		It("skips the bot's own comments before fetching anything", func() {
			tracker.getIssueFn = func(context.Context, int64, int64) (*domain.IssueThread, error) {
				Fail("issue must not be fetched for a self comment")
				return nil, nil
			}

			res := orch.HandleEvent(ctx, noteEvent(brain.Sign("What input?")))

			Expect(res.Status).To(Equal(brain.StatusSkipped))
			Expect(res.State).To(Equal(brain.StateSkippedSelfComment))
		})

		It("skips notes on merge requests", func() {
			event := noteEvent("lgtm")
			event.NoteableType = "MergeRequest"

			res := orch.HandleEvent(ctx, event)

			Expect(res.Status).To(Equal(brain.StatusSkipped))
			Expect(res.State).To(Equal(brain.StateSkippedIgnored))
		})

		It("bootstraps an unseen project and then answers", func() {
			res := orch.HandleEvent(ctx, domain.Event{
				Kind:      domain.EventKindIssue,
				ProjectID: projectID,
				IssueIID:  issueIID,
				Title:     title,
				Body:      "crash on start",
				Project:   domain.ProjectPayload{ID: projectID, Name: "duck", DefaultBranch: "main"},
			})

			Expect(res.Status).To(Equal(brain.StatusSuccess))
			Expect(res.State).To(Equal(brain.StateCompleted))
			Expect(res.NoteID).NotTo(BeZero())
			Expect(builder.branches).To(Equal([]string{"main"}))

			Expect(stores.projects).To(HaveKey(projectID))
			Expect(stores.projects[projectID].Name).To(Equal("duck"))
			Expect(stores.projects[projectID].RepoContentStored).To(BeTrue())
			Expect(*stores.projects[projectID].Language).To(Equal("Go"))
			Expect(stores.snapshots).To(HaveKey(projectID))

			reqs := generator.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].Intent).To(Equal(brain.IntentSocratic))
			Expect(reqs[0].RepositoryContext).To(ContainSubstring("Project: duck"))
			Expect(reqs[0].RepositoryContext).To(ContainSubstring("--- main.go ---"))
			Expect(reqs[0].ProblemStatement).To(HavePrefix("Issue Title: Rubber Duck Help Me: null pointer"))
			Expect(reqs[0].History).To(BeEmpty())

			posted := tracker.Posted()
			Expect(posted).To(HaveLen(1))
			Expect(posted[0].Body).To(Equal(brain.Sign("What have you tried so far?")))
		})

		It("does not bootstrap a known project again", func() {
			registerProject()
			comments = []domain.Comment{humanComment(1, "alice", "it crashes", base)}

			res := orch.HandleEvent(ctx, noteEvent("it crashes"))

			Expect(res.Status).To(Equal(brain.StatusSuccess))
			Expect(builder.branches).To(BeEmpty())
		})

		It("skips when the bot replied last, after bootstrapping", func() {
			comments = []domain.Comment{
				humanComment(1, "alice", "it crashes", base),
				botComment(2, "What input?", base.Add(time.Minute)),
			}

			res := orch.HandleEvent(ctx, domain.Event{
				Kind: domain.EventKindIssue, ProjectID: projectID, IssueIID: issueIID, Title: title,
			})

			Expect(res.Status).To(Equal(brain.StatusSkipped))
			Expect(res.State).To(Equal(brain.StateSkippedBotRepliedLast))
			Expect(stores.projects).To(HaveKey(projectID))
			Expect(generator.Requests()).To(BeEmpty())
			Expect(tracker.Posted()).To(BeEmpty())
		})

		It("continues a session the bot joined even without the trigger phrase", func() {
			registerProject()
			title = "null pointer"
			comments = []domain.Comment{
				botComment(1, "What input?", base),
				humanComment(2, "alice", "empty list", base.Add(time.Minute)),
			}

			res := orch.HandleEvent(ctx, noteEvent("empty list"))

			Expect(res.Status).To(Equal(brain.StatusSuccess))
			req := generator.Requests()[0]
			Expect(req.History).To(Equal("Previous AI Question: What input?"))
			Expect(req.ProblemStatement).To(ContainSubstring("Further comments/details from user:\nUser (alice): empty list"))
		})

		It("answers closing messages without repository context", func() {
			registerProject()
			comments = []domain.Comment{
				botComment(1, "What input?", base),
				humanComment(2, "alice", "thanks, that worked", base.Add(time.Minute)),
			}

			res := orch.HandleEvent(ctx, noteEvent("thanks, that worked"))

			Expect(res.Status).To(Equal(brain.StatusSuccess))
			Expect(res.Intent).To(Equal(brain.IntentClosing))
			Expect(generator.Requests()[0].RepositoryContext).To(BeEmpty())
		})

		It("records the issue for auditing with the reply time", func() {
			registerProject()
			comments = []domain.Comment{humanComment(1, "alice", "it crashes", base)}

			orch.HandleEvent(ctx, noteEvent("it crashes"))

			issue, ok := stores.issues[[2]int64{projectID, issueIID}]
			Expect(ok).To(BeTrue())
			Expect(issue.Title).To(Equal(title))
			Expect(issue.IsSession).To(BeTrue())
			Expect(issue.LastAIResponseAt).NotTo(BeNil())
		})

		It("fails without posting when generation fails", func() {
			registerProject()
			generator.generateFn = func(context.Context, brain.GenerateRequest) (string, error) {
				return "", errors.New("upstream 503")
			}

			res := orch.HandleEvent(ctx, noteEvent("hello"))

			Expect(res.Status).To(Equal(brain.StatusError))
			Expect(res.State).To(Equal(brain.StateDialoguing))
			Expect(res.Message).To(ContainSubstring("upstream 503"))
			Expect(res.Retryable()).To(BeTrue())
			Expect(tracker.Posted()).To(BeEmpty())
		})

		It("does not retry an empty generation", func() {
			registerProject()
			generator.generateFn = func(context.Context, brain.GenerateRequest) (string, error) {
				return "", brain.ErrEmptyGeneration
			}

			res := orch.HandleEvent(ctx, noteEvent("hello"))

			Expect(res.Status).To(Equal(brain.StatusError))
			Expect(res.Retryable()).To(BeFalse())
		})

		It("reports a failed post as an error", func() {
			registerProject()
			tracker.postCommentFn = func(context.Context, int64, int64, string) (int64, error) {
				return 0, errors.New("gitlab 502")
			}

			res := orch.HandleEvent(ctx, noteEvent("hello"))

			Expect(res.Status).To(Equal(brain.StatusError))
			Expect(res.Message).To(ContainSubstring("posting reply"))
		})

		It("reports a missing issue as not found", func() {
			tracker.getIssueFn = func(context.Context, int64, int64) (*domain.IssueThread, error) {
				return nil, issue_tracker.ErrNotFound
			}

			res := orch.HandleEvent(ctx, noteEvent("hello"))

			Expect(res.Status).To(Equal(brain.StatusError))
			Expect(errors.Is(res.Err, brain.ErrNotFound)).To(BeTrue())
			Expect(res.Retryable()).To(BeFalse())
		})

		It("does not retry a rejected gitlab token", func() {
			tracker.getIssueFn = func(context.Context, int64, int64) (*domain.IssueThread, error) {
				return nil, fmt.Errorf("%w: 401 Unauthorized", issue_tracker.ErrUnauthorized)
			}

			res := orch.HandleEvent(ctx, noteEvent("hello"))

			Expect(res.Status).To(Equal(brain.StatusError))
			Expect(errors.Is(res.Err, brain.ErrConfiguration)).To(BeTrue())
			Expect(errors.Is(res.Err, issue_tracker.ErrUnauthorized)).To(BeTrue())
			Expect(res.Retryable()).To(BeFalse())
		})

		It("stops when bootstrapping fails and registers nothing", func() {
			builder.buildFn = func(context.Context, int64, string) (*model.RepositorySnapshot, error) {
				return nil, errors.New("tree fetch failed")
			}

			res := orch.HandleEvent(ctx, noteEvent("hello"))

			Expect(res.Status).To(Equal(brain.StatusError))
			Expect(res.State).To(Equal(brain.StateBootstrappingProject))
			Expect(stores.projects).NotTo(HaveKey(projectID))
			Expect(tracker.Posted()).To(BeEmpty())
		})

		It("rejects dialogue events without an issue iid", func() {
			event := noteEvent("hello")
			event.IssueIID = 0

			res := orch.HandleEvent(ctx, event)
			Expect(res.Status).To(Equal(brain.StatusError))
		})

		It("skips the second of two sequential events on the same issue", func() {
			registerProject()

			first := orch.HandleEvent(ctx, noteEvent("hello"))
			second := orch.HandleEvent(ctx, noteEvent("hello"))

			Expect(first.Status).To(Equal(brain.StatusSuccess))
			Expect(second.State).To(Equal(brain.StateSkippedBotRepliedLast))
			Expect(tracker.Posted()).To(HaveLen(1))
		})

		It("replies twice when two events on one issue race past the bot-last check", func() {
			registerProject()

			arrived := make(chan struct{}, 2)
			release := make(chan struct{})
			generator.generateFn = func(context.Context, brain.GenerateRequest) (string, error) {
				arrived <- struct{}{}
				<-release
				return "question", nil
			}

			var wg sync.WaitGroup
			results := make([]brain.Result, 2)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					results[i] = orch.HandleEvent(ctx, noteEvent("hello"))
				}(i)
			}

			Eventually(arrived).Should(HaveLen(2))
			close(release)
			wg.Wait()

			Expect(results[0].Status).To(Equal(brain.StatusSuccess))
			Expect(results[1].Status).To(Equal(brain.StatusSuccess))
			Expect(tracker.Posted()).To(HaveLen(2))
		})
	})

	Describe("repository update events", func() {
		mergeEvent := func(branch, action, state string) domain.Event {
			return domain.Event{
				Kind:         domain.EventKindMergeRequest,
				ProjectID:    projectID,
				TargetBranch: branch,
				Action:       action,
				State:        state,
			}
		}

		BeforeEach(func() {
			tracker.getIssueFn = func(context.Context, int64, int64) (*domain.IssueThread, error) {
				Fail("repository updates must not touch issues")
				return nil, nil
			}
		})

		It("refreshes the snapshot on a merge into main", func() {
			registerProject()

			res := orch.HandleEvent(ctx, mergeEvent("main", "merge", "merged"))

			Expect(res.Status).To(Equal(brain.StatusSuccess))
			Expect(builder.branches).To(Equal([]string{"main"}))
			Expect(stores.snapshots[projectID].ReadmeContent).To(BeEmpty())
			Expect(stores.snapshots[projectID].ImportantFiles).To(HaveLen(1))
			Expect(stores.projects[projectID].LastRepoUpdate).NotTo(BeNil())
			Expect(generator.Requests()).To(BeEmpty())
			Expect(tracker.Posted()).To(BeEmpty())
		})

		DescribeTable("ignored merge requests",
			func(branch, action, state string) {
				registerProject()
				res := orch.HandleEvent(ctx, mergeEvent(branch, action, state))
				Expect(res.Status).To(Equal(brain.StatusSkipped))
				Expect(builder.branches).To(BeEmpty())
			},
			Entry("feature branch", "feature/x", "merge", "merged"),
			Entry("opened, not merged", "main", "open", "opened"),
			Entry("merge action not yet merged", "develop", "merge", "opened"),
		)

		It("refreshes on a push to a protected branch", func() {
			registerProject()

			res := orch.HandleEvent(ctx, domain.Event{Kind: domain.EventKindPush, ProjectID: projectID, Ref: "refs/heads/develop"})

			Expect(res.Status).To(Equal(brain.StatusSuccess))
			Expect(builder.branches).To(Equal([]string{"develop"}))
		})

		It("ignores tag pushes", func() {
			registerProject()

			res := orch.HandleEvent(ctx, domain.Event{Kind: domain.EventKindPush, ProjectID: projectID, Ref: "refs/tags/main"})
			Expect(res.Status).To(Equal(brain.StatusSkipped))
		})

		It("bootstraps a project it has never seen", func() {
			res := orch.HandleEvent(ctx, mergeEvent("master", "merge", "merged"))

			Expect(res.Status).To(Equal(brain.StatusSuccess))
			Expect(res.Message).To(Equal("project bootstrapped"))
			Expect(stores.projects).To(HaveKey(projectID))
			Expect(builder.branches).To(Equal([]string{"master"}))
		})

		It("honours configured protected branches", func() {
			orch = brain.NewOrchestrator(brain.OrchestratorConfig{ProtectedBranches: []string{"release"}},
				tracker, generator, builder, stores, passthroughTxRunner{stores: stores})
			registerProject()

			Expect(orch.HandleEvent(ctx, mergeEvent("main", "merge", "merged")).Status).To(Equal(brain.StatusSkipped))
			Expect(orch.HandleEvent(ctx, mergeEvent("release", "merge", "merged")).Status).To(Equal(brain.StatusSuccess))
		})

		It("fails the refresh when the snapshot cannot be stored", func() {
			registerProject()
			stores.snapshotErr = errors.New("disk full")

			res := orch.HandleEvent(ctx, mergeEvent("main", "merge", "merged"))

			Expect(res.Status).To(Equal(brain.StatusError))
			Expect(res.State).To(Equal(brain.StateRefreshingSnapshot))
		})
	})
})
