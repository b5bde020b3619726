package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/domain"
	"basegraph.app/rubberduck/internal/http/dto"
	"basegraph.app/rubberduck/internal/http/handler/webhook"
	"basegraph.app/rubberduck/internal/mapper"
	"basegraph.app/rubberduck/internal/queue"
)

type fakeProcessor struct {
	mu     sync.Mutex
	events []domain.Event
	result brain.Result
}

func (f *fakeProcessor) HandleEvent(_ context.Context, event domain.Event) brain.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.result
}

func (f *fakeProcessor) Events() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

type fakeEnqueuer struct {
	msgs []queue.EventMessage
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, msg queue.EventMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, msg)
	return "1700000000000-0", nil
}

const issueHook = `{
	"object_kind": "issue",
	"user": {"username": "alice"},
	"project": {"id": 7, "name": "duck", "default_branch": "main"},
	"object_attributes": {"id": 900, "iid": 3, "title": "Rubber Duck Help Me: crash", "description": "it crashes", "action": "open"}
}`

var _ = Describe("GitLabWebhookHandler", func() {
	var (
		router    *gin.Engine
		buf       *bytes.Buffer
		processor *fakeProcessor
		enqueuer  *fakeEnqueuer
		async     bool
		secret    string
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		buf = &bytes.Buffer{}
		slog.SetDefault(slog.New(slog.NewJSONHandler(buf, nil)))

		processor = &fakeProcessor{result: brain.Result{
			Status: brain.StatusSuccess,
			State:  brain.StateCompleted,
			NoteID: 42,
			Intent: brain.IntentSocratic,
		}}
		enqueuer = &fakeEnqueuer{}
		async = false
		secret = "s3cret"
	})

	JustBeforeEach(func() {
		router = gin.New()
		var enq webhook.EventEnqueuer
		if async {
			enq = enqueuer
		}
		h := webhook.NewGitLabWebhookHandler(secret, mapper.NewGitLabEventMapper(), processor, enq)
		router.POST("/webhooks/gitlab", h.HandleEvent)
	})

	send := func(event, token, body string) (*httptest.ResponseRecorder, dto.WebhookResponse) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/gitlab", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("X-Gitlab-Token", token)
		}
		if event != "" {
			req.Header.Set("X-Gitlab-Event", event)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp dto.WebhookResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return w, resp
	}

	It("processes an issue hook synchronously", func() {
		w, resp := send("Issue Hook", "s3cret", issueHook)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp.Status).To(Equal("success"))
		Expect(resp.State).To(Equal("completed"))
		Expect(resp.NoteID).To(Equal(int64(42)))
		Expect(resp.Intent).To(Equal("socratic"))

		events := processor.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].IssueIID).To(Equal(int64(3)))
		Expect(buf.String()).To(ContainSubstring("gitlab webhook processed"))
	})

	It("rejects a wrong token", func() {
		w, _ := send("Issue Hook", "wrong", issueHook)

		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(processor.Events()).To(BeEmpty())
	})

	Context("without a configured secret", func() {
		BeforeEach(func() {
			secret = ""
		})

		It("accepts deliveries without a token", func() {
			w, _ := send("Issue Hook", "", issueHook)
			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})

	It("acknowledges unsupported hooks without processing", func() {
		w, resp := send("Wiki Page Hook", "s3cret", `{"object_kind":"wiki_page","project":{"id":7}}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp.Status).To(Equal(dto.WebhookStatusIgnored))
		Expect(processor.Events()).To(BeEmpty())
	})

	It("rejects malformed payloads", func() {
		w, _ := send("Issue Hook", "s3cret", `{not json`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(processor.Events()).To(BeEmpty())
	})

	It("drops the bot's own notes before processing", func() {
		note := `{
			"object_kind": "note",
			"user": {"username": "duck-bot"},
			"project": {"id": 7},
			"object_attributes": {"id": 55, "note": "` + "**Sended By AI Rubber Duck:**\\n\\nWhat did you expect?" + `", "noteable_type": "Issue"},
			"issue": {"iid": 3, "title": "Rubber Duck Help Me: crash"}
		}`
		w, resp := send("Note Hook", "s3cret", note)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp.Status).To(Equal("skipped"))
		Expect(resp.State).To(Equal("skipped_self_comment"))
		Expect(processor.Events()).To(BeEmpty())
	})

	It("returns 500 when processing fails", func() {
		processor.result = brain.Result{
			Status:  brain.StatusError,
			State:   brain.StateDialoguing,
			Message: "tracker unavailable",
			Err:     errors.New("tracker unavailable"),
		}

		w, resp := send("Issue Hook", "s3cret", issueHook)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(resp.Status).To(Equal("error"))
		Expect(resp.Message).To(Equal("tracker unavailable"))
	})

	It("returns 200 for skipped events", func() {
		processor.result = brain.Result{Status: brain.StatusSkipped, State: brain.StateSkippedNotTriggered}

		w, resp := send("Issue Hook", "s3cret", issueHook)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp.State).To(Equal("skipped_not_triggered"))
	})

	Context("in async mode", func() {
		BeforeEach(func() {
			async = true
		})

		It("queues the event and answers 202", func() {
			w, resp := send("Issue Hook", "s3cret", issueHook)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(resp.Status).To(Equal(dto.WebhookStatusQueued))
			Expect(resp.MessageID).To(Equal("1700000000000-0"))
			Expect(processor.Events()).To(BeEmpty())
			Expect(enqueuer.msgs).To(HaveLen(1))
			Expect(enqueuer.msgs[0].Event.Kind).To(Equal(domain.EventKindIssue))
		})

		It("returns 500 when the stream is unavailable", func() {
			enqueuer.err = errors.New("connection refused")

			w, _ := send("Issue Hook", "s3cret", issueHook)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
