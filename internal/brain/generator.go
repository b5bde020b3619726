package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/rubberduck/common/llm"
)

// GenerateRequest is everything one turn of the dialogue is generated from.
type GenerateRequest struct {
	ProblemStatement  string
	History           string
	RepositoryContext string
	Intent            Intent
}

// Generator turns a dialogue state into reply text, without the signature.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type llmGenerator struct {
	client llm.Client
}

func NewLLMGenerator(client llm.Client) Generator {
	return &llmGenerator{client: client}
}

func (g *llmGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%w: no llm client configured", ErrConfiguration)
	}

	prompt := BuildPrompt(req)
	start := time.Now()

	resp, err := g.client.Complete(ctx, llm.Request{
		SystemPrompt: framingFor(req.Intent).systemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		if llm.IsRetryable(ctx, err) {
			return "", fmt.Errorf("%w: generating %s reply: %w", ErrTransient, req.Intent, err)
		}
		return "", fmt.Errorf("generating %s reply: %w", req.Intent, err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		slog.WarnContext(ctx, "llm returned no content",
			"intent", req.Intent,
			"finish_reason", resp.FinishReason)
		return "", ErrEmptyGeneration
	}

	slog.InfoContext(ctx, "reply generated",
		"intent", req.Intent,
		"model", g.client.Model(),
		"prompt_chars", len(prompt),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"latency_ms", time.Since(start).Milliseconds())

	return decorate(req.Intent, text), nil
}
