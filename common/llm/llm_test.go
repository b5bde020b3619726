package llm_test

import (
	"context"
	"errors"
	"fmt"

	"basegraph.app/rubberduck/common/llm"
	"github.com/anthropics/anthropic-sdk-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go"
)

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI})
		Expect(err).To(MatchError(ContainSubstring("API key is required")))
	})

	It("rejects unknown providers", func() {
		_, err := llm.New(llm.Config{Provider: "gemini", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	DescribeTable("picks a default model per provider",
		func(provider, expected string) {
			client, err := llm.New(llm.Config{Provider: provider, APIKey: "k"})
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Model()).To(Equal(expected))
		},
		Entry("openai", llm.ProviderOpenAI, "gpt-4o-mini"),
		Entry("empty provider falls back to openai", "", "gpt-4o-mini"),
		Entry("anthropic", llm.ProviderAnthropic, "claude-sonnet-4-5-20250929"),
	)

	It("honours an explicit model", func() {
		client, err := llm.New(llm.Config{Provider: llm.ProviderAnthropic, APIKey: "k", Model: "claude-haiku-4-5"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("claude-haiku-4-5"))
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	It("is false for nil and cancellations", func() {
		Expect(llm.IsRetryable(ctx, nil)).To(BeFalse())
		Expect(llm.IsRetryable(ctx, fmt.Errorf("wrapped: %w", context.Canceled))).To(BeFalse())
		Expect(llm.IsRetryable(ctx, context.DeadlineExceeded)).To(BeFalse())
	})

	It("retries transport failures", func() {
		Expect(llm.IsRetryable(ctx, errors.New("connection reset by peer"))).To(BeTrue())
	})

	DescribeTable("classifies openai status codes",
		func(status int, expected bool) {
			err := fmt.Errorf("openai completion: %w", &openai.Error{StatusCode: status})
			Expect(llm.IsRetryable(ctx, err)).To(Equal(expected))
		},
		Entry("rate limited", 429, true),
		Entry("server error", 503, true),
		Entry("bad request", 400, false),
		Entry("unauthorized", 401, false),
	)

	DescribeTable("classifies anthropic status codes",
		func(status int, expected bool) {
			err := fmt.Errorf("anthropic completion: %w", &anthropic.Error{StatusCode: status})
			Expect(llm.IsRetryable(ctx, err)).To(Equal(expected))
		},
		Entry("overloaded", 529, true),
		Entry("rate limited", 429, true),
		Entry("forbidden", 403, false),
	)
})
