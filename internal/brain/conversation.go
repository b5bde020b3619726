package brain

import (
	"fmt"
	"strings"

	"basegraph.app/rubberduck/internal/domain"
)

const noDescription = "No description provided."

type HistoryEntryKind string

const (
	HistoryUserResponses HistoryEntryKind = "user_responses"
	HistoryAIQuestion    HistoryEntryKind = "ai_question"
)

type HistoryEntry struct {
	Kind HistoryEntryKind
	Text string
}

// Conversation is the two-party view of an issue thread. Human comments after
// the last bot turn live in ProblemStatement, never in History.
type Conversation struct {
	ProblemStatement string
	History          []HistoryEntry
}

// FormattedHistory renders History the way prompts expect it. Empty when the
// duck has not spoken yet.
func (c Conversation) FormattedHistory() string {
	parts := make([]string, len(c.History))
	for i, entry := range c.History {
		parts[i] = entry.Text
	}
	return strings.Join(parts, "\n---\n")
}

// ReconstructConversation rebuilds the dialogue from a flat comment list.
// Comments may arrive in any order; system notes are ignored.
func ReconstructConversation(title, description string, comments []domain.Comment) Conversation {
	if strings.TrimSpace(description) == "" {
		description = noDescription
	}

	conv := Conversation{
		ProblemStatement: fmt.Sprintf("Issue Title: %s\nIssue Description:\n%s", title, description),
	}

	var pending []string
	for _, c := range domain.SortAscending(comments) {
		if c.System {
			continue
		}

		if !IsBotAuthored(c.Body) {
			pending = append(pending, fmt.Sprintf("User (%s): %s", c.Author, c.Body))
			continue
		}

		if len(pending) > 0 {
			conv.History = append(conv.History, HistoryEntry{
				Kind: HistoryUserResponses,
				Text: "User responses since last AI question:\n" + strings.Join(pending, "\n"),
			})
			pending = nil
		}
		conv.History = append(conv.History, HistoryEntry{
			Kind: HistoryAIQuestion,
			Text: "Previous AI Question: " + stripSignature(c.Body),
		})
	}

	if len(pending) > 0 {
		conv.ProblemStatement += "\n\nFurther comments/details from user:\n" + strings.Join(pending, "\n")
	}

	return conv
}
