package brain

import (
	"strings"
	"unicode/utf8"
)

// Intent selects the response strategy for the next turn.
type Intent string

const (
	IntentClosing     Intent = "closing"
	IntentExplanation Intent = "explanation"
	IntentAnalysis    Intent = "analysis"
	IntentSocratic    Intent = "socratic"
)

// longDialogueRunes is the history length past which an unmatched dialogue
// stays in guided mode.
const longDialogueRunes = 500

type intentRule struct {
	intent   Intent
	keywords []string
}

// Evaluated top to bottom; the first hit wins.
var intentRules = []intentRule{
	{
		intent: IntentClosing,
		keywords: []string{
			"i got it", "got it", "issue is solved", "problem is solved",
			"thank you", "thanks", "i have fixed", "i have fix", "fixed it",
			"solved it", "that worked", "it works now", "working now",
			"problem solved", "all good", "perfect", "exactly what i needed",
			"that did it", "issue resolved", "resolved", "figured it out",
			"found the solution", "no more help needed", "all set",
		},
	},
	{
		intent: IntentExplanation,
		keywords: []string{
			"explain", "how does", "what is", "can you tell me",
			"help me understand", "show me", "teach me", "what does this mean",
			"please explain", "give me the answer", "just tell me",
			"solve this for me", "provide the solution", "show me the code",
			"what should i do",
		},
	},
	{
		intent: IntentAnalysis,
		keywords: []string{
			"review my code", "analyze", "is this good", "optimize", "improve",
			"best practice", "code review", "performance", "refactor",
		},
	},
	{
		intent: IntentSocratic,
		keywords: []string{
			"help me think", "guide me", "rubber duck", "ask me questions",
			"help me debug", "walk me through", "help me figure out",
		},
	},
}

var reviewTerms = []string{"review", "analyze", "improve"}

// ClassifyIntent picks the strategy for the current turn from the live problem
// statement and the formatted history. It never fails.
func ClassifyIntent(problem, history string) Intent {
	text := strings.ToLower(problem + " " + history)

	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.intent
			}
		}
	}

	if utf8.RuneCountInString(history) > longDialogueRunes {
		return IntentSocratic
	}

	if strings.Contains(text, "code") {
		for _, term := range reviewTerms {
			if strings.Contains(text, term) {
				return IntentAnalysis
			}
		}
	}

	return IntentSocratic
}
