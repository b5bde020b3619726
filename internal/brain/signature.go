package brain

import "strings"

// BotSignature prefixes every note the duck posts.
const BotSignature = "**Sended By AI Rubber Duck:**\n"

// botSignatures lists every prefix the duck has ever signed with, newest
// first. Older threads still carry the legacy forms.
var botSignatures = []string{
	BotSignature,
	"<!-- AI Rubber Duck -->",
	"**Sended By AI Rubber Duck:**",
	"Sended By AI Rubber Duck:",
	"AI Rubber Duck:",
}

// IsBotAuthored reports whether a comment body carries any known signature.
func IsBotAuthored(body string) bool {
	for _, sig := range botSignatures {
		if strings.HasPrefix(body, sig) {
			return true
		}
	}
	return false
}

// IsSelfComment is the ingress check: an event whose body the duck wrote
// must never start a turn.
func IsSelfComment(body string) bool {
	return IsBotAuthored(body)
}

// Sign prepends the canonical signature to a generated reply.
func Sign(text string) string {
	return BotSignature + "\n" + text
}

// stripSignature removes the leading signature, whichever version it is.
func stripSignature(body string) string {
	for _, sig := range botSignatures {
		if strings.HasPrefix(body, sig) {
			return strings.TrimSpace(strings.TrimPrefix(body, sig))
		}
	}
	return strings.TrimSpace(body)
}
