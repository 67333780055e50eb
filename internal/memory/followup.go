package memory

import (
	"fmt"
	"strings"
)

// rewriteMarker makes query rewriting idempotent: a query that already
// carries conversation context is never wrapped a second time.
const rewriteMarker = "Current question:"

var referentialTokens = []string{
	"it", "its", "that", "this", "those", "these", "they", "them",
	"he", "she", "his", "her",
}

var referentialPhrases = []string{
	"what about", "how about", "and what", "tell me more", "more about",
	"the same", "the previous", "the above", "the first", "the second",
	"why not", "what else", "anything else",
}

// IsFollowUp reports whether the query only makes sense with prior
// conversation context. Very short queries and queries leaning on
// referential words both count.
func IsFollowUp(query string) bool {
	lowered := strings.ToLower(strings.TrimSpace(query))
	if lowered == "" {
		return false
	}

	words := strings.Fields(lowered)
	if len(words) <= 3 {
		return true
	}

	for _, phrase := range referentialPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}

	stripped := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r == ' ' {
			return r
		}
		return -1
	}, lowered)
	for _, w := range strings.Fields(stripped) {
		for _, token := range referentialTokens {
			if w == token {
				return true
			}
		}
	}
	return false
}

// Rewrite prefixes a follow-up query with the conversation context so the
// retrieval pipeline sees a self-contained question. Non-follow-ups and
// queries already rewritten pass through unchanged.
func Rewrite(query string, conversationContext string) string {
	if conversationContext == "" || !IsFollowUp(query) {
		return query
	}
	if strings.Contains(query, rewriteMarker) {
		return query
	}
	return fmt.Sprintf("Previous conversation:\n%s\n\n%s %s", conversationContext, rewriteMarker, query)
}
