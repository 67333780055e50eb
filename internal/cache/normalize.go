package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// articles dropped during normalization. Matches the fuzzy-exact matching
// behavior: two phrasings that differ only in articles, casing, spacing or
// punctuation share one normalized key.
var articles = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
}

// Canonicalize trims and lowercases a query. This is the exact-tier key
// derivation: the same logical query text must always produce the same key.
func Canonicalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Normalize reduces a query to its semantic tokens: lowercase, collapsed
// whitespace, punctuation stripped (question marks kept), articles removed.
func Normalize(query string) string {
	lowered := Canonicalize(query)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '?':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, drop := articles[w]; !drop {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// HashKey derives a fixed-width cache key from arbitrary text.
func HashKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
