package retrieval

import "strings"

// Synonyms maps vague casual terms to the domain vocabulary documents
// actually use. Expansion happens before search at zero latency cost: the
// table is consulted in-process, never over the network.
type Synonyms struct {
	table map[string][]string
	// perWord bounds how many synonyms one term contributes.
	perWord int
}

// DefaultSynonymTable maps the casual wording users type to the formal
// vocabulary the document corpus uses.
func DefaultSynonymTable() map[string][]string {
	return map[string][]string{
		"song":     {"national anthem", "anthem", "music"},
		"music":    {"anthem", "national anthem", "song"},
		"hat":      {"headgear", "cover", "cap"},
		"cap":      {"headgear", "cover"},
		"beard":    {"facial hair", "grooming", "shaving"},
		"shave":    {"shaving", "facial hair", "grooming"},
		"shaving":  {"shave", "facial hair", "grooming"},
		"clothes":  {"uniform", "attire", "dress"},
		"clothing": {"uniform", "attire", "dress"},
		"tattoo":   {"body art", "ink"},
		"tattoos":  {"tattoo", "body art"},
		"earring":  {"jewelry", "accessory"},
		"earrings": {"earring", "jewelry"},
		"jewelry":  {"accessory", "earring", "ornament"},
		"salute":   {"saluting", "render honors", "courtesy"},
		"saluting": {"salute", "render honors", "courtesy"},
	}
}

// NewSynonyms builds a synonym expander from a term table. A nil or empty
// table yields a no-op expander.
func NewSynonyms(table map[string][]string) *Synonyms {
	normalized := make(map[string][]string, len(table))
	for term, alts := range table {
		normalized[strings.ToLower(term)] = alts
	}
	return &Synonyms{table: normalized, perWord: 2}
}

// Expand appends synonyms for any query word found in the table. The
// original wording always stays first so exact matches keep their rank.
func (s *Synonyms) Expand(query string) string {
	if s == nil || len(s.table) == 0 {
		return query
	}

	words := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.Trim(w, ".,!?")] = struct{}{}
	}

	var extra []string
	for _, w := range words {
		clean := strings.Trim(w, ".,!?")
		alts, ok := s.table[clean]
		if !ok {
			continue
		}
		added := 0
		for _, alt := range alts {
			if added == s.perWord {
				break
			}
			if _, dup := seen[alt]; dup {
				continue
			}
			seen[alt] = struct{}{}
			extra = append(extra, alt)
			added++
		}
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
