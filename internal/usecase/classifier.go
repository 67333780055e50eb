package usecase

import (
	"fmt"
	"slices"
	"strings"

	"answerhub/internal/domain"
)

// Question starters grouped by the complexity they signal. Order matters:
// multi-word starters are checked before their single-word prefixes.
var (
	simpleStarters   = []string{"where", "who", "when", "which", "is there", "does", "can i", "do i"}
	moderateStarters = []string{"what", "how many", "how much", "list"}
	complexStarters  = []string{"why", "how does", "explain", "analyze", "compare", "evaluate", "recommend"}
)

// ClassifierConfig holds the threshold bands and the input cap.
type ClassifierConfig struct {
	// SimpleMax is the inclusive upper score bound for simple queries.
	SimpleMax int
	// ModerateMax is the inclusive upper score bound for moderate queries.
	ModerateMax int
	// MaxQueryChars rejects pathological input before scoring.
	MaxQueryChars int
}

// DefaultClassifierConfig returns the thresholds used when nothing is
// configured.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SimpleMax:     1,
		ModerateMax:   3,
		MaxQueryChars: 2000,
	}
}

// Classifier scores query complexity and selects a retrieval strategy.
// Classification is deterministic: identical text always yields the same
// result, which the exact cache tier depends on.
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Validate rejects input the pipeline refuses to process.
func (c *Classifier) Validate(query string) error {
	if strings.TrimSpace(query) == "" {
		return domain.ErrInvalidQuery
	}
	if len(query) > c.cfg.MaxQueryChars {
		return fmt.Errorf("%w: %d chars exceeds cap of %d", domain.ErrQueryTooLong, len(query), c.cfg.MaxQueryChars)
	}
	return nil
}

// Classify assigns a complexity band and strategy to a query. Every factor
// and its contribution is retained for the explanation output.
func (c *Classifier) Classify(query string) (*domain.Classification, error) {
	if err := c.Validate(query); err != nil {
		return nil, err
	}

	lowered := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(query)
	score := 0
	factors := make(map[string]string)

	lengthScore := 0
	switch {
	case len(words) <= 6:
		lengthScore = 0
	case len(words) <= 10:
		lengthScore = 1
	case len(words) <= 15:
		lengthScore = 2
	default:
		lengthScore = 3
	}
	score += lengthScore
	factors["length"] = fmt.Sprintf("%d words (+%d)", len(words), lengthScore)

	switch starter := matchStarter(lowered); {
	case starter != "" && slices.Contains(simpleStarters, starter):
		factors["question_type"] = starter + " (+0)"
	case starter != "" && slices.Contains(moderateStarters, starter):
		score++
		factors["question_type"] = starter + " (+1)"
	case starter != "":
		score += 3
		factors["question_type"] = starter + " (+3)"
	default:
		factors["question_type"] = "other (+0)"
	}

	if strings.Contains(lowered, " and ") {
		score++
		factors["has_and_operator"] = "yes (+1)"
	}
	if strings.Contains(lowered, " or ") {
		score++
		factors["has_or_operator"] = "yes (+1)"
	}
	if n := strings.Count(query, "?"); n > 1 {
		score += 2
		factors["multiple_questions"] = fmt.Sprintf("%d questions (+2)", n)
	}

	// Ties resolve toward the lower-complexity band.
	var qtype domain.QueryType
	switch {
	case score <= c.cfg.SimpleMax:
		qtype = domain.QueryTypeSimple
	case score <= c.cfg.ModerateMax:
		qtype = domain.QueryTypeModerate
	default:
		qtype = domain.QueryTypeComplex
	}

	return &domain.Classification{
		Type:     qtype,
		Score:    score,
		Factors:  factors,
		Strategy: StrategyFor(qtype),
	}, nil
}

// Thresholds exposes the configured bands for explanation output.
func (c *Classifier) Thresholds() map[string]int {
	return map[string]int{
		"simple_max":   c.cfg.SimpleMax,
		"moderate_max": c.cfg.ModerateMax,
	}
}

// StrategyFor maps a complexity band to its retrieval strategy.
func StrategyFor(qtype domain.QueryType) domain.Strategy {
	switch qtype {
	case domain.QueryTypeSimple:
		return domain.StrategySimpleDense
	case domain.QueryTypeModerate:
		return domain.StrategyHybridReranked
	default:
		return domain.StrategyAdvancedExpanded
	}
}

// StrategyReasoning explains why a band maps to its strategy.
func StrategyReasoning(qtype domain.QueryType) string {
	switch qtype {
	case domain.QueryTypeSimple:
		return "straightforward query requires only dense vector retrieval"
	case domain.QueryTypeModerate:
		return "moderate complexity benefits from hybrid sparse+dense search with reranking"
	default:
		return "high complexity requires query expansion and result fusion"
	}
}

// matchStarter returns the first starter phrase the query begins with,
// longest groups first so "how does" wins over "how".
func matchStarter(lowered string) string {
	for _, group := range [][]string{complexStarters, moderateStarters, simpleStarters} {
		for _, s := range group {
			if strings.HasPrefix(lowered, s) {
				return s
			}
		}
	}
	return ""
}
