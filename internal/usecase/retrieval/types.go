// Package retrieval implements the three retrieval strategies the
// orchestrator dispatches to: plain dense search, hybrid dense+sparse with
// reranking, and multi-phrasing expansion with vote aggregation.
package retrieval

import (
	"log/slog"
	"sort"
	"time"

	"answerhub/internal/cache"
	"answerhub/internal/domain"
)

// Deps bundles the collaborators every strategy draws on.
type Deps struct {
	Encoder  domain.VectorEncoder
	Index    domain.IndexSearcher
	Reranker domain.Reranker
	LLM      domain.LLMClient
	Cache    *cache.TieredCache
	Synonyms *Synonyms
	Logger   *slog.Logger

	// Stage, when set, receives per-stage latencies.
	Stage func(stage string, d time.Duration)
}

// ObserveStage reports a stage duration when a Stage hook is wired.
func (d Deps) ObserveStage(stage string, start time.Time) {
	if d.Stage != nil {
		d.Stage(stage, time.Since(start))
	}
}

// Params holds the tunable pipeline constants. Zero values are invalid;
// construct via DefaultParams and override from config.
type Params struct {
	// InitialK candidates fetched per search before fusion.
	InitialK int
	// RerankK candidates passed to the cross-encoder.
	RerankK int
	// SimpleFinalK / FinalK bound the candidate sequence returned to the
	// generator for the simple and non-simple strategies respectively.
	SimpleFinalK int
	FinalK       int
	// RRFK is the reciprocal rank fusion constant.
	RRFK float64
	// RerankWeight blends normalized rerank scores with fused scores.
	RerankWeight float64
	// ExpandPhrasings is how many alternative phrasings to request.
	ExpandPhrasings int
	// PhrasingTimeout bounds each expanded sub-pipeline; a phrasing that
	// exceeds it is dropped from aggregation.
	PhrasingTimeout time.Duration
	// RetryBackoff is the pause before the single transient-error retry.
	RetryBackoff time.Duration
	// RerankTimeout is the soft deadline for the cross-encoder call.
	RerankTimeout time.Duration
}

// DefaultParams returns the standard pipeline constants.
func DefaultParams() Params {
	return Params{
		InitialK:        20,
		RerankK:         10,
		SimpleFinalK:    3,
		FinalK:          5,
		RRFK:            60.0,
		RerankWeight:    0.7,
		ExpandPhrasings: 2,
		PhrasingTimeout: 10 * time.Second,
		RetryBackoff:    200 * time.Millisecond,
		RerankTimeout:   15 * time.Second,
	}
}

// sortByScore orders candidates by their active score, descending.
func sortByScore(cands []domain.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})
}

// topN truncates a sorted candidate sequence.
func topN(cands []domain.Candidate, n int) []domain.Candidate {
	if len(cands) > n {
		return cands[:n]
	}
	return cands
}
