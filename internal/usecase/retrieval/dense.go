package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"answerhub/internal/domain"
)

// SimpleDense runs the cheapest strategy: embed the query, one dense
// nearest-neighbor search, no reranking. This is also the degradation
// target when the richer strategies lose their collaborators.
func SimpleDense(ctx context.Context, deps Deps, params Params, query string) ([]domain.Candidate, error) {
	start := time.Now()
	expanded := deps.Synonyms.Expand(query)
	if expanded != query {
		deps.Logger.Debug("query_expanded", slog.String("expanded", expanded))
	}

	vec, err := EmbedQuery(ctx, deps, params, expanded)
	if err != nil {
		return nil, domain.NewStageError("embedding", err)
	}

	var cands []domain.Candidate
	err = WithRetry(ctx, params.RetryBackoff, func() error {
		var searchErr error
		cands, searchErr = deps.Index.SearchDense(ctx, vec, params.SimpleFinalK)
		return searchErr
	})
	if err != nil {
		// A dead dense index leaves nothing to degrade to.
		return nil, domain.NewStageError("retrieving", fmt.Errorf("%w: %v", domain.ErrRetrievalUnavailable, err))
	}

	deps.ObserveStage("dense_search", start)
	for i := range cands {
		cands[i].Score = cands[i].DenseScore
	}
	sortByScore(cands)
	cands = topN(cands, params.SimpleFinalK)

	deps.Logger.Info("simple_dense_completed",
		slog.Int("candidate_count", len(cands)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return cands, nil
}
