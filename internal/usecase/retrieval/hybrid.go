package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"answerhub/internal/domain"
)

// HybridReranked embeds the query, fans out dense and sparse searches
// concurrently, fuses by reciprocal rank, then reranks the head of the
// fused list with the cross-encoder. Reranker failure falls back to the
// fused ordering; dense index failure is fatal for the strategy and the
// orchestrator degrades to SimpleDense.
func HybridReranked(ctx context.Context, deps Deps, params Params, query string) ([]domain.Candidate, error) {
	start := time.Now()
	expanded := deps.Synonyms.Expand(query)
	if expanded != query {
		deps.Logger.Debug("query_expanded", slog.String("expanded", expanded))
	}

	vec, err := EmbedQuery(ctx, deps, params, expanded)
	if err != nil {
		return nil, domain.NewStageError("embedding", err)
	}

	var dense, sparse []domain.Candidate
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return WithRetry(gctx, params.RetryBackoff, func() error {
			var searchErr error
			dense, searchErr = deps.Index.SearchDense(gctx, vec, params.InitialK)
			return searchErr
		})
	})
	g.Go(func() error {
		err := WithRetry(gctx, params.RetryBackoff, func() error {
			var searchErr error
			sparse, searchErr = deps.Index.SearchSparse(gctx, expanded, params.InitialK)
			return searchErr
		})
		if err != nil {
			// Sparse results only sharpen the fusion; dense alone still
			// yields a valid sequence.
			deps.Logger.Warn("sparse_search_failed",
				slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, domain.NewStageError("retrieving", fmt.Errorf("%w: %v", domain.ErrRetrievalUnavailable, err))
	}
	deps.ObserveStage("hybrid_search", start)

	for i := range dense {
		dense[i].Score = dense[i].DenseScore
	}
	for i := range sparse {
		sparse[i].Score = sparse[i].SparseScore
	}

	fused := topN(FuseRRF(dense, sparse, params.RRFK), params.RerankK)
	final := rerankCandidates(ctx, deps, params, query, fused)
	final = topN(final, params.FinalK)

	deps.Logger.Info("hybrid_reranked_completed",
		slog.Int("dense_count", len(dense)),
		slog.Int("sparse_count", len(sparse)),
		slog.Int("candidate_count", len(final)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return final, nil
}

// rerankCandidates scores the fused head with the cross-encoder and blends
// the normalized rerank score with the fused score. Any reranker error
// keeps the fused ordering.
func rerankCandidates(ctx context.Context, deps Deps, params Params, query string, cands []domain.Candidate) []domain.Candidate {
	if deps.Reranker == nil || len(cands) == 0 {
		return cands
	}

	rerankInput := make([]domain.RerankCandidate, len(cands))
	for i, c := range cands {
		rerankInput[i] = domain.RerankCandidate{
			ID:      c.ChunkID.String(),
			Content: c.Text,
			Score:   c.Score,
		}
	}

	rerankCtx, cancel := context.WithTimeout(ctx, params.RerankTimeout)
	defer cancel()

	start := time.Now()
	results, err := deps.Reranker.Rerank(rerankCtx, query, rerankInput)
	if err != nil {
		deps.Logger.Warn("reranking_failed_using_fused_scores",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return cands
	}

	deps.ObserveStage("rerank", start)
	deps.Logger.Info("reranking_completed",
		slog.Int("candidate_count", len(cands)),
		slog.String("model", deps.Reranker.ModelName()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	scores := make(map[string]float32, len(results))
	minScore, maxScore := float32(0), float32(0)
	for i, r := range results {
		scores[r.ID] = r.Score
		if i == 0 || r.Score < minScore {
			minScore = r.Score
		}
		if i == 0 || r.Score > maxScore {
			maxScore = r.Score
		}
	}
	scoreRange := maxScore - minScore
	if scoreRange == 0 {
		scoreRange = 1
	}

	w := float32(params.RerankWeight)
	for i := range cands {
		raw, ok := scores[cands[i].ChunkID.String()]
		if !ok {
			continue
		}
		cands[i].RerankScore = raw
		normalized := (raw - minScore) / scoreRange
		cands[i].Score = (1-w)*cands[i].FusedScore + w*normalized
	}
	sortByScore(cands)
	return cands
}
