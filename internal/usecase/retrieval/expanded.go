package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"answerhub/internal/domain"

	"github.com/google/uuid"
)

// AdvancedExpanded asks the LLM for alternative phrasings, runs the hybrid
// pipeline once per phrasing concurrently, and merges the result sets by
// summed normalized score per chunk. A phrasing that errors or exceeds its
// timeout is simply omitted; the strategy fails only when every phrasing
// fails.
func AdvancedExpanded(ctx context.Context, deps Deps, params Params, query string) ([]domain.Candidate, error) {
	start := time.Now()

	phrasings := GeneratePhrasings(ctx, deps, params, query)
	allQueries := append([]string{query}, phrasings...)

	deps.Logger.Info("query_expanded",
		slog.String("original", query),
		slog.Any("phrasings", phrasings))

	type phraseResult struct {
		index int
		cands []domain.Candidate
		err   error
	}

	results := make([]phraseResult, len(allQueries))
	var wg sync.WaitGroup
	for i, q := range allQueries {
		wg.Add(1)
		go func(idx int, phrasing string) {
			defer wg.Done()
			subCtx, cancel := context.WithTimeout(ctx, params.PhrasingTimeout)
			defer cancel()
			cands, err := HybridReranked(subCtx, deps, params, phrasing)
			results[idx] = phraseResult{index: idx, cands: cands, err: err}
		}(i, q)
	}
	wg.Wait()

	var lists [][]domain.Candidate
	var lastErr error
	for _, r := range results {
		if r.err != nil {
			deps.Logger.Warn("phrasing_pipeline_failed",
				slog.Int("phrasing_index", r.index),
				slog.String("error", r.err.Error()))
			lastErr = r.err
			continue
		}
		lists = append(lists, r.cands)
	}
	if len(lists) == 0 {
		return nil, domain.NewStageError("retrieving", fmt.Errorf("all phrasings failed: %w", lastErr))
	}

	merged := mergeByVote(lists)
	merged = topN(merged, params.FinalK)

	deps.Logger.Info("advanced_expanded_completed",
		slog.Int("phrasing_count", len(allQueries)),
		slog.Int("successful_phrasings", len(lists)),
		slog.Int("candidate_count", len(merged)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return merged, nil
}

// GeneratePhrasings asks the LLM for alternative wordings of the query.
// Failure is non-fatal: the original query alone still drives a valid
// retrieval.
func GeneratePhrasings(ctx context.Context, deps Deps, params Params, query string) []string {
	prompt := fmt.Sprintf(`Generate %d alternative phrasings of the search query below using different words.
Output ONLY the phrasings, one per line. Do not add numbering, bullets or explanations.

Query: %s`, params.ExpandPhrasings, query)

	resp, err := deps.LLM.Generate(ctx, prompt, 200)
	if err != nil {
		deps.Logger.Warn("phrasing_generation_failed", slog.String("error", err.Error()))
		return nil
	}

	var phrasings []string
	for _, line := range strings.Split(resp.Text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "0123456789.-) "))
		if trimmed == "" || strings.EqualFold(trimmed, query) {
			continue
		}
		phrasings = append(phrasings, trimmed)
		if len(phrasings) == params.ExpandPhrasings {
			break
		}
	}
	return phrasings
}

// mergeByVote sums per-list normalized scores per unique chunk, so a chunk
// found by several phrasings outranks a chunk found once with a high
// score. The merged score is averaged over the list count to stay in
// [0,1].
func mergeByVote(lists [][]domain.Candidate) []domain.Candidate {
	type vote struct {
		cand domain.Candidate
		sum  float64
	}
	byID := make(map[uuid.UUID]*vote)
	order := make([]uuid.UUID, 0)

	for _, list := range lists {
		var maxScore float32
		for _, c := range list {
			if c.Score > maxScore {
				maxScore = c.Score
			}
		}
		if maxScore == 0 {
			maxScore = 1
		}
		for _, c := range list {
			normalized := float64(c.Score / maxScore)
			if v, ok := byID[c.ChunkID]; ok {
				v.sum += normalized
				continue
			}
			byID[c.ChunkID] = &vote{cand: c, sum: normalized}
			order = append(order, c.ChunkID)
		}
	}

	merged := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		v := byID[id]
		v.cand.Score = float32(v.sum / float64(len(lists)))
		merged = append(merged, v.cand)
	}
	sortByScore(merged)
	return merged
}
