package retrieval

import (
	"answerhub/internal/domain"

	"github.com/google/uuid"
)

// FuseRRF merges a dense and a sparse result list by reciprocal rank
// fusion: each candidate's fused score is the sum of 1/(rrfK + rank)
// across the lists it appears in, ranks 1-indexed. The merged sequence is
// sorted by fused score, descending.
func FuseRRF(dense, sparse []domain.Candidate, rrfK float64) []domain.Candidate {
	type fused struct {
		cand  domain.Candidate
		score float64
	}
	byID := make(map[uuid.UUID]*fused, len(dense)+len(sparse))
	order := make([]uuid.UUID, 0, len(dense)+len(sparse))

	for rank, c := range dense {
		f := &fused{cand: c}
		f.score = 1.0 / (rrfK + float64(rank+1))
		byID[c.ChunkID] = f
		order = append(order, c.ChunkID)
	}

	for rank, c := range sparse {
		contribution := 1.0 / (rrfK + float64(rank+1))
		if existing, ok := byID[c.ChunkID]; ok {
			existing.score += contribution
			existing.cand.SparseScore = c.SparseScore
			continue
		}
		f := &fused{cand: c, score: contribution}
		byID[c.ChunkID] = f
		order = append(order, c.ChunkID)
	}

	merged := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		f := byID[id]
		f.cand.FusedScore = float32(f.score)
		f.cand.Score = f.cand.FusedScore
		merged = append(merged, f.cand)
	}

	sortByScore(merged)
	return merged
}
