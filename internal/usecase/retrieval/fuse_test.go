package retrieval_test

import (
	"testing"

	"answerhub/internal/domain"
	"answerhub/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateList(ids ...uuid.UUID) []domain.Candidate {
	cands := make([]domain.Candidate, len(ids))
	for i, id := range ids {
		cands[i] = domain.Candidate{ChunkID: id}
	}
	return cands
}

func TestFuseRRF_CandidateInBothListsWins(t *testing.T) {
	shared := uuid.New()
	denseTop := uuid.New()
	sparseTop := uuid.New()

	// shared is ranked second in both lists; the single-list leaders rank
	// first in exactly one.
	dense := candidateList(denseTop, shared)
	sparse := candidateList(sparseTop, shared)

	merged := retrieval.FuseRRF(dense, sparse, 60.0)

	require.Len(t, merged, 3)
	assert.Equal(t, shared, merged[0].ChunkID, "two second places should beat one first place")
}

func TestFuseRRF_ScoreFormula(t *testing.T) {
	shared := uuid.New()
	dense := candidateList(shared)
	sparse := candidateList(shared)

	merged := retrieval.FuseRRF(dense, sparse, 60.0)

	require.Len(t, merged, 1)
	// rank 1 in both lists: 1/(60+1) + 1/(60+1)
	assert.InDelta(t, 2.0/61.0, float64(merged[0].FusedScore), 1e-6)
	assert.Equal(t, merged[0].FusedScore, merged[0].Score)
}

func TestFuseRRF_MonotoneNonIncreasing(t *testing.T) {
	dense := candidateList(uuid.New(), uuid.New(), uuid.New(), uuid.New())
	sparse := candidateList(uuid.New(), dense[1].ChunkID, uuid.New())

	merged := retrieval.FuseRRF(dense, sparse, 60.0)

	require.NotEmpty(t, merged)
	for i := 1; i < len(merged); i++ {
		assert.GreaterOrEqual(t, merged[i-1].Score, merged[i].Score)
	}
}

func TestFuseRRF_DeduplicatesSharedCandidates(t *testing.T) {
	shared := uuid.New()
	dense := candidateList(shared, uuid.New())
	sparse := candidateList(shared, uuid.New())

	merged := retrieval.FuseRRF(dense, sparse, 60.0)

	assert.Len(t, merged, 3)
	seen := make(map[uuid.UUID]bool)
	for _, c := range merged {
		assert.False(t, seen[c.ChunkID], "chunk %s appears twice", c.ChunkID)
		seen[c.ChunkID] = true
	}
}

func TestFuseRRF_KeepsSparseScoreOnSharedCandidate(t *testing.T) {
	shared := uuid.New()
	dense := []domain.Candidate{{ChunkID: shared, DenseScore: 0.9}}
	sparse := []domain.Candidate{{ChunkID: shared, SparseScore: 12.5}}

	merged := retrieval.FuseRRF(dense, sparse, 60.0)

	require.Len(t, merged, 1)
	assert.Equal(t, float32(0.9), merged[0].DenseScore)
	assert.Equal(t, float32(12.5), merged[0].SparseScore)
}

func TestFuseRRF_EmptyInputs(t *testing.T) {
	assert.Empty(t, retrieval.FuseRRF(nil, nil, 60.0))

	only := candidateList(uuid.New())
	merged := retrieval.FuseRRF(only, nil, 60.0)
	require.Len(t, merged, 1)
	assert.InDelta(t, 1.0/61.0, float64(merged[0].FusedScore), 1e-6)
}
