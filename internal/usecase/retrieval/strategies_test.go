package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"answerhub/internal/domain"
	"answerhub/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func denseCandidates(scores ...float32) []domain.Candidate {
	cands := make([]domain.Candidate, len(scores))
	for i, s := range scores {
		cands[i] = domain.Candidate{ChunkID: uuid.New(), Text: "chunk", DenseScore: s}
	}
	return cands
}

func TestSimpleDense_ReturnsSortedTopK(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	deps := testDeps(enc, idx, nil, nil)
	params := fastParams()

	enc.On("Encode", mock.Anything, []string{"what is x"}).
		Return([][]float32{{0.1, 0.2}}, nil)
	idx.On("SearchDense", mock.Anything, []float32{0.1, 0.2}, params.SimpleFinalK).
		Return(denseCandidates(0.5, 0.9, 0.7), nil)

	cands, err := retrieval.SimpleDense(context.Background(), deps, params, "what is x")
	require.NoError(t, err)

	require.Len(t, cands, 3)
	assert.Equal(t, float32(0.9), cands[0].Score)
	assert.Equal(t, float32(0.7), cands[1].Score)
	assert.Equal(t, float32(0.5), cands[2].Score)
	enc.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestSimpleDense_IndexDownReturnsRetrievalUnavailable(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	deps := testDeps(enc, idx, nil, nil)

	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := retrieval.SimpleDense(context.Background(), deps, fastParams(), "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)

	var stageErr *domain.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "retrieving", stageErr.Stage)

	// One initial attempt plus exactly one retry.
	idx.AssertNumberOfCalls(t, "SearchDense", 2)
}

func TestSimpleDense_RetriesOnceThenSucceeds(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	deps := testDeps(enc, idx, nil, nil)
	params := fastParams()

	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("transient")).Once()
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).
		Return(denseCandidates(0.8), nil).Once()

	cands, err := retrieval.SimpleDense(context.Background(), deps, params, "query")
	require.NoError(t, err)
	assert.Len(t, cands, 1)
	idx.AssertExpectations(t)
}

func TestEmbedQuery_CachesVector(t *testing.T) {
	enc := new(MockVectorEncoder)
	deps := testDeps(enc, nil, nil, nil)
	params := fastParams()

	enc.On("Encode", mock.Anything, []string{"repeated query"}).
		Return([][]float32{{0.3, 0.4}}, nil).Once()

	first, err := retrieval.EmbedQuery(context.Background(), deps, params, "repeated query")
	require.NoError(t, err)

	second, err := retrieval.EmbedQuery(context.Background(), deps, params, "repeated query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	enc.AssertNumberOfCalls(t, "Encode", 1)
}

func TestHybridReranked_SparseFailureIsNonFatal(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	deps := testDeps(enc, idx, nil, nil)
	params := fastParams()

	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	idx.On("SearchDense", mock.Anything, mock.Anything, params.InitialK).
		Return(denseCandidates(0.9, 0.8), nil)
	idx.On("SearchSparse", mock.Anything, mock.Anything, params.InitialK).
		Return(nil, errors.New("bm25 index down"))

	cands, err := retrieval.HybridReranked(context.Background(), deps, params, "query")
	require.NoError(t, err)
	assert.Len(t, cands, 2)
}

func TestHybridReranked_DenseFailureIsFatal(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	deps := testDeps(enc, idx, nil, nil)
	params := fastParams()

	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("pg down"))
	idx.On("SearchSparse", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Candidate{}, nil).Maybe()

	_, err := retrieval.HybridReranked(context.Background(), deps, params, "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
}

func TestHybridReranked_RerankerFailureKeepsFusedOrder(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	rr := new(MockReranker)
	deps := testDeps(enc, idx, rr, nil)
	params := fastParams()

	dense := denseCandidates(0.9, 0.8, 0.7)
	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).Return(dense, nil)
	idx.On("SearchSparse", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Candidate{}, nil)
	rr.On("Rerank", mock.Anything, "query", mock.Anything).
		Return(nil, errors.New("reranker overloaded"))

	cands, err := retrieval.HybridReranked(context.Background(), deps, params, "query")
	require.NoError(t, err)

	require.Len(t, cands, 3)
	// Fused order follows dense rank when sparse is empty.
	assert.Equal(t, dense[0].ChunkID, cands[0].ChunkID)
	assert.Equal(t, dense[1].ChunkID, cands[1].ChunkID)
	assert.Equal(t, dense[2].ChunkID, cands[2].ChunkID)
}

func TestHybridReranked_RerankReordersByBlendedScore(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	rr := new(MockReranker)
	deps := testDeps(enc, idx, rr, nil)
	params := fastParams()

	dense := denseCandidates(0.9, 0.8)
	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).Return(dense, nil)
	idx.On("SearchSparse", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Candidate{}, nil)

	// The cross-encoder strongly prefers the candidate dense ranked last.
	rr.On("Rerank", mock.Anything, "query", mock.Anything).
		Return([]domain.RerankResult{
			{ID: dense[1].ChunkID.String(), Score: 0.99},
			{ID: dense[0].ChunkID.String(), Score: 0.10},
		}, nil)

	cands, err := retrieval.HybridReranked(context.Background(), deps, params, "query")
	require.NoError(t, err)

	require.Len(t, cands, 2)
	assert.Equal(t, dense[1].ChunkID, cands[0].ChunkID)
	assert.Equal(t, float32(0.99), cands[0].RerankScore)
}

func TestAdvancedExpanded_MergesPhrasingVotes(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	llm := new(MockLLMClient)
	deps := testDeps(enc, idx, nil, llm)
	params := fastParams()

	shared := denseCandidates(0.9)[0]
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "alternative phrasing one\nalternative phrasing two", Done: true}, nil)
	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	// Every phrasing finds the shared chunk plus a unique one.
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Candidate{shared, denseCandidates(0.5)[0]}, nil)
	idx.On("SearchSparse", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Candidate{}, nil)

	cands, err := retrieval.AdvancedExpanded(context.Background(), deps, params, "original query")
	require.NoError(t, err)

	require.NotEmpty(t, cands)
	assert.Equal(t, shared.ChunkID, cands[0].ChunkID,
		"the chunk every phrasing found should rank first")
	assert.LessOrEqual(t, len(cands), params.FinalK)
}

func TestAdvancedExpanded_PhrasingGenerationFailureStillRetrieves(t *testing.T) {
	enc := new(MockVectorEncoder)
	idx := new(MockIndexSearcher)
	llm := new(MockLLMClient)
	deps := testDeps(enc, idx, nil, llm)
	params := fastParams()

	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("llm down"))
	enc.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)
	idx.On("SearchDense", mock.Anything, mock.Anything, mock.Anything).
		Return(denseCandidates(0.8), nil)
	idx.On("SearchSparse", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Candidate{}, nil)

	cands, err := retrieval.AdvancedExpanded(context.Background(), deps, params, "original query")
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestGeneratePhrasings_ParsesLinesAndSkipsEcho(t *testing.T) {
	llm := new(MockLLMClient)
	deps := testDeps(nil, nil, nil, llm)
	params := fastParams()

	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{
			Text: "1. first alternative\n\nOriginal Query\n- second alternative\nthird alternative",
			Done: true,
		}, nil)

	phrasings := retrieval.GeneratePhrasings(context.Background(), deps, params, "original query")

	require.Len(t, phrasings, params.ExpandPhrasings)
	assert.Equal(t, "first alternative", phrasings[0])
	assert.Equal(t, "second alternative", phrasings[1])
}
