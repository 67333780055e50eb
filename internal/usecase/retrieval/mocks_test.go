package retrieval_test

import (
	"context"
	"io"
	"log/slog"

	"answerhub/internal/cache"
	"answerhub/internal/domain"
	"answerhub/internal/usecase/retrieval"

	"github.com/stretchr/testify/mock"
)

// MockVectorEncoder is a test double for domain.VectorEncoder.
type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string { return "mock-encoder" }

// MockIndexSearcher is a test double for domain.IndexSearcher.
type MockIndexSearcher struct {
	mock.Mock
}

func (m *MockIndexSearcher) SearchDense(ctx context.Context, vector []float32, k int) ([]domain.Candidate, error) {
	args := m.Called(ctx, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candidate), args.Error(1)
}

func (m *MockIndexSearcher) SearchSparse(ctx context.Context, terms string, k int) ([]domain.Candidate, error) {
	args := m.Called(ctx, terms, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candidate), args.Error(1)
}

// MockReranker is a test double for domain.Reranker.
type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	args := m.Called(ctx, query, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RerankResult), args.Error(1)
}

func (m *MockReranker) ModelName() string { return "mock-reranker" }

// MockLLMClient is a test double for domain.LLMClient.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *MockLLMClient) Version() string { return "mock-llm" }

func testDeps(enc *MockVectorEncoder, idx *MockIndexSearcher, rr *MockReranker, llm *MockLLMClient) retrieval.Deps {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	deps := retrieval.Deps{
		Cache:    cache.New(cache.DefaultConfig(), logger),
		Synonyms: retrieval.NewSynonyms(nil),
		Logger:   logger,
	}
	if enc != nil {
		deps.Encoder = enc
	}
	if idx != nil {
		deps.Index = idx
	}
	if rr != nil {
		deps.Reranker = rr
	}
	if llm != nil {
		deps.LLM = llm
	}
	return deps
}

func fastParams() retrieval.Params {
	params := retrieval.DefaultParams()
	params.RetryBackoff = 0
	return params
}
