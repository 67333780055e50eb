package domain

import "context"

// RerankCandidate represents a chunk submitted for cross-encoder scoring.
type RerankCandidate struct {
	// ID is the unique identifier for the chunk (used to map back results).
	ID string
	// Content is the text content to be scored against the query.
	Content string
	// Score is the retrieval score the chunk arrived with.
	Score float32
}

// RerankResult represents a reranked chunk with its cross-encoder score.
type RerankResult struct {
	ID    string
	Score float32
}

// Reranker defines the interface for cross-encoder reranking.
// Implementations call an external scoring service; on error, callers fall
// back to the retrieval-stage ordering.
type Reranker interface {
	// Rerank scores candidates against the query. Results are sorted by
	// score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}
