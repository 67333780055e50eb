package domain

import "context"

// IndexSearcher wraps the vector/keyword index. Dense search runs
// nearest-neighbor over embeddings; sparse search is BM25-style keyword
// retrieval. Both return candidates ordered by their respective score,
// descending.
type IndexSearcher interface {
	SearchDense(ctx context.Context, vector []float32, k int) ([]Candidate, error)
	SearchSparse(ctx context.Context, terms string, k int) ([]Candidate, error)
}
