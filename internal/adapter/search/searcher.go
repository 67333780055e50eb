package search

import (
	"context"

	"answerhub/internal/domain"
)

// Searcher combines the pgvector dense index and the BM25 keyword index
// behind domain.IndexSearcher.
type Searcher struct {
	dense  *DenseRepository
	sparse *BM25Client
}

func NewSearcher(dense *DenseRepository, sparse *BM25Client) *Searcher {
	return &Searcher{dense: dense, sparse: sparse}
}

func (s *Searcher) SearchDense(ctx context.Context, vector []float32, k int) ([]domain.Candidate, error) {
	return s.dense.Search(ctx, vector, k)
}

func (s *Searcher) SearchSparse(ctx context.Context, terms string, k int) ([]domain.Candidate, error) {
	return s.sparse.Search(ctx, terms, k)
}

var _ domain.IndexSearcher = (*Searcher)(nil)
