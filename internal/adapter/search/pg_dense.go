package search

import (
	"context"
	"fmt"

	"answerhub/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DenseRepository runs nearest-neighbor queries over the pgvector chunk
// index.
type DenseRepository struct {
	pool *pgxpool.Pool
}

func NewDenseRepository(pool *pgxpool.Pool) *DenseRepository {
	return &DenseRepository{pool: pool}
}

// Search returns the k chunks closest to the query vector by cosine
// distance, best first. Scores are cosine similarity in [0,1] for
// normalized embeddings.
func (r *DenseRepository) Search(ctx context.Context, vector []float32, k int) ([]domain.Candidate, error) {
	query := `
		SELECT c.id, d.title, c.content, 1 - (c.embedding <=> $1) AS score
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY c.embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to run dense search: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ChunkID, &c.SourceDocument, &c.Text, &c.DenseScore); err != nil {
			return nil, fmt.Errorf("failed to scan dense search row: %w", err)
		}
		c.Score = c.DenseScore
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dense search rows: %w", err)
	}
	return candidates, nil
}
