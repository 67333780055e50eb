package feedback

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRecorder struct {
	pool *pgxpool.Pool
}

// NewPgRecorder creates a Recorder backed by the answer_feedback table.
func NewPgRecorder(pool *pgxpool.Pool) Recorder {
	return &pgRecorder{pool: pool}
}

func (r *pgRecorder) Record(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO answer_feedback (id, answer_id, query, rating, strategy, confidence, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.AnswerID,
		entry.Query,
		string(entry.Rating),
		entry.Strategy,
		entry.Confidence,
		entry.Comment,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

func (r *pgRecorder) StatsByStrategy(ctx context.Context) ([]StrategyStats, error) {
	query := `
		SELECT strategy,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE rating = 'helpful') AS helpful,
		       COALESCE(AVG(confidence), 0) AS avg_confidence
		FROM answer_feedback
		GROUP BY strategy
		ORDER BY strategy
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback stats: %w", err)
	}
	defer rows.Close()

	var stats []StrategyStats
	for rows.Next() {
		var s StrategyStats
		if err := rows.Scan(&s.Strategy, &s.Total, &s.Helpful, &s.AvgConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan feedback stats: %w", err)
		}
		if s.Total > 0 {
			s.HelpfulRate = float64(s.Helpful) / float64(s.Total)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback stats: %w", err)
	}
	return stats, nil
}
