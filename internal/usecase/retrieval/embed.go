package retrieval

import (
	"context"
	"fmt"
	"time"
)

// EmbedQuery returns the embedding for a query text, consulting the
// embedding cache tier before calling the encoder. Repeated queries and
// the per-phrasing sub-calls of the expanded strategy both hit this path.
func EmbedQuery(ctx context.Context, deps Deps, params Params, text string) ([]float32, error) {
	if vec, ok := deps.Cache.GetEmbedding(ctx, text); ok {
		return vec, nil
	}

	start := time.Now()
	var vec []float32
	err := WithRetry(ctx, params.RetryBackoff, func() error {
		embeddings, err := deps.Encoder.Encode(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(embeddings) == 0 {
			return fmt.Errorf("no embedding returned")
		}
		vec = embeddings[0]
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	deps.ObserveStage("embed", start)
	deps.Cache.SetEmbedding(ctx, text, vec)
	return vec, nil
}
