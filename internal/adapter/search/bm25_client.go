package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"answerhub/internal/domain"

	"github.com/google/uuid"
)

// BM25Client queries the external keyword index over HTTP.
type BM25Client struct {
	BaseURL string
	Client  *http.Client
}

func NewBM25Client(baseURL string, timeout time.Duration, client *http.Client) *BM25Client {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &BM25Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

type sparseSearchResponse struct {
	Query string      `json:"query"`
	Hits  []sparseHit `json:"hits"`
}

type sparseHit struct {
	ChunkID  string  `json:"chunk_id"`
	Document string  `json:"document"`
	Content  string  `json:"content"`
	Score    float32 `json:"score"`
}

// Search runs a BM25 keyword query and returns candidates best first.
func (c *BM25Client) Search(ctx context.Context, terms string, k int) ([]domain.Candidate, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/search", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("q", terms)
	q.Set("k", strconv.Itoa(k))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparse search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sparse search returned status: %d", resp.StatusCode)
	}

	var sResp sparseSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sResp); err != nil {
		return nil, fmt.Errorf("failed to decode sparse search response: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(sResp.Hits))
	for _, h := range sResp.Hits {
		id, err := uuid.Parse(h.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("invalid chunk id %q in sparse hit: %w", h.ChunkID, err)
		}
		candidates = append(candidates, domain.Candidate{
			ChunkID:        id,
			SourceDocument: h.Document,
			Text:           h.Content,
			SparseScore:    h.Score,
			Score:          h.Score,
		})
	}
	return candidates, nil
}
