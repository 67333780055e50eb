package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients so the embedding,
// reranker and sparse-index clients draw from one connection pool instead
// of re-handshaking per client.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// Fallback timeouts per call profile. Embedding calls are short, grounded
// generation can run for minutes on a large model.
const (
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultGenerateTimeout = 120 * time.Second
	DefaultRerankTimeout   = 15 * time.Second
	DefaultSparseTimeout   = 10 * time.Second
)

// Timeouts carries the per-profile request timeouts. Zero fields fall back
// to the profile default.
type Timeouts struct {
	Embed    time.Duration
	Generate time.Duration
	Rerank   time.Duration
	Sparse   time.Duration
}

// Clients bundles the outbound HTTP clients the engine talks through, all
// sharing one transport.
type Clients struct {
	Embedder  *http.Client
	Generator *http.Client
	Reranker  *http.Client
	Sparse    *http.Client
}

// NewClients builds the full outbound client set from the given timeouts.
func NewClients(t Timeouts) Clients {
	return Clients{
		Embedder:  NewPooledClient(orDefault(t.Embed, DefaultEmbedTimeout)),
		Generator: NewPooledClient(orDefault(t.Generate, DefaultGenerateTimeout)),
		Reranker:  NewPooledClient(orDefault(t.Rerank, DefaultRerankTimeout)),
		Sparse:    NewPooledClient(orDefault(t.Sparse, DefaultSparseTimeout)),
	}
}

// NewPooledClient creates an http.Client that shares the process-wide
// connection pool.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
