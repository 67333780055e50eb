// Package cache implements the five-tier lookup hierarchy that shields the
// retrieval pipeline from repeated embedding, retrieval and generation work.
// Tiers are probed cheapest-first; every backend failure reads as a miss so
// a cache outage can never fail a request.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"answerhub/internal/domain"
)

// Tier identifies one cache level.
type Tier int

const (
	// TierExact keys on the trimmed, lowercased query text.
	TierExact Tier = iota + 1
	// TierNormalized keys on the stopword/punctuation-normalized query.
	TierNormalized
	// TierSemantic matches by nearest-neighbor over stored query embeddings.
	TierSemantic
	// TierEmbedding keys on exact query text; values are embedding vectors.
	TierEmbedding
	// TierGenerated keys on hash(retrieved context + query); values are
	// synthesized answer texts.
	TierGenerated

	tierCount = int(TierGenerated)
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNormalized:
		return "normalized"
	case TierSemantic:
		return "semantic"
	case TierEmbedding:
		return "embedding"
	case TierGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// TierConfig bounds one tier.
type TierConfig struct {
	MaxEntries int
	TTL        time.Duration
}

// Config holds per-tier bounds plus the semantic match threshold.
type Config struct {
	Exact      TierConfig
	Normalized TierConfig
	Semantic   TierConfig
	Embedding  TierConfig
	Generated  TierConfig

	// SemanticThreshold is the minimum cosine similarity for a semantic
	// tier hit. Kept strict: a wrong reuse is worse than a recompute.
	SemanticThreshold float64
}

// DefaultConfig returns the tier bounds used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Exact:             TierConfig{MaxEntries: 2048, TTL: time.Hour},
		Normalized:        TierConfig{MaxEntries: 2048, TTL: time.Hour},
		Semantic:          TierConfig{MaxEntries: 512, TTL: 10 * time.Minute},
		Embedding:         TierConfig{MaxEntries: 8192, TTL: 24 * time.Hour},
		Generated:         TierConfig{MaxEntries: 2048, TTL: time.Hour},
		SemanticThreshold: 0.95,
	}
}

type semanticEntry struct {
	vector  []float32
	payload []byte
}

// Option configures optional cache collaborators.
type Option func(*TieredCache)

// WithRemote extends the exact, normalized, embedding and generated tiers
// with a Redis backend. The semantic tier stays local: its scan-based
// lookup does not pay for a network round trip per candidate.
func WithRemote(client *redis.Client) Option {
	return func(c *TieredCache) { c.remote = client }
}

// WithObserver installs a per-lookup hook, used to feed metrics.
func WithObserver(fn func(tier Tier, hit bool)) Option {
	return func(c *TieredCache) { c.observe = fn }
}

// TieredCache is the five-level cache. All methods are safe for concurrent
// callers; concurrent writers to one key race with last-write-wins, which
// is acceptable because entries are recomputable.
type TieredCache struct {
	cfg     Config
	remote  *redis.Client
	observe func(Tier, bool)

	exact      *tierStore
	normalized *tierStore
	embedding  *tierStore
	generated  *tierStore

	semMu    sync.Mutex
	semantic *expirable.LRU[string, semanticEntry]

	stats  counters
	logger *slog.Logger
}

// New constructs the cache with the given tier bounds.
func New(cfg Config, logger *slog.Logger, opts ...Option) *TieredCache {
	c := &TieredCache{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	c.exact = newTierStore(TierExact, cfg.Exact, c.remote, logger)
	c.normalized = newTierStore(TierNormalized, cfg.Normalized, c.remote, logger)
	c.embedding = newTierStore(TierEmbedding, cfg.Embedding, c.remote, logger)
	c.generated = newTierStore(TierGenerated, cfg.Generated, c.remote, logger)
	c.semantic = expirable.NewLRU[string, semanticEntry](cfg.Semantic.MaxEntries, nil, cfg.Semantic.TTL)
	return c
}

func (c *TieredCache) record(tier Tier, hit bool) {
	c.stats.record(tier, hit)
	if c.observe != nil {
		c.observe(tier, hit)
	}
}

// GetAnswer probes the exact tier then the normalized tier. It returns the
// tier that hit so callers can report where the answer came from.
func (c *TieredCache) GetAnswer(ctx context.Context, query string) (*domain.Answer, Tier, bool) {
	if data, ok := c.exact.get(ctx, HashKey(Canonicalize(query))); ok {
		if ans := decodeAnswer(data, c.logger); ans != nil {
			c.record(TierExact, true)
			return ans, TierExact, true
		}
	}
	c.record(TierExact, false)

	if data, ok := c.normalized.get(ctx, HashKey(Normalize(query))); ok {
		if ans := decodeAnswer(data, c.logger); ans != nil {
			c.record(TierNormalized, true)
			return ans, TierNormalized, true
		}
	}
	c.record(TierNormalized, false)
	return nil, 0, false
}

// SetAnswer stores a finished answer under the exact key and, when it
// differs, the normalized key.
func (c *TieredCache) SetAnswer(ctx context.Context, query string, ans *domain.Answer) {
	data, err := json.Marshal(ans)
	if err != nil {
		c.logger.Warn("cache_answer_encode_failed", slog.String("error", err.Error()))
		return
	}
	canonical := Canonicalize(query)
	c.exact.set(ctx, HashKey(canonical), data)
	if normalized := Normalize(query); normalized != canonical {
		c.normalized.set(ctx, HashKey(normalized), data)
	}
}

// GetSemantic scans stored query embeddings for a neighbor at or above the
// similarity threshold and returns its answer.
func (c *TieredCache) GetSemantic(ctx context.Context, vector []float32) (*domain.Answer, bool) {
	c.semMu.Lock()
	var best []byte
	bestSim := c.cfg.SemanticThreshold
	for _, key := range c.semantic.Keys() {
		entry, ok := c.semantic.Peek(key)
		if !ok {
			continue
		}
		if sim := cosineSimilarity(vector, entry.vector); sim >= bestSim {
			best, bestSim = entry.payload, sim
		}
	}
	c.semMu.Unlock()

	if best == nil {
		c.record(TierSemantic, false)
		return nil, false
	}
	ans := decodeAnswer(best, c.logger)
	if ans == nil {
		c.record(TierSemantic, false)
		return nil, false
	}
	c.record(TierSemantic, true)
	return ans, true
}

// SetSemantic stores the query's embedding alongside its finished answer
// for future nearest-neighbor reuse.
func (c *TieredCache) SetSemantic(ctx context.Context, query string, vector []float32, ans *domain.Answer) {
	data, err := json.Marshal(ans)
	if err != nil {
		c.logger.Warn("cache_answer_encode_failed", slog.String("error", err.Error()))
		return
	}
	c.semMu.Lock()
	c.semantic.Add(HashKey(Canonicalize(query)), semanticEntry{vector: vector, payload: data})
	c.semMu.Unlock()
}

// GetEmbedding returns a cached embedding vector for the exact text.
func (c *TieredCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	data, ok := c.embedding.get(ctx, HashKey(text))
	if !ok {
		c.record(TierEmbedding, false)
		return nil, false
	}
	vec := decodeVector(data)
	if vec == nil {
		c.record(TierEmbedding, false)
		return nil, false
	}
	c.record(TierEmbedding, true)
	return vec, true
}

// SetEmbedding caches an embedding vector. Vectors are stored in a compact
// binary form rather than JSON.
func (c *TieredCache) SetEmbedding(ctx context.Context, text string, vector []float32) {
	c.embedding.set(ctx, HashKey(text), encodeVector(vector))
}

// GetGenerated returns a synthesized answer text for a context key
// produced by GeneratedKey.
func (c *TieredCache) GetGenerated(ctx context.Context, contextKey string) (string, bool) {
	data, ok := c.generated.get(ctx, contextKey)
	if !ok {
		c.record(TierGenerated, false)
		return "", false
	}
	c.record(TierGenerated, true)
	return string(data), true
}

// SetGenerated caches a synthesized answer text under its context key.
func (c *TieredCache) SetGenerated(ctx context.Context, contextKey, answer string) {
	c.generated.set(ctx, contextKey, []byte(answer))
}

// Invalidate removes one entry from one tier. The raw key is the query (or
// context key for the generated tier); tier-specific derivation happens
// here so callers never deal in hashed keys.
func (c *TieredCache) Invalidate(ctx context.Context, tier Tier, rawKey string) {
	switch tier {
	case TierExact:
		c.exact.remove(ctx, HashKey(Canonicalize(rawKey)))
	case TierNormalized:
		c.normalized.remove(ctx, HashKey(Normalize(rawKey)))
	case TierSemantic:
		c.semMu.Lock()
		c.semantic.Remove(HashKey(Canonicalize(rawKey)))
		c.semMu.Unlock()
	case TierEmbedding:
		c.embedding.remove(ctx, HashKey(rawKey))
	case TierGenerated:
		c.generated.remove(ctx, rawKey)
	}
}

// Purge clears every tier.
func (c *TieredCache) Purge(ctx context.Context) {
	c.exact.purge(ctx)
	c.normalized.purge(ctx)
	c.embedding.purge(ctx)
	c.generated.purge(ctx)
	c.semMu.Lock()
	c.semantic.Purge()
	c.semMu.Unlock()
}

// Stats returns per-tier hit/miss counters.
func (c *TieredCache) Stats() Snapshot {
	return c.stats.snapshot()
}

// GeneratedKey derives the generated-answer tier key from the final
// retrieved context plus the query. Two strategies that converge on the
// same context produce the same key and share the generation.
func GeneratedKey(query string, sources []domain.Candidate) string {
	var b []byte
	b = append(b, query...)
	for _, s := range sources {
		b = append(b, 0)
		b = append(b, s.ChunkID.String()...)
	}
	return HashKey(string(b))
}

func decodeAnswer(data []byte, logger *slog.Logger) *domain.Answer {
	var ans domain.Answer
	if err := json.Unmarshal(data, &ans); err != nil {
		logger.Warn("cache_answer_decode_failed", slog.String("error", err.Error()))
		return nil
	}
	return &ans
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
