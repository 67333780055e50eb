package di

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"answerhub/internal/adapter/httpapi"
	"answerhub/internal/adapter/ollama"
	"answerhub/internal/adapter/rerank"
	"answerhub/internal/adapter/search"
	"answerhub/internal/cache"
	"answerhub/internal/feedback"
	"answerhub/internal/infra/config"
	"answerhub/internal/infra/httpclient"
	"answerhub/internal/infra/metrics"
	"answerhub/internal/memory"
	"answerhub/internal/usecase"
	"answerhub/internal/usecase/retrieval"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	AskUsecase usecase.AskUsecase
	Cache      *cache.TieredCache
	Memory     *memory.Store
	Feedback   *feedback.AsyncRecorder
	Metrics    *metrics.EngineMetrics
	Handler    *httpapi.Handler
}

// NewApplicationComponents wires all dependencies from config, the database
// pool and an optional Redis client.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *slog.Logger) (*ApplicationComponents, error) {
	engineMetrics := metrics.New()

	// Outbound HTTP clients, one per call profile, over a shared pool
	clients := httpclient.NewClients(httpclient.Timeouts{
		Embed:    cfg.Ollama.EmbedTimeout,
		Generate: cfg.Ollama.GenerateTimeout,
		Rerank:   cfg.Reranker.Timeout,
		Sparse:   cfg.Sparse.Timeout,
	})

	// External clients
	embedder := ollama.NewEmbedder(cfg.Ollama.URL, cfg.Ollama.EmbeddingModel, clients.Embedder)
	generator := ollama.NewGenerator(cfg.Ollama.URL, cfg.Ollama.GenerationModel, clients.Generator, cfg.Ollama.RequestsPerSecond)
	reranker := rerank.NewClient(cfg.Reranker.URL, cfg.Reranker.Model, cfg.Reranker.Timeout, log, clients.Reranker)

	denseRepo := search.NewDenseRepository(pool)
	sparseClient := search.NewBM25Client(cfg.Sparse.URL, cfg.Sparse.Timeout, clients.Sparse)
	searcher := search.NewSearcher(denseRepo, sparseClient)

	// Cache
	cacheConfig := cache.Config{
		Exact:             cache.TierConfig{MaxEntries: cfg.Cache.ExactSize, TTL: cfg.Cache.ExactTTL},
		Normalized:        cache.TierConfig{MaxEntries: cfg.Cache.NormalizedSize, TTL: cfg.Cache.NormalizedTTL},
		Semantic:          cache.TierConfig{MaxEntries: cfg.Cache.SemanticSize, TTL: cfg.Cache.SemanticTTL},
		Embedding:         cache.TierConfig{MaxEntries: cfg.Cache.EmbeddingSize, TTL: cfg.Cache.EmbeddingTTL},
		Generated:         cache.TierConfig{MaxEntries: cfg.Cache.GeneratedSize, TTL: cfg.Cache.GeneratedTTL},
		SemanticThreshold: cfg.Cache.SemanticThreshold,
	}
	cacheOpts := []cache.Option{
		cache.WithObserver(func(tier cache.Tier, hit bool) {
			engineMetrics.ObserveCache(tier.String(), hit)
		}),
	}
	if redisClient != nil {
		cacheOpts = append(cacheOpts, cache.WithRemote(redisClient))
		log.Info("cache_remote_enabled", slog.String("addr", cfg.Redis.Addr))
	}
	tiered := cache.New(cacheConfig, log, cacheOpts...)

	// Memory
	memoryStore := memory.NewStore(memory.Config{
		Window:           cfg.Memory.Window,
		SummarizeAfter:   cfg.Memory.SummarizeAfter,
		KeepRecent:       cfg.Memory.KeepRecent,
		SummaryMaxTokens: cfg.Memory.SummaryMaxTokens,
	}, generator, log)

	// Feedback
	recorder, err := feedback.NewAsyncRecorder(
		feedback.NewPgRecorder(pool),
		cfg.Feedback.Workers,
		cfg.Feedback.WriteTimeout,
		log,
	)
	if err != nil {
		return nil, err
	}

	// Retrieval pipeline
	deps := retrieval.Deps{
		Encoder:  embedder,
		Index:    searcher,
		Reranker: reranker,
		LLM:      generator,
		Cache:    tiered,
		Synonyms: retrieval.NewSynonyms(retrieval.DefaultSynonymTable()),
		Logger:   log,
		Stage:    engineMetrics.ObserveStage,
	}
	params := retrieval.Params{
		InitialK:        cfg.Retrieval.InitialK,
		RerankK:         cfg.Retrieval.RerankK,
		FinalK:          cfg.Retrieval.FinalK,
		SimpleFinalK:    cfg.Retrieval.SimpleFinalK,
		RRFK:            cfg.Retrieval.RRFK,
		RerankWeight:    cfg.Retrieval.RerankWeight,
		ExpandPhrasings: cfg.Retrieval.ExpandPhrasings,
		PhrasingTimeout: cfg.Retrieval.PhrasingTimeout,
		RetryBackoff:    cfg.Retrieval.RetryBackoff,
		RerankTimeout:   cfg.Reranker.Timeout,
	}

	classifier := usecase.NewClassifier(usecase.ClassifierConfig{
		SimpleMax:     cfg.Classifier.SimpleMax,
		ModerateMax:   cfg.Classifier.ModerateMax,
		MaxQueryChars: cfg.Classifier.MaxQueryChars,
	})
	scorer := usecase.NewConfidenceScorer(usecase.DefaultConfidenceConfig())

	askUsecase := usecase.NewAskUsecase(
		classifier,
		scorer,
		deps,
		params,
		tiered,
		memoryStore,
		cfg.Server.RequestTimeout,
		cfg.Ollama.AnswerMaxTokens,
		log,
	)

	instrumented := &instrumentedAsk{inner: askUsecase, metrics: engineMetrics}
	handler := httpapi.NewHandler(instrumented, tiered, memoryStore, recorder)

	return &ApplicationComponents{
		AskUsecase: instrumented,
		Cache:      tiered,
		Memory:     memoryStore,
		Feedback:   recorder,
		Metrics:    engineMetrics,
		Handler:    handler,
	}, nil
}

// instrumentedAsk records per-query counters and latency around the inner
// pipeline.
type instrumentedAsk struct {
	inner   usecase.AskUsecase
	metrics *metrics.EngineMetrics
}

func (a *instrumentedAsk) Execute(ctx context.Context, input usecase.AskInput) (*usecase.AskOutput, error) {
	start := time.Now()
	out, err := a.inner.Execute(ctx, input)

	strategy := "unknown"
	if out != nil && out.Answer != nil {
		strategy = string(out.Answer.Strategy)
	}
	a.metrics.ObserveAsk(strategy, time.Since(start), err)
	return out, err
}

func (a *instrumentedAsk) ClearConversation(id string) {
	a.inner.ClearConversation(id)
}
