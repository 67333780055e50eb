package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env    string
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig

	Ollama   OllamaConfig
	Reranker RerankerConfig
	Sparse   SparseConfig

	Retrieval  RetrievalConfig
	Cache      CacheConfig
	Classifier ClassifierConfig
	Memory     MemoryConfig
	Feedback   FeedbackConfig
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// RedisConfig is optional: an empty Addr runs the cache purely in process
// memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OllamaConfig struct {
	URL               string
	EmbeddingModel    string
	GenerationModel   string
	AnswerMaxTokens   int
	RequestsPerSecond float64
	EmbedTimeout      time.Duration
	GenerateTimeout   time.Duration
}

type RerankerConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

type SparseConfig struct {
	URL     string
	Timeout time.Duration
}

type RetrievalConfig struct {
	InitialK        int
	RerankK         int
	FinalK          int
	SimpleFinalK    int
	RRFK            float64
	RerankWeight    float64
	ExpandPhrasings int
	PhrasingTimeout time.Duration
	RetryBackoff    time.Duration
}

type CacheConfig struct {
	ExactSize         int
	ExactTTL          time.Duration
	NormalizedSize    int
	NormalizedTTL     time.Duration
	SemanticSize      int
	SemanticTTL       time.Duration
	SemanticThreshold float64
	EmbeddingSize     int
	EmbeddingTTL      time.Duration
	GeneratedSize     int
	GeneratedTTL      time.Duration
}

type ClassifierConfig struct {
	SimpleMax     int
	ModerateMax   int
	MaxQueryChars int
}

type MemoryConfig struct {
	Window           int
	SummarizeAfter   int
	KeepRecent       int
	SummaryMaxTokens int
}

type FeedbackConfig struct {
	Workers      int
	WriteTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port:           getEnv("PORT", "9020"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "answerhub-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "answerhub_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "answerhub_password"),
			Name:     getEnv("DB_NAME", "answerhub_db"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getSecret("REDIS_PASSWORD", "REDIS_PASSWORD_FILE", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Ollama: OllamaConfig{
			URL:               getEnv("OLLAMA_URL", "http://ollama:11434"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			GenerationModel:   getEnv("GENERATION_MODEL", "gemma3:12b"),
			AnswerMaxTokens:   getEnvInt("ANSWER_MAX_TOKENS", 768),
			RequestsPerSecond: getEnvFloat64("OLLAMA_REQUESTS_PER_SECOND", 0),
			EmbedTimeout:      getEnvDuration("OLLAMA_EMBED_TIMEOUT", 30*time.Second),
			GenerateTimeout:   getEnvDuration("OLLAMA_GENERATE_TIMEOUT", 120*time.Second),
		},
		Reranker: RerankerConfig{
			URL:     getEnv("RERANKER_URL", "http://reranker:8001"),
			Model:   getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
			Timeout: getEnvDuration("RERANKER_TIMEOUT", 15*time.Second),
		},
		Sparse: SparseConfig{
			URL:     getEnv("SPARSE_INDEX_URL", "http://search-index:7700"),
			Timeout: getEnvDuration("SPARSE_INDEX_TIMEOUT", 10*time.Second),
		},
		Retrieval: RetrievalConfig{
			InitialK:        getEnvInt("RETRIEVAL_INITIAL_K", 20),
			RerankK:         getEnvInt("RETRIEVAL_RERANK_K", 10),
			FinalK:          getEnvInt("RETRIEVAL_FINAL_K", 5),
			SimpleFinalK:    getEnvInt("RETRIEVAL_SIMPLE_FINAL_K", 3),
			RRFK:            getEnvFloat64("RETRIEVAL_RRF_K", 60.0),
			RerankWeight:    getEnvFloat64("RETRIEVAL_RERANK_WEIGHT", 0.7),
			ExpandPhrasings: getEnvInt("RETRIEVAL_EXPAND_PHRASINGS", 2),
			PhrasingTimeout: getEnvDuration("RETRIEVAL_PHRASING_TIMEOUT", 10*time.Second),
			RetryBackoff:    getEnvDuration("RETRIEVAL_RETRY_BACKOFF", 200*time.Millisecond),
		},
		Cache: CacheConfig{
			ExactSize:         getEnvInt("CACHE_EXACT_SIZE", 2048),
			ExactTTL:          getEnvDuration("CACHE_EXACT_TTL", time.Hour),
			NormalizedSize:    getEnvInt("CACHE_NORMALIZED_SIZE", 2048),
			NormalizedTTL:     getEnvDuration("CACHE_NORMALIZED_TTL", time.Hour),
			SemanticSize:      getEnvInt("CACHE_SEMANTIC_SIZE", 512),
			SemanticTTL:       getEnvDuration("CACHE_SEMANTIC_TTL", 10*time.Minute),
			SemanticThreshold: getEnvFloat64("CACHE_SEMANTIC_THRESHOLD", 0.95),
			EmbeddingSize:     getEnvInt("CACHE_EMBEDDING_SIZE", 8192),
			EmbeddingTTL:      getEnvDuration("CACHE_EMBEDDING_TTL", 24*time.Hour),
			GeneratedSize:     getEnvInt("CACHE_GENERATED_SIZE", 2048),
			GeneratedTTL:      getEnvDuration("CACHE_GENERATED_TTL", time.Hour),
		},
		Classifier: ClassifierConfig{
			SimpleMax:     getEnvInt("CLASSIFIER_SIMPLE_MAX", 1),
			ModerateMax:   getEnvInt("CLASSIFIER_MODERATE_MAX", 3),
			MaxQueryChars: getEnvInt("CLASSIFIER_MAX_QUERY_CHARS", 2000),
		},
		Memory: MemoryConfig{
			Window:           getEnvInt("MEMORY_WINDOW", 10),
			SummarizeAfter:   getEnvInt("MEMORY_SUMMARIZE_AFTER", 5),
			KeepRecent:       getEnvInt("MEMORY_KEEP_RECENT", 3),
			SummaryMaxTokens: getEnvInt("MEMORY_SUMMARY_MAX_TOKENS", 256),
		},
		Feedback: FeedbackConfig{
			Workers:      getEnvInt("FEEDBACK_WORKERS", 4),
			WriteTimeout: getEnvDuration("FEEDBACK_WRITE_TIMEOUT", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
