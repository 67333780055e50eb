package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueryMode selects how the engine picks a retrieval strategy.
type QueryMode string

const (
	// ModeSimple forces the cheapest strategy regardless of classification.
	ModeSimple QueryMode = "simple"
	// ModeAdaptive lets the classifier choose the strategy.
	ModeAdaptive QueryMode = "adaptive"
)

// Query is one incoming question. Immutable for the duration of a request.
type Query struct {
	Text           string
	ConversationID string
	Mode           QueryMode
}

// QueryType is the complexity band assigned by the classifier.
type QueryType string

const (
	QueryTypeSimple   QueryType = "simple"
	QueryTypeModerate QueryType = "moderate"
	QueryTypeComplex  QueryType = "complex"
)

// Strategy identifies one retrieval pipeline. It is a closed set: the
// orchestrator switches exhaustively over these values.
type Strategy string

const (
	StrategySimpleDense      Strategy = "simple_dense"
	StrategyHybridReranked   Strategy = "hybrid_reranked"
	StrategyAdvancedExpanded Strategy = "advanced_expanded"
)

// Classification is the classifier's verdict for one query. It is created
// once per request and never mutated afterwards; the factors map feeds the
// explanation output.
type Classification struct {
	Type     QueryType
	Score    int
	Factors  map[string]string
	Strategy Strategy
}

// Candidate is a retrieved chunk with the scores accumulated across
// pipeline stages. Score always holds the value the sequence is currently
// ordered by.
type Candidate struct {
	ChunkID        uuid.UUID
	SourceDocument string
	Text           string
	DenseScore     float32
	SparseScore    float32
	FusedScore     float32
	RerankScore    float32
	Score          float32
}

// Confidence is the engine's belief in an answer, decomposed into the
// signals that produced it.
type Confidence struct {
	Score   float64
	Signals map[string]float64
}

// Explanation combines the classification reasoning with the confidence
// signals into one structured, deterministic object.
type Explanation struct {
	Classification Classification
	Thresholds     map[string]int
	Reasoning      string
	Confidence     Confidence
}

// Answer is the terminal output of one query. Never mutated after
// construction; cached and returned as-is.
type Answer struct {
	ID          uuid.UUID
	Text        string
	Sources     []Candidate
	Strategy    Strategy
	Confidence  Confidence
	Explanation Explanation
	CreatedAt   time.Time
}
