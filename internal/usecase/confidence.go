package usecase

import (
	"strings"

	"answerhub/internal/domain"
)

// ConfidenceConfig holds the fixed signal weights. Weights sum to 1 so the
// combined score stays in [0,1].
type ConfidenceConfig struct {
	RetrievalWeight float64
	AgreementWeight float64
	LengthWeight    float64
}

// DefaultConfidenceConfig returns the default signal weights.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		RetrievalWeight: 0.5,
		AgreementWeight: 0.3,
		LengthWeight:    0.2,
	}
}

// ConfidenceScorer produces a confidence score over a completed pipeline
// result. It is read-only: scoring never alters retrieval output, and the
// same inputs always produce the same score.
type ConfidenceScorer struct {
	cfg ConfidenceConfig
}

// NewConfidenceScorer creates a ConfidenceScorer.
func NewConfidenceScorer(cfg ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg}
}

// Score combines retrieval strength, source agreement and an answer-length
// penalty into one confidence value, retaining each signal for the
// explanation.
func (s *ConfidenceScorer) Score(answerText string, sources []domain.Candidate) domain.Confidence {
	retrieval := avgScore(sources)
	agreement := sourceAgreement(sources)
	length := lengthSignal(answerText)

	signals := map[string]float64{
		"retrieval_score":       retrieval,
		"source_agreement":      agreement,
		"answer_length_penalty": length,
	}

	score := s.cfg.RetrievalWeight*retrieval +
		s.cfg.AgreementWeight*agreement +
		s.cfg.LengthWeight*length

	return domain.Confidence{Score: clamp01(score), Signals: signals}
}

// BuildExplanation assembles the final explanation object from the
// classification and confidence outputs.
func BuildExplanation(cl domain.Classification, thresholds map[string]int, conf domain.Confidence) domain.Explanation {
	return domain.Explanation{
		Classification: cl,
		Thresholds:     thresholds,
		Reasoning:      StrategyReasoning(cl.Type),
		Confidence:     conf,
	}
}

// avgScore averages the active score of the final candidates, clamped to
// [0,1]. Fused RRF scores are small by construction, so anything at or
// above one is already maximal.
func avgScore(sources []domain.Candidate) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for _, c := range sources {
		sum += float64(c.Score)
	}
	return clamp01(sum / float64(len(sources)))
}

// sourceAgreement rewards convergence: the fraction of candidates drawn
// from the single most common source document.
func sourceAgreement(sources []domain.Candidate) float64 {
	if len(sources) == 0 {
		return 0
	}
	counts := make(map[string]int)
	best := 0
	for _, c := range sources {
		counts[c.SourceDocument]++
		if counts[c.SourceDocument] > best {
			best = counts[c.SourceDocument]
		}
	}
	return float64(best) / float64(len(sources))
}

// lengthSignal penalizes degenerate answers: a couple of words rarely
// answers anything, and multi-page output usually means the model rambled.
func lengthSignal(answerText string) float64 {
	words := len(strings.Fields(answerText))
	switch {
	case words == 0:
		return 0
	case words < 5:
		return 0.3
	case words <= 300:
		return 1
	case words <= 600:
		return 0.7
	default:
		return 0.4
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
