package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"answerhub/internal/cache"
	"answerhub/internal/domain"
	"answerhub/internal/infra/logger"
	"answerhub/internal/memory"
	"answerhub/internal/usecase/retrieval"

	"github.com/google/uuid"
)

// AskInput encapsulates the parameters of one question.
type AskInput struct {
	Query          string
	ConversationID string
	Mode           domain.QueryMode
}

// AskOutput is the answer plus the cache tier that served it. CacheTier is
// zero when the full pipeline ran.
type AskOutput struct {
	Answer    *domain.Answer
	CacheTier cache.Tier
}

// AskUsecase is the entry point for answering a question end to end.
type AskUsecase interface {
	Execute(ctx context.Context, input AskInput) (*AskOutput, error)
	ClearConversation(id string)
}

type askUsecase struct {
	classifier *Classifier
	scorer     *ConfidenceScorer
	deps       retrieval.Deps
	params     retrieval.Params
	tiered     *cache.TieredCache
	memory     *memory.Store

	requestTimeout  time.Duration
	answerMaxTokens int
	logger          *slog.Logger
}

// NewAskUsecase wires together classification, cache probing, retrieval and
// generation into one pipeline.
func NewAskUsecase(
	classifier *Classifier,
	scorer *ConfidenceScorer,
	deps retrieval.Deps,
	params retrieval.Params,
	tiered *cache.TieredCache,
	store *memory.Store,
	requestTimeout time.Duration,
	answerMaxTokens int,
	logger *slog.Logger,
) AskUsecase {
	return &askUsecase{
		classifier:      classifier,
		scorer:          scorer,
		deps:            deps,
		params:          params,
		tiered:          tiered,
		memory:          store,
		requestTimeout:  requestTimeout,
		answerMaxTokens: answerMaxTokens,
		logger:          logger,
	}
}

func (u *askUsecase) Execute(ctx context.Context, input AskInput) (*AskOutput, error) {
	start := time.Now()
	if err := u.classifier.Validate(input.Query); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, u.requestTimeout)
	defer cancel()

	log := logger.FromContext(ctx, u.logger)
	out, err := u.execute(ctx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("ask_timed_out",
				slog.String("query", input.Query),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			return nil, domain.ErrTimeout
		}
		return out, err
	}

	log.Info("ask_completed",
		slog.String("strategy", string(out.Answer.Strategy)),
		slog.Int("cache_tier", int(out.CacheTier)),
		slog.Float64("confidence", out.Answer.Confidence.Score),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return out, nil
}

func (u *askUsecase) execute(ctx context.Context, input AskInput) (*AskOutput, error) {
	// A follow-up question is rewritten into a self-contained one before
	// classification, caching and retrieval all see the same text.
	effective := input.Query
	if input.ConversationID != "" {
		if convCtx := u.memory.ContextFor(input.ConversationID); convCtx != "" {
			effective = memory.Rewrite(input.Query, convCtx)
			if effective != input.Query {
				u.logger.Info("follow_up_rewritten",
					slog.String("conversation_id", input.ConversationID))
			}
		}
	}

	classification, err := u.classifier.Classify(effective)
	if err != nil {
		return nil, err
	}
	if input.Mode == domain.ModeSimple {
		classification.Strategy = domain.StrategySimpleDense
	}

	if ans, tier, ok := u.tiered.GetAnswer(ctx, effective); ok {
		u.recordExchange(ctx, input, ans)
		return &AskOutput{Answer: ans, CacheTier: tier}, nil
	}

	vector, err := retrieval.EmbedQuery(ctx, u.deps, u.params, effective)
	if err != nil {
		return nil, domain.NewStageError("embedding", err)
	}
	if ans, ok := u.tiered.GetSemantic(ctx, vector); ok {
		u.recordExchange(ctx, input, ans)
		return &AskOutput{Answer: ans, CacheTier: cache.TierSemantic}, nil
	}

	candidates, err := u.retrieve(ctx, classification.Strategy, effective)
	if err != nil {
		return nil, err
	}

	answerText, genErr := u.generate(ctx, classification, effective, candidates)
	if genErr != nil {
		// The caller still gets the sources so it can show where an
		// answer would have come from.
		partial := &domain.Answer{
			ID:        uuid.New(),
			Sources:   candidates,
			Strategy:  classification.Strategy,
			CreatedAt: time.Now().UTC(),
		}
		return &AskOutput{Answer: partial}, genErr
	}

	confidence := u.scorer.Score(answerText, candidates)
	answer := &domain.Answer{
		ID:          uuid.New(),
		Text:        answerText,
		Sources:     candidates,
		Strategy:    classification.Strategy,
		Confidence:  confidence,
		Explanation: BuildExplanation(*classification, u.classifier.Thresholds(), confidence),
		CreatedAt:   time.Now().UTC(),
	}

	u.tiered.SetAnswer(ctx, effective, answer)
	u.tiered.SetSemantic(ctx, effective, vector, answer)

	u.recordExchange(ctx, input, answer)
	return &AskOutput{Answer: answer, CacheTier: 0}, nil
}

// recordExchange appends the served answer to the conversation window. A
// cache-served answer counts the same as a freshly generated one, otherwise
// later follow-up rewrites would build on a stale last exchange.
func (u *askUsecase) recordExchange(ctx context.Context, input AskInput, ans *domain.Answer) {
	if input.ConversationID == "" {
		return
	}
	u.memory.Record(ctx, input.ConversationID, memory.Exchange{
		Query:    input.Query,
		Answer:   ans.Text,
		AskedAt:  time.Now().UTC(),
		Strategy: ans.Strategy,
	})
}

// retrieve runs the selected strategy. The richer strategies degrade to the
// dense baseline instead of failing the request whenever the baseline can
// still serve it.
func (u *askUsecase) retrieve(ctx context.Context, strategy domain.Strategy, query string) ([]domain.Candidate, error) {
	ctx = logger.WithStrategy(ctx, string(strategy))

	var (
		candidates []domain.Candidate
		err        error
	)
	switch strategy {
	case domain.StrategySimpleDense:
		candidates, err = retrieval.SimpleDense(ctx, u.deps, u.params, query)
	case domain.StrategyHybridReranked:
		candidates, err = retrieval.HybridReranked(ctx, u.deps, u.params, query)
	case domain.StrategyAdvancedExpanded:
		candidates, err = retrieval.AdvancedExpanded(ctx, u.deps, u.params, query)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	if err != nil && strategy != domain.StrategySimpleDense && ctx.Err() == nil {
		logger.FromContext(ctx, u.logger).Warn("strategy_degraded_to_simple_dense",
			slog.String("strategy", string(strategy)),
			slog.String("error", err.Error()))
		candidates, err = retrieval.SimpleDense(ctx, u.deps, u.params, query)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	return candidates, nil
}

// generate produces the answer text, consulting the generated-answer cache
// before spending an LLM call.
func (u *askUsecase) generate(ctx context.Context, cl *domain.Classification, query string, candidates []domain.Candidate) (string, error) {
	ctx = logger.WithStage(ctx, "generating")
	key := cache.GeneratedKey(query, candidates)
	if text, ok := u.tiered.GetGenerated(ctx, key); ok {
		return text, nil
	}

	prompt := buildAnswerPrompt(cl.Type, query, candidates)
	genStart := time.Now()
	var text string
	err := retrieval.WithRetry(ctx, u.params.RetryBackoff, func() error {
		resp, genErr := u.deps.LLM.Generate(ctx, prompt, u.answerMaxTokens)
		if genErr != nil {
			return genErr
		}
		if resp == nil || strings.TrimSpace(resp.Text) == "" {
			return fmt.Errorf("empty llm response")
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", context.DeadlineExceeded
		}
		logger.FromContext(ctx, u.logger).Error("generation_failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	u.deps.ObserveStage("generate", genStart)
	u.tiered.SetGenerated(ctx, key, text)
	return text, nil
}

func (u *askUsecase) ClearConversation(id string) {
	u.memory.Clear(id)
}

var typeInstructions = map[domain.QueryType]string{
	domain.QueryTypeSimple:   "Answer concisely in one or two sentences.",
	domain.QueryTypeModerate: "Answer in a short paragraph, citing the most relevant passage.",
	domain.QueryTypeComplex:  "Answer thoroughly. Compare the relevant passages, weigh trade-offs and state a clear conclusion.",
}

// buildAnswerPrompt assembles the grounded generation prompt. Context
// passages are numbered so the model can reference them.
func buildAnswerPrompt(t domain.QueryType, query string, candidates []domain.Candidate) string {
	var b strings.Builder
	b.WriteString("Use only the context passages below to answer the question. If the context does not contain the answer, say so.\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, c.SourceDocument, c.Text)
	}
	fmt.Fprintf(&b, "\n%s\n\nQuestion: %s\nAnswer:", typeInstructions[t], query)
	return b.String()
}
