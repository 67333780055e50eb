package httpapi

import (
	"errors"
	"net/http"
	"time"

	"answerhub/internal/cache"
	"answerhub/internal/domain"
	"answerhub/internal/feedback"
	"answerhub/internal/infra/logger"
	"answerhub/internal/memory"
	"answerhub/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler exposes the engine over HTTP.
type Handler struct {
	ask      usecase.AskUsecase
	tiered   *cache.TieredCache
	memory   *memory.Store
	feedback feedback.Recorder
}

func NewHandler(ask usecase.AskUsecase, tiered *cache.TieredCache, store *memory.Store, recorder feedback.Recorder) *Handler {
	return &Handler{
		ask:      ask,
		tiered:   tiered,
		memory:   store,
		feedback: recorder,
	}
}

// Register wires the routes onto the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/ask", h.Ask)
	e.DELETE("/v1/conversations/:id", h.ClearConversation)
	e.GET("/v1/cache/stats", h.CacheStats)
	e.POST("/v1/cache/purge", h.PurgeCache)
	e.POST("/v1/feedback", h.SubmitFeedback)
	e.GET("/v1/feedback/stats", h.FeedbackStats)
	e.GET("/v1/memory/stats", h.MemoryStats)
}

type askRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	Mode           string `json:"mode,omitempty"`
}

type sourceResponse struct {
	ChunkID        string  `json:"chunk_id"`
	SourceDocument string  `json:"source_document"`
	Text           string  `json:"text"`
	Score          float32 `json:"score"`
}

type askResponse struct {
	AnswerID    string            `json:"answer_id"`
	Answer      string            `json:"answer,omitempty"`
	Sources     []sourceResponse  `json:"sources"`
	Strategy    string            `json:"strategy"`
	Confidence  float64           `json:"confidence"`
	Signals     map[string]float64 `json:"confidence_signals,omitempty"`
	Explanation *explanationBody  `json:"explanation,omitempty"`
	CacheTier   string            `json:"cache_tier,omitempty"`
}

type explanationBody struct {
	QueryType  string            `json:"query_type"`
	Score      int               `json:"score"`
	Factors    map[string]string `json:"factors"`
	Thresholds map[string]int    `json:"thresholds"`
	Reasoning  string            `json:"reasoning"`
}

func (h *Handler) Ask(ctx echo.Context) error {
	var req askRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	input := usecase.AskInput{
		Query:          req.Query,
		ConversationID: req.ConversationID,
		Mode:           domain.ModeAdaptive,
	}
	if req.Mode == string(domain.ModeSimple) {
		input.Mode = domain.ModeSimple
	}

	reqCtx := ctx.Request().Context()
	if requestID := ctx.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
		reqCtx = logger.WithRequestID(reqCtx, requestID)
	}
	if req.ConversationID != "" {
		reqCtx = logger.WithConversationID(reqCtx, req.ConversationID)
	}

	output, err := h.ask.Execute(reqCtx, input)
	if err != nil {
		return h.askError(ctx, output, err)
	}
	return ctx.JSON(http.StatusOK, buildAskResponse(output))
}

// askError maps the error taxonomy onto HTTP statuses. A generation
// failure still carries the retrieved sources so the client can show them.
func (h *Handler) askError(ctx echo.Context, output *usecase.AskOutput, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query must not be empty"})
	case errors.Is(err, domain.ErrQueryTooLong):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query exceeds length cap"})
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "retrieval temporarily unavailable"})
	case errors.Is(err, domain.ErrTimeout):
		return ctx.JSON(http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
	case errors.Is(err, domain.ErrGenerationFailed):
		body := map[string]interface{}{"error": "answer generation failed"}
		if output != nil && output.Answer != nil {
			body["sources"] = buildSources(output.Answer.Sources)
		}
		return ctx.JSON(http.StatusBadGateway, body)
	default:
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func buildAskResponse(output *usecase.AskOutput) askResponse {
	ans := output.Answer
	resp := askResponse{
		AnswerID:   ans.ID.String(),
		Answer:     ans.Text,
		Sources:    buildSources(ans.Sources),
		Strategy:   string(ans.Strategy),
		Confidence: ans.Confidence.Score,
		Signals:    ans.Confidence.Signals,
	}
	if output.CacheTier != 0 {
		resp.CacheTier = output.CacheTier.String()
	}
	if ans.Explanation.Reasoning != "" {
		resp.Explanation = &explanationBody{
			QueryType:  string(ans.Explanation.Classification.Type),
			Score:      ans.Explanation.Classification.Score,
			Factors:    ans.Explanation.Classification.Factors,
			Thresholds: ans.Explanation.Thresholds,
			Reasoning:  ans.Explanation.Reasoning,
		}
	}
	return resp
}

func buildSources(cands []domain.Candidate) []sourceResponse {
	sources := make([]sourceResponse, 0, len(cands))
	for _, c := range cands {
		sources = append(sources, sourceResponse{
			ChunkID:        c.ChunkID.String(),
			SourceDocument: c.SourceDocument,
			Text:           c.Text,
			Score:          c.Score,
		})
	}
	return sources
}

func (h *Handler) ClearConversation(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "conversation id is required"})
	}
	h.ask.ClearConversation(id)
	return ctx.NoContent(http.StatusNoContent)
}

func (h *Handler) CacheStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, h.tiered.Stats())
}

func (h *Handler) PurgeCache(ctx echo.Context) error {
	h.tiered.Purge(ctx.Request().Context())
	return ctx.NoContent(http.StatusNoContent)
}

func (h *Handler) MemoryStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, h.memory.Stats())
}

type feedbackRequest struct {
	AnswerID   string  `json:"answer_id"`
	Query      string  `json:"query,omitempty"`
	Rating     string  `json:"rating"`
	Strategy   string  `json:"strategy,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

func (h *Handler) SubmitFeedback(ctx echo.Context) error {
	var req feedbackRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	answerID, err := uuid.Parse(req.AnswerID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid answer_id"})
	}
	rating := feedback.Rating(req.Rating)
	if !rating.Valid() {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "rating must be helpful or unhelpful"})
	}

	entry := feedback.Entry{
		ID:         uuid.New(),
		AnswerID:   answerID,
		Query:      req.Query,
		Rating:     rating,
		Strategy:   req.Strategy,
		Confidence: req.Confidence,
		Comment:    req.Comment,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.feedback.Record(ctx.Request().Context(), entry); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to record feedback"})
	}
	return ctx.JSON(http.StatusAccepted, map[string]string{"id": entry.ID.String()})
}

func (h *Handler) FeedbackStats(ctx echo.Context) error {
	stats, err := h.feedback.StatsByStrategy(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load feedback stats"})
	}
	if stats == nil {
		stats = []feedback.StrategyStats{}
	}
	return ctx.JSON(http.StatusOK, stats)
}
