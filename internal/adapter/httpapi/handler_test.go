package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"answerhub/internal/cache"
	"answerhub/internal/domain"
	"answerhub/internal/feedback"
	"answerhub/internal/memory"
	"answerhub/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAsk struct{ mock.Mock }

func (m *mockAsk) Execute(ctx context.Context, input usecase.AskInput) (*usecase.AskOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.AskOutput)
	return out, args.Error(1)
}

func (m *mockAsk) ClearConversation(id string) {
	m.Called(id)
}

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) Record(ctx context.Context, entry feedback.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockRecorder) StatsByStrategy(ctx context.Context) ([]feedback.StrategyStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).([]feedback.StrategyStats)
	return stats, args.Error(1)
}

type fixture struct {
	echo     *echo.Echo
	ask      *mockAsk
	recorder *mockRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ask := new(mockAsk)
	recorder := new(mockRecorder)
	tiered := cache.New(cache.DefaultConfig(), logger)
	store := memory.NewStore(memory.DefaultConfig(), nil, logger)

	e := echo.New()
	NewHandler(ask, tiered, store, recorder).Register(e)
	return &fixture{echo: e, ask: ask, recorder: recorder}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func sampleAnswer() *domain.Answer {
	return &domain.Answer{
		ID:       uuid.New(),
		Text:     "Thirty days per year.",
		Strategy: domain.StrategySimpleDense,
		Sources: []domain.Candidate{
			{ChunkID: uuid.New(), SourceDocument: "handbook.pdf", Text: "passage", Score: 0.9},
		},
		Confidence: domain.Confidence{
			Score:   0.8,
			Signals: map[string]float64{"retrieval_score": 0.9},
		},
	}
}

func TestAsk_Success(t *testing.T) {
	f := newFixture(t)
	answer := sampleAnswer()
	f.ask.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.AskInput) bool {
		return in.Query == "How many vacation days?" && in.Mode == domain.ModeAdaptive
	})).Return(&usecase.AskOutput{Answer: answer}, nil)

	rec := f.do(http.MethodPost, "/v1/ask", `{"query":"How many vacation days?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, answer.ID.String(), resp.AnswerID)
	assert.Equal(t, "Thirty days per year.", resp.Answer)
	assert.Equal(t, "simple_dense", resp.Strategy)
	assert.InDelta(t, 0.8, resp.Confidence, 1e-9)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "handbook.pdf", resp.Sources[0].SourceDocument)
	assert.Empty(t, resp.CacheTier)
}

func TestAsk_CacheHitReportsTier(t *testing.T) {
	f := newFixture(t)
	f.ask.On("Execute", mock.Anything, mock.Anything).
		Return(&usecase.AskOutput{Answer: sampleAnswer(), CacheTier: cache.TierExact}, nil)

	rec := f.do(http.MethodPost, "/v1/ask", `{"query":"How many vacation days?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "exact", resp.CacheTier)
}

func TestAsk_SimpleModeForwarded(t *testing.T) {
	f := newFixture(t)
	f.ask.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.AskInput) bool {
		return in.Mode == domain.ModeSimple
	})).Return(&usecase.AskOutput{Answer: sampleAnswer()}, nil)

	rec := f.do(http.MethodPost, "/v1/ask", `{"query":"Why compare?","mode":"simple"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	f.ask.AssertExpectations(t)
}

func TestAsk_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid query", domain.ErrInvalidQuery, http.StatusBadRequest},
		{"query too long", domain.ErrQueryTooLong, http.StatusBadRequest},
		{"retrieval unavailable", domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable},
		{"timeout", domain.ErrTimeout, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ask.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := f.do(http.MethodPost, "/v1/ask", `{"query":"anything"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAsk_GenerationFailureCarriesSources(t *testing.T) {
	f := newFixture(t)
	partial := &usecase.AskOutput{Answer: &domain.Answer{
		ID:      uuid.New(),
		Sources: []domain.Candidate{{ChunkID: uuid.New(), SourceDocument: "handbook.pdf", Text: "passage"}},
	}}
	f.ask.On("Execute", mock.Anything, mock.Anything).Return(partial, domain.ErrGenerationFailed)

	rec := f.do(http.MethodPost, "/v1/ask", `{"query":"anything"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "sources")
}

func TestClearConversation(t *testing.T) {
	f := newFixture(t)
	f.ask.On("ClearConversation", "conv-9").Return()

	rec := f.do(http.MethodDelete, "/v1/conversations/conv-9", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.ask.AssertExpectations(t)
}

func TestCacheStats(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "exact")
}

func TestPurgeCache(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/cache/purge", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSubmitFeedback_Accepted(t *testing.T) {
	f := newFixture(t)
	f.recorder.On("Record", mock.Anything, mock.MatchedBy(func(e feedback.Entry) bool {
		return e.Rating == feedback.RatingHelpful && e.Strategy == "hybrid_reranked"
	})).Return(nil)

	body := `{"answer_id":"` + uuid.NewString() + `","rating":"helpful","strategy":"hybrid_reranked","confidence":0.8}`
	rec := f.do(http.MethodPost, "/v1/feedback", body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	f.recorder.AssertExpectations(t)
}

func TestSubmitFeedback_InvalidAnswerID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/feedback", `{"answer_id":"not-a-uuid","rating":"helpful"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestSubmitFeedback_InvalidRating(t *testing.T) {
	f := newFixture(t)

	body := `{"answer_id":"` + uuid.NewString() + `","rating":"meh"}`
	rec := f.do(http.MethodPost, "/v1/feedback", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedbackStats_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	f.recorder.On("StatsByStrategy", mock.Anything).Return(nil, nil)

	rec := f.do(http.MethodGet, "/v1/feedback/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestMemoryStats(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/memory/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats memory.StoreStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.Conversations)
}

var _ usecase.AskUsecase = (*mockAsk)(nil)
var _ feedback.Recorder = (*mockRecorder)(nil)
