package feedback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRecorder struct {
	entries chan Entry
	err     error
}

func (c *captureRecorder) Record(_ context.Context, entry Entry) error {
	c.entries <- entry
	return c.err
}

func (c *captureRecorder) StatsByStrategy(context.Context) ([]StrategyStats, error) {
	return []StrategyStats{{Strategy: "simple_dense", Total: 2, Helpful: 1, HelpfulRate: 0.5}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRatingValid(t *testing.T) {
	assert.True(t, RatingHelpful.Valid())
	assert.True(t, RatingUnhelpful.Valid())
	assert.False(t, Rating("meh").Valid())
	assert.False(t, Rating("").Valid())
}

func TestAsyncRecorder_WritesInBackground(t *testing.T) {
	inner := &captureRecorder{entries: make(chan Entry, 1)}
	rec, err := NewAsyncRecorder(inner, 2, time.Second, testLogger())
	require.NoError(t, err)
	defer rec.Close()

	entry := Entry{ID: uuid.New(), AnswerID: uuid.New(), Rating: RatingHelpful}
	require.NoError(t, rec.Record(context.Background(), entry))

	select {
	case got := <-inner.entries:
		assert.Equal(t, entry.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("inner recorder was never called")
	}
}

func TestAsyncRecorder_InnerFailureNeverSurfaces(t *testing.T) {
	inner := &captureRecorder{entries: make(chan Entry, 1), err: errors.New("db down")}
	rec, err := NewAsyncRecorder(inner, 1, time.Second, testLogger())
	require.NoError(t, err)
	defer rec.Close()

	assert.NoError(t, rec.Record(context.Background(), Entry{ID: uuid.New()}))
	<-inner.entries
}

func TestAsyncRecorder_FullPoolDropsWithoutError(t *testing.T) {
	block := make(chan struct{})
	inner := &captureRecorder{entries: make(chan Entry)}
	rec, err := NewAsyncRecorder(inner, 1, time.Second, testLogger())
	require.NoError(t, err)
	defer rec.Close()
	defer close(block)

	// Occupy the single worker so further submissions hit a full pool.
	_ = rec.pool.Submit(func() { <-block })

	for i := 0; i < 5; i++ {
		assert.NoError(t, rec.Record(context.Background(), Entry{ID: uuid.New()}))
	}
}

func TestAsyncRecorder_StatsDelegates(t *testing.T) {
	inner := &captureRecorder{entries: make(chan Entry, 1)}
	rec, err := NewAsyncRecorder(inner, 1, time.Second, testLogger())
	require.NoError(t, err)
	defer rec.Close()

	stats, err := rec.StatsByStrategy(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "simple_dense", stats[0].Strategy)
}
