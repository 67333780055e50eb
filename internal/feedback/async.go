package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
)

// AsyncRecorder accepts feedback without blocking the request path. Writes
// run on a bounded worker pool; a full pool or a failed insert is logged
// and dropped, never surfaced to the caller.
type AsyncRecorder struct {
	inner        Recorder
	pool         *ants.Pool
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewAsyncRecorder wraps inner with an ants worker pool of the given size.
func NewAsyncRecorder(inner Recorder, workers int, writeTimeout time.Duration, logger *slog.Logger) (*AsyncRecorder, error) {
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &AsyncRecorder{
		inner:        inner,
		pool:         pool,
		writeTimeout: writeTimeout,
		logger:       logger,
	}, nil
}

// Record enqueues the write and returns immediately. The inner write uses
// its own deadline because the request context ends with the HTTP response.
func (a *AsyncRecorder) Record(_ context.Context, entry Entry) error {
	err := a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
		defer cancel()
		if err := a.inner.Record(ctx, entry); err != nil {
			a.logger.Warn("feedback_write_failed",
				slog.String("answer_id", entry.AnswerID.String()),
				slog.String("error", err.Error()))
		}
	})
	if err != nil {
		a.logger.Warn("feedback_dropped_pool_full",
			slog.String("answer_id", entry.AnswerID.String()))
	}
	return nil
}

func (a *AsyncRecorder) StatsByStrategy(ctx context.Context) ([]StrategyStats, error) {
	return a.inner.StatsByStrategy(ctx)
}

// Close drains the worker pool. Call during shutdown.
func (a *AsyncRecorder) Close() {
	a.pool.Release()
}
