package domain

import (
	"errors"
	"fmt"
)

// Terminal error kinds surfaced to callers. Transient collaborator errors
// are retried or degraded inside the pipeline and never reach here.
var (
	// ErrInvalidQuery rejects empty or malformed input at the boundary.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrQueryTooLong rejects input above the configured character cap.
	ErrQueryTooLong = errors.New("query too long")
	// ErrRetrievalUnavailable means the index client is fully down.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrGenerationFailed means the LLM client exhausted its retries.
	// Partial candidates may still accompany this error.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrTimeout means the request deadline was exceeded. No partial
	// answer is returned with it.
	ErrTimeout = errors.New("request timed out")
)

// StageError attaches the pipeline stage that failed so callers can log
// where a request died without a stack trace.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the stage it occurred in.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
