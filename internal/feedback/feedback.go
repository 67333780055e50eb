package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Rating is the user's verdict on an answer.
type Rating string

const (
	RatingHelpful   Rating = "helpful"
	RatingUnhelpful Rating = "unhelpful"
)

func (r Rating) Valid() bool {
	return r == RatingHelpful || r == RatingUnhelpful
}

// Entry is one piece of user feedback tied to a served answer.
type Entry struct {
	ID         uuid.UUID
	AnswerID   uuid.UUID
	Query      string
	Rating     Rating
	Strategy   string
	Confidence float64
	Comment    string
	CreatedAt  time.Time
}

// StrategyStats aggregates feedback per retrieval strategy.
type StrategyStats struct {
	Strategy      string  `json:"strategy"`
	Total         int64   `json:"total"`
	Helpful       int64   `json:"helpful"`
	HelpfulRate   float64 `json:"helpful_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Recorder persists feedback entries and serves aggregate stats.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	StatsByStrategy(ctx context.Context) ([]StrategyStats, error)
}
