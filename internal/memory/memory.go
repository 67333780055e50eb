package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"answerhub/internal/domain"
)

// Exchange is one question/answer pair within a conversation.
type Exchange struct {
	Query    string
	Answer   string
	AskedAt  time.Time
	Strategy domain.Strategy
}

type Config struct {
	// Window caps how many exchanges are retained verbatim.
	Window int
	// SummarizeAfter is the exchange count that triggers folding older
	// exchanges into the running summary.
	SummarizeAfter int
	// KeepRecent is how many of the newest exchanges survive a
	// summarization pass verbatim.
	KeepRecent int
	// SummaryMaxTokens bounds the LLM summarization call.
	SummaryMaxTokens int
}

func DefaultConfig() Config {
	return Config{
		Window:           10,
		SummarizeAfter:   5,
		KeepRecent:       3,
		SummaryMaxTokens: 256,
	}
}

// normalized clamps degenerate settings so the window invariant holds for
// any configuration. KeepRecent may not exceed the window, and both are at
// least one.
func (cfg Config) normalized() Config {
	if cfg.Window < 1 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.KeepRecent < 1 {
		cfg.KeepRecent = 1
	}
	if cfg.KeepRecent > cfg.Window {
		cfg.KeepRecent = cfg.Window
	}
	return cfg
}

// Conversation holds the rolling state for one conversation ID. All methods
// are safe for concurrent use; writes to the same conversation serialize on
// its mutex.
type Conversation struct {
	id string

	mu        sync.Mutex
	summary   string
	exchanges []Exchange
}

func newConversation(id string) *Conversation {
	return &Conversation{id: id}
}

func (c *Conversation) ID() string { return c.id }

// AddExchange records a completed question/answer pair. When the verbatim
// window grows past cfg.SummarizeAfter, the older exchanges are folded into
// the summary with a single LLM call. Whatever the summarization outcome,
// the window never holds more than cfg.Window exchanges; the oldest are
// dropped first.
func (c *Conversation) AddExchange(ctx context.Context, llm domain.LLMClient, cfg Config, ex Exchange, log *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg = cfg.normalized()
	c.exchanges = append(c.exchanges, ex)
	defer c.enforceWindow(cfg)

	if len(c.exchanges) <= cfg.SummarizeAfter || len(c.exchanges) <= cfg.KeepRecent {
		return
	}

	older := c.exchanges[:len(c.exchanges)-cfg.KeepRecent]

	summary, err := summarize(ctx, llm, cfg, c.summary, older)
	if err != nil {
		log.Warn("conversation_summarization_failed",
			slog.String("conversation_id", c.id),
			slog.String("error", err.Error()))
		return
	}

	c.summary = summary
	c.exchanges = append([]Exchange(nil), c.exchanges[len(c.exchanges)-cfg.KeepRecent:]...)
	log.Info("conversation_summarized",
		slog.String("conversation_id", c.id),
		slog.Int("folded_exchanges", len(older)),
		slog.Int("retained_exchanges", len(c.exchanges)))
}

// enforceWindow trims the oldest exchanges once the window cap is exceeded.
// Callers hold c.mu.
func (c *Conversation) enforceWindow(cfg Config) {
	if len(c.exchanges) > cfg.Window {
		c.exchanges = append([]Exchange(nil), c.exchanges[len(c.exchanges)-cfg.Window:]...)
	}
}

// Context renders the summary plus the retained exchanges as prompt text.
// It returns the empty string for a brand new conversation.
func (c *Conversation) Context() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	if c.summary != "" {
		b.WriteString("Summary of earlier conversation: ")
		b.WriteString(c.summary)
		b.WriteString("\n")
	}
	for _, ex := range c.exchanges {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.Query, ex.Answer)
	}
	return strings.TrimSpace(b.String())
}

// LastQuery returns the most recent user query, or empty for a new
// conversation.
func (c *Conversation) LastQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.exchanges) == 0 {
		return ""
	}
	return c.exchanges[len(c.exchanges)-1].Query
}

func (c *Conversation) size() (exchanges int, hasSummary bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.exchanges), c.summary != ""
}

func summarize(ctx context.Context, llm domain.LLMClient, cfg Config, previous string, older []Exchange) (string, error) {
	var b strings.Builder
	if previous != "" {
		b.WriteString("Earlier summary: ")
		b.WriteString(previous)
		b.WriteString("\n\n")
	}
	for _, ex := range older {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", ex.Query, ex.Answer)
	}

	prompt := fmt.Sprintf(`Condense the conversation below into a short summary that preserves the topics discussed and any facts the user was told. Output only the summary.

%s`, b.String())

	resp, err := llm.Generate(ctx, prompt, cfg.SummaryMaxTokens)
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", fmt.Errorf("summarization returned empty text")
	}
	return summary, nil
}
