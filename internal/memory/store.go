package memory

import (
	"context"
	"log/slog"
	"sync"

	"answerhub/internal/domain"
)

// Store keeps conversations in process memory keyed by conversation ID.
type Store struct {
	cfg Config
	llm domain.LLMClient
	log *slog.Logger

	mu            sync.RWMutex
	conversations map[string]*Conversation
}

type StoreStats struct {
	Conversations int `json:"conversations"`
	Exchanges     int `json:"exchanges"`
	Summarized    int `json:"summarized"`
}

func NewStore(cfg Config, llm domain.LLMClient, log *slog.Logger) *Store {
	return &Store{
		cfg:           cfg,
		llm:           llm,
		log:           log,
		conversations: make(map[string]*Conversation),
	}
}

// Get returns the conversation for id, creating it on first use.
func (s *Store) Get(id string) *Conversation {
	s.mu.RLock()
	conv, ok := s.conversations[id]
	s.mu.RUnlock()
	if ok {
		return conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok = s.conversations[id]; ok {
		return conv
	}
	conv = newConversation(id)
	s.conversations[id] = conv
	return conv
}

// Record finalizes an exchange for the conversation, triggering
// summarization when due.
func (s *Store) Record(ctx context.Context, id string, ex Exchange) {
	s.Get(id).AddExchange(ctx, s.llm, s.cfg, ex, s.log)
}

// ContextFor returns the prompt context for id without creating a
// conversation when none exists.
func (s *Store) ContextFor(id string) string {
	s.mu.RLock()
	conv, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return ""
	}
	return conv.Context()
}

// Clear drops all state for one conversation. Clearing an unknown ID is a
// no-op.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{Conversations: len(s.conversations)}
	for _, conv := range s.conversations {
		n, summarized := conv.size()
		stats.Exchanges += n
		if summarized {
			stats.Summarized++
		}
	}
	return stats
}
