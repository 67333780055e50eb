package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// tierStore is one size-bounded LRU tier with TTL expiry. The local LRU is
// authoritative; an optional Redis backend extends the tier across
// processes. Every remote failure degrades to the local result, never to a
// request error.
type tierStore struct {
	tier   Tier
	local  *expirable.LRU[string, []byte]
	remote *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func newTierStore(tier Tier, cfg TierConfig, remote *redis.Client, logger *slog.Logger) *tierStore {
	return &tierStore{
		tier:   tier,
		local:  expirable.NewLRU[string, []byte](cfg.MaxEntries, nil, cfg.TTL),
		remote: remote,
		ttl:    cfg.TTL,
		prefix: "answerhub:" + tier.String() + ":",
		logger: logger,
	}
}

func (s *tierStore) get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := s.local.Get(key); ok {
		return val, true
	}
	if s.remote == nil {
		return nil, false
	}
	val, err := s.remote.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("cache_remote_get_failed",
				slog.String("tier", s.tier.String()),
				slog.String("error", err.Error()))
		}
		return nil, false
	}
	// Backfill so the next lookup stays local.
	s.local.Add(key, val)
	return val, true
}

func (s *tierStore) set(ctx context.Context, key string, val []byte) {
	s.local.Add(key, val)
	if s.remote == nil {
		return
	}
	if err := s.remote.Set(ctx, s.prefix+key, val, s.ttl).Err(); err != nil {
		s.logger.Debug("cache_remote_set_failed",
			slog.String("tier", s.tier.String()),
			slog.String("error", err.Error()))
	}
}

func (s *tierStore) remove(ctx context.Context, key string) {
	s.local.Remove(key)
	if s.remote == nil {
		return
	}
	if err := s.remote.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Debug("cache_remote_del_failed",
			slog.String("tier", s.tier.String()),
			slog.String("error", err.Error()))
	}
}

func (s *tierStore) purge(ctx context.Context) {
	s.local.Purge()
	if s.remote == nil {
		return
	}
	iter := s.remote.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.remote.Del(ctx, iter.Val()).Err(); err != nil {
			return
		}
	}
}
