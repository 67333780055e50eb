package cache

import "sync/atomic"

// TierStats holds per-tier hit/miss counters.
type TierStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// Snapshot is a point-in-time view of all tier counters.
type Snapshot map[string]TierStats

type counters struct {
	hits   [tierCount]atomic.Uint64
	misses [tierCount]atomic.Uint64
}

func (c *counters) record(tier Tier, hit bool) {
	if hit {
		c.hits[tier-1].Add(1)
		return
	}
	c.misses[tier-1].Add(1)
}

func (c *counters) snapshot() Snapshot {
	out := make(Snapshot, tierCount)
	for t := TierExact; t <= TierGenerated; t++ {
		out[t.String()] = TierStats{
			Hits:   c.hits[t-1].Load(),
			Misses: c.misses[t-1].Load(),
		}
	}
	return out
}
