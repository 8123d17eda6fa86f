package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type counters struct {
	calls    atomic.Int64
	failures atomic.Int64
	cache    atomic.Int64
	live     atomic.Int64
	stale    atomic.Int64
	fallback atomic.Int64

	mu          sync.Mutex
	lastFailed  bool
	lastError   string
	lastErrorAt time.Time
}

func (c *counters) hit(src Source) {
	switch src {
	case SourceCache:
		c.cache.Add(1)
	case SourceLive:
		c.live.Add(1)
	case SourceStale:
		c.stale.Add(1)
	case SourceFallback:
		c.fallback.Add(1)
	}
}

func (c *counters) upstream(at time.Time, err error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFailed = err != nil
	if err != nil {
		c.failures.Add(1)
		c.lastError = err.Error()
		c.lastErrorAt = at
	}
}

// Stats is a point-in-time view of the cache and the upstream's health.
type Stats struct {
	Backend       string
	CryptoEntries int
	CoinDetails   int
	NewsEntries   int
	TTL           time.Duration

	UpstreamCalls    int64
	UpstreamFailures int64
	// UpstreamDown is true when the most recent upstream call failed.
	UpstreamDown bool
	LastError    string
	LastErrorAt  time.Time

	Sources map[Source]int64
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	out := Stats{
		Backend:          s.listings.Name(),
		TTL:              s.ttl,
		UpstreamCalls:    s.stats.calls.Load(),
		UpstreamFailures: s.stats.failures.Load(),
		Sources: map[Source]int64{
			SourceLive:     s.stats.live.Load(),
			SourceCache:    s.stats.cache.Load(),
			SourceStale:    s.stats.stale.Load(),
			SourceFallback: s.stats.fallback.Load(),
		},
	}

	s.stats.mu.Lock()
	out.UpstreamDown = s.stats.lastFailed
	out.LastError = s.stats.lastError
	out.LastErrorAt = s.stats.lastErrorAt
	s.stats.mu.Unlock()

	var err error
	if out.CryptoEntries, err = s.listings.Len(ctx); err != nil {
		return out, fmt.Errorf("counting listings: %w", err)
	}
	if out.CoinDetails, err = s.details.Len(ctx); err != nil {
		return out, fmt.Errorf("counting details: %w", err)
	}
	if out.NewsEntries, err = s.articles.Len(ctx); err != nil {
		return out, fmt.Errorf("counting news: %w", err)
	}
	return out, nil
}
