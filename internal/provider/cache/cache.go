// Package cache serves market data from a per-key TTL cache, falling back to
// the upstream, then to stale entries, then to the static fallback set.
package cache

import (
	"errors"
	"time"
)

// Source tells where a served payload came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceStale    Source = "stale"
	SourceFallback Source = "fallback"
)

var (
	// ErrExhausted is returned when the upstream failed and neither a cached
	// entry nor a fallback record exists.
	ErrExhausted = errors.New("no data available")
	// ErrNewsDisabled is returned by News when no news provider is configured.
	ErrNewsDisabled = errors.New("news provider not configured")
)

// Entry is one cached payload. It is fresh while now-FetchedAt < TTL and is
// kept after that as a stale last resort.
type Entry[T any] struct {
	Payload   T         `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`
	// Source is SourceLive or SourceFallback, depending on what populated it.
	Source Source `json:"source"`
}

func (e Entry[T]) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Result is a payload together with its provenance.
type Result[T any] struct {
	Payload   T
	Source    Source
	FetchedAt time.Time
}

// Degraded reports whether the payload is not current upstream data.
func (r Result[T]) Degraded() bool {
	return r.Source == SourceStale || r.Source == SourceFallback
}
