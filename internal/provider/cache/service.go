package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"coinproxy/internal/provider"
	"coinproxy/internal/provider/fallback"
)

const (
	DefaultTTL = 5 * time.Minute
	newsKey    = "latest"
)

// Service owns the cached state and decides, per request, whether to serve
// the cache, the upstream, a stale entry or a fallback record.
type Service struct {
	upstream provider.Provider
	news     provider.NewsProvider

	listings Store[[]provider.CoinSummary]
	details  Store[provider.CoinDetail]
	articles Store[[]provider.Article]

	ttl      time.Duration
	perPage  int
	order    string
	now      func() time.Time
	log      *zap.Logger
	fallback *fallback.Set

	group singleflight.Group
	stats counters
}

type Option func(*Service)

// WithStores replaces the default in-memory stores. Nil stores are ignored.
func WithStores(listings Store[[]provider.CoinSummary], details Store[provider.CoinDetail], articles Store[[]provider.Article]) Option {
	return func(s *Service) {
		if listings != nil {
			s.listings = listings
		}
		if details != nil {
			s.details = details
		}
		if articles != nil {
			s.articles = articles
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithListingDefaults sets the page size and order a query gets when it
// leaves them unset.
func WithListingDefaults(perPage int, order string) Option {
	return func(s *Service) {
		if perPage > 0 {
			s.perPage = perPage
		}
		if order != "" {
			s.order = order
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFallback sets the static records served on total failure. A nil or
// empty set disables the static fallback.
func WithFallback(set *fallback.Set) Option {
	return func(s *Service) { s.fallback = set }
}

func WithNewsProvider(news provider.NewsProvider) Option {
	return func(s *Service) { s.news = news }
}

func New(upstream provider.Provider, options ...Option) *Service {
	s := &Service{
		upstream: upstream,
		listings: NewMemoryStore[[]provider.CoinSummary](),
		details:  NewMemoryStore[provider.CoinDetail](),
		articles: NewMemoryStore[[]provider.Article](),
		ttl:      DefaultTTL,
		perPage:  provider.DefaultPerPage,
		order:    provider.DefaultOrder,
		now:      time.Now,
		log:      zap.NewNop(),
		fallback: fallback.Default(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// TTL is the freshness window of every entry.
func (s *Service) TTL() time.Duration { return s.ttl }

// NewsEnabled reports whether News can be served.
func (s *Service) NewsEnabled() bool { return s.news != nil }

// ListingKey returns the cache key of q: the bare currency for the default
// page, otherwise currency:order:page:per_page.
func (s *Service) ListingKey(q provider.ListingQuery) string {
	q = q.WithDefaults(s.perPage, s.order)
	if q.Page == provider.DefaultPage && q.PerPage == s.perPage && q.Order == s.order {
		return q.Currency
	}
	return strings.Join([]string{q.Currency, q.Order, strconv.Itoa(q.Page), strconv.Itoa(q.PerPage)}, ":")
}

// Listing returns one page of the market listing. It only fails when the
// upstream fails with no cached entry and an empty fallback set.
func (s *Service) Listing(ctx context.Context, q provider.ListingQuery) (Result[[]provider.CoinSummary], error) {
	q = q.WithDefaults(s.perPage, s.order)
	key := s.ListingKey(q)

	return resolve(ctx, s, s.listings, "listing", key,
		func(ctx context.Context) ([]provider.CoinSummary, error) {
			return s.upstream.FetchListing(ctx, q)
		},
		func() ([]provider.CoinSummary, bool) {
			if s.fallback.Empty() {
				return nil, false
			}
			return s.fallback.Listing(q), true
		},
		true,
	)
}

// Detail returns one coin. Unknown ids fall back to the default coin's record
// when the upstream fails.
func (s *Service) Detail(ctx context.Context, id string) (Result[provider.CoinDetail], error) {
	key := strings.ToLower(strings.TrimSpace(id))

	return resolve(ctx, s, s.details, "detail", key,
		func(ctx context.Context) (provider.CoinDetail, error) {
			return s.upstream.FetchDetail(ctx, key)
		},
		func() (provider.CoinDetail, bool) {
			rec, _, ok := s.fallback.Detail(key)
			return rec, ok
		},
		true,
	)
}

// News returns the latest headlines. On total failure it serves an empty
// list, which is not stored.
func (s *Service) News(ctx context.Context) (Result[[]provider.Article], error) {
	if s.news == nil {
		return Result[[]provider.Article]{}, ErrNewsDisabled
	}
	return resolve(ctx, s, s.articles, "news", newsKey,
		s.news.FetchNews,
		func() ([]provider.Article, bool) { return []provider.Article{}, true },
		false,
	)
}

// resolve is the serving policy shared by every kind of payload: fresh entry,
// then one deduplicated upstream call, then stale entry, then fallback.
func resolve[T any](
	ctx context.Context,
	s *Service,
	store Store[T],
	kind, key string,
	fetch func(context.Context) (T, error),
	static func() (T, bool),
	storeFallback bool,
) (Result[T], error) {
	log := s.log.With(zap.String("kind", kind), zap.String("key", key))

	if e, ok := lookup(ctx, store, log, key); ok && e.fresh(s.now(), s.ttl) {
		src := SourceCache
		if e.Source == SourceFallback {
			src = SourceFallback
		}
		s.stats.hit(src)
		return Result[T]{Payload: e.Payload, Source: src, FetchedAt: e.FetchedAt}, nil
	}
	log.Debug("cache miss")

	v, err, shared := s.group.Do(kind+":"+key, func() (any, error) {
		// Shared by every waiter, so one caller leaving must not cancel it.
		callCtx := context.WithoutCancel(ctx)
		payload, err := callUpstream(callCtx, s, fetch)
		if err != nil {
			return nil, err
		}
		e := Entry[T]{Payload: payload, FetchedAt: s.now(), Source: SourceLive}
		save(callCtx, store, log, key, e)
		return e, nil
	})
	if err == nil {
		e := v.(Entry[T])
		if shared {
			log.Debug("shared upstream result")
		}
		s.stats.hit(SourceLive)
		return Result[T]{Payload: e.Payload, Source: SourceLive, FetchedAt: e.FetchedAt}, nil
	}

	log.Warn("upstream failed", zap.Error(err))

	if e, ok := lookup(ctx, store, log, key); ok {
		log.Warn("serving stale entry", zap.Time("fetchedAt", e.FetchedAt))
		s.stats.hit(SourceStale)
		return Result[T]{Payload: e.Payload, Source: SourceStale, FetchedAt: e.FetchedAt}, nil
	}

	payload, ok := static()
	if !ok {
		return Result[T]{}, fmt.Errorf("%s %s: %w: %w", kind, key, ErrExhausted, err)
	}
	e := Entry[T]{Payload: payload, FetchedAt: s.now(), Source: SourceFallback}
	if storeFallback {
		save(ctx, store, log, key, e)
	}
	log.Warn("serving fallback")
	s.stats.hit(SourceFallback)
	return Result[T]{Payload: e.Payload, Source: SourceFallback, FetchedAt: e.FetchedAt}, nil
}

func callUpstream[T any](ctx context.Context, s *Service, fetch func(context.Context) (T, error)) (T, error) {
	payload, err := fetch(ctx)
	s.stats.upstream(s.now(), err)
	return payload, err
}

// lookup treats store errors as a miss.
func lookup[T any](ctx context.Context, store Store[T], log *zap.Logger, key string) (Entry[T], bool) {
	e, ok, err := store.Get(ctx, key)
	if err != nil {
		log.Error("cache read failed", zap.String("store", store.Name()), zap.Error(err))
		return e, false
	}
	return e, ok
}

// save never fails the request; a failed write is only logged.
func save[T any](ctx context.Context, store Store[T], log *zap.Logger, key string, e Entry[T]) {
	if err := store.Set(ctx, key, e); err != nil {
		log.Error("cache write failed", zap.String("store", store.Name()), zap.Error(err))
	}
}

// ClearStats counts the entries removed by ClearCache.
type ClearStats struct {
	CryptoEntries int
	CoinDetails   int
	NewsEntries   int
}

// ClearCache empties every store. The fallback set is untouched.
func (s *Service) ClearCache(ctx context.Context) (ClearStats, error) {
	var out ClearStats
	var errs []error
	var err error
	if out.CryptoEntries, err = s.listings.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clearing listings: %w", err))
	}
	if out.CoinDetails, err = s.details.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clearing details: %w", err))
	}
	if out.NewsEntries, err = s.articles.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clearing news: %w", err))
	}
	s.log.Info("cache cleared",
		zap.Int("cryptoEntries", out.CryptoEntries),
		zap.Int("coinDetails", out.CoinDetails),
		zap.Int("newsEntries", out.NewsEntries),
	)
	return out, errors.Join(errs...)
}
