// Package app wires a cache.Service from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coinproxy/internal/config"
	"coinproxy/internal/httpx"
	"coinproxy/internal/provider"
	"coinproxy/internal/provider/cache"
	"coinproxy/internal/provider/coingecko"
	"coinproxy/internal/provider/coingeckoadapter"
	"coinproxy/internal/provider/fallback"
	"coinproxy/internal/provider/newsapi"
)

// Build returns the service described by cfg and a func releasing its
// resources. The Redis connection, when configured, is checked up front.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*cache.Service, func(), error) {
	httpClient := httpx.New(cfg.RequestTimeout())

	gecko := coingecko.NewClient(
		coingecko.WithHTTPClient(httpClient),
		coingecko.WithBaseURL(cfg.Upstream.BaseURL),
		coingecko.WithAPIKey(cfg.Upstream.APIKey, cfg.Upstream.Pro),
	)
	upstream := coingeckoadapter.New(coingeckoadapter.Config{
		PerPage: cfg.Upstream.PerPage,
		Order:   cfg.Upstream.Order,
	}, gecko)

	options := []cache.Option{
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithListingDefaults(cfg.Upstream.PerPage, cfg.Upstream.Order),
		cache.WithLogger(log.Named("cache")),
	}

	if cfg.Fallback.Enabled {
		options = append(options, cache.WithFallback(fallback.New(fallback.Records(), cfg.Fallback.DefaultCoin)))
	} else {
		options = append(options, cache.WithFallback(nil))
	}

	if cfg.News.APIKey != "" {
		news, err := newsapi.New(cfg.News.APIKey,
			newsapi.WithEndpoint(cfg.News.Endpoint),
			newsapi.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("news client: %w", err)
		}
		options = append(options, cache.WithNewsProvider(news))
	} else {
		log.Info("NEWS_API_KEY not set; /api/news disabled")
	}

	cleanup := func() {}
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = client.Close() }
		options = append(options, cache.WithStores(
			cache.NewRedisStore[[]provider.CoinSummary](client, cfg.Redis.Prefix, "listing"),
			cache.NewRedisStore[provider.CoinDetail](client, cfg.Redis.Prefix, "detail"),
			cache.NewRedisStore[[]provider.Article](client, cfg.Redis.Prefix, "news"),
		))
	default:
		options = append(options, cache.WithStores(
			cache.NewMemoryStore[[]provider.CoinSummary](),
			cache.NewMemoryStore[provider.CoinDetail](),
			cache.NewMemoryStore[[]provider.Article](),
		))
	}

	log.Info("cache configured",
		zap.String("backend", cfg.Cache.Backend),
		zap.Duration("ttl", cfg.CacheTTL()),
		zap.String("upstream", gecko.BaseURL()),
		zap.Duration("requestTimeout", httpClient.Timeout()),
		zap.Bool("fallback", cfg.Fallback.Enabled),
	)
	return cache.New(upstream, options...), cleanup, nil
}
