package coingeckoadapter

import (
	"context"
	"errors"
	"strings"

	"coinproxy/internal/provider"
	"coinproxy/internal/provider/coingecko"
)

type Config struct {
	Name    string // display name, default: CoinGecko
	PerPage int    // listing page size when the query leaves it unset
	Order   string // listing order when the query leaves it unset
}

// Client is the subset of the CoinGecko API the adapter uses.
type Client interface {
	GetMarkets(ctx context.Context, p coingecko.MarketsParams) ([]coingecko.Market, error)
	GetCoin(ctx context.Context, id string) (*coingecko.Coin, error)
}

// Adapter exposes the CoinGecko API as a provider.Provider, normalizing raw
// records and wrapping every failure in a *provider.UpstreamError.
type Adapter struct {
	cfg    Config
	client Client
}

func New(cfg Config, client Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "CoinGecko"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = provider.DefaultPerPage
	}
	if cfg.Order == "" {
		cfg.Order = provider.DefaultOrder
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) FetchListing(ctx context.Context, q provider.ListingQuery) ([]provider.CoinSummary, error) {
	q = q.WithDefaults(a.cfg.PerPage, a.cfg.Order)
	markets, err := a.client.GetMarkets(ctx, coingecko.MarketsParams{
		VsCurrency: q.Currency,
		Order:      q.Order,
		PerPage:    q.PerPage,
		Page:       q.Page,
	})
	if err != nil {
		return nil, upstreamError("fetch listing "+q.Currency, err)
	}
	out := make([]provider.CoinSummary, 0, len(markets))
	for _, m := range markets {
		out = append(out, NormalizeMarket(m))
	}
	return out, nil
}

func (a *Adapter) FetchDetail(ctx context.Context, id string) (provider.CoinDetail, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	coin, err := a.client.GetCoin(ctx, id)
	if err != nil {
		return provider.CoinDetail{}, upstreamError("fetch detail "+id, err)
	}
	return NormalizeCoin(coin), nil
}

func upstreamError(op string, err error) error {
	var status int
	var se *coingecko.StatusError
	if errors.As(err, &se) {
		status = se.StatusCode
	}
	return &provider.UpstreamError{Op: op, StatusCode: status, Err: err}
}
