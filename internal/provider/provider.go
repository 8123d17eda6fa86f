package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
)

// RequiredCurrencies are always present in a CurrencyValues produced by
// normalization, zero-filled when the upstream omits them.
var RequiredCurrencies = []string{"usd", "brl", "eur"}

// CurrencyValues maps a lower-case quote currency code to a value.
type CurrencyValues map[string]float64

// Get returns the value for currency, falling back to the USD value when the
// currency is absent.
func (c CurrencyValues) Get(currency string) float64 {
	if v, ok := c[strings.ToLower(currency)]; ok {
		return v
	}
	return c["usd"]
}

// Sparkline is the 7 day price series of a listing row.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// CoinSummary is one row of the market listing.
type CoinSummary struct {
	ID                       string     `json:"id"`
	Name                     string     `json:"name"`
	Symbol                   string     `json:"symbol"`
	Image                    string     `json:"image"`
	CurrentPrice             float64    `json:"current_price"`
	MarketCap                float64    `json:"market_cap"`
	MarketCapRank            int        `json:"market_cap_rank"`
	TotalVolume              float64    `json:"total_volume"`
	PriceChangePercentage24h float64    `json:"price_change_percentage_24h"`
	SparklineIn7d            *Sparkline `json:"sparkline_in_7d,omitempty"`
}

// MarketData is the nested market block of a CoinDetail.
type MarketData struct {
	CurrentPrice                       CurrencyValues `json:"current_price"`
	MarketCap                          CurrencyValues `json:"market_cap"`
	TotalVolume                        CurrencyValues `json:"total_volume"`
	FullyDilutedValuation              CurrencyValues `json:"fully_diluted_valuation"`
	CirculatingSupply                  float64        `json:"circulating_supply"`
	TotalSupply                        float64        `json:"total_supply"`
	MaxSupply                          float64        `json:"max_supply"`
	PriceChangePercentage1h            float64        `json:"price_change_percentage_1h"`
	PriceChangePercentage24h           float64        `json:"price_change_percentage_24h"`
	PriceChangePercentage7d            float64        `json:"price_change_percentage_7d"`
	PriceChangePercentage30d           float64        `json:"price_change_percentage_30d"`
	PriceChangePercentage24hInCurrency CurrencyValues `json:"price_change_percentage_24h_in_currency"`
	PriceChangePercentage7dInCurrency  CurrencyValues `json:"price_change_percentage_7d_in_currency"`
	MarketCapChangePercentage24h       float64        `json:"market_cap_change_percentage_24h"`
}

// CoinDetail is the normalized single-coin record.
type CoinDetail struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Symbol        string     `json:"symbol"`
	Image         string     `json:"image"`
	MarketCapRank int        `json:"market_cap_rank"`
	MarketData    MarketData `json:"market_data"`
	LastUpdated   string     `json:"last_updated,omitempty"`
}

// Clone returns a deep copy so callers can never mutate shared records.
func (d CoinDetail) Clone() CoinDetail {
	out := d
	md := &out.MarketData
	md.CurrentPrice = maps.Clone(d.MarketData.CurrentPrice)
	md.MarketCap = maps.Clone(d.MarketData.MarketCap)
	md.TotalVolume = maps.Clone(d.MarketData.TotalVolume)
	md.FullyDilutedValuation = maps.Clone(d.MarketData.FullyDilutedValuation)
	md.PriceChangePercentage24hInCurrency = maps.Clone(d.MarketData.PriceChangePercentage24hInCurrency)
	md.PriceChangePercentage7dInCurrency = maps.Clone(d.MarketData.PriceChangePercentage7dInCurrency)
	return out
}

// Article is a news headline served next to the market data.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
	URLToImage  string `json:"urlToImage"`
}

// Listing defaults used when a query leaves a field unset.
const (
	DefaultCurrency = "usd"
	DefaultOrder    = "market_cap_desc"
	DefaultPage     = 1
	DefaultPerPage  = 20
	MaxPerPage      = 250
	MaxPage         = 10000
)

// ListingQuery selects one page of the market listing.
type ListingQuery struct {
	Currency string
	Page     int
	PerPage  int
	Order    string
}

// WithDefaults fills unset fields and lower-cases the currency.
func (q ListingQuery) WithDefaults(perPage int, order string) ListingQuery {
	q.Currency = strings.ToLower(strings.TrimSpace(q.Currency))
	if q.Currency == "" {
		q.Currency = DefaultCurrency
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if order == "" {
		order = DefaultOrder
	}
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PerPage <= 0 {
		q.PerPage = perPage
	}
	if q.Order == "" {
		q.Order = order
	}
	return q
}

// Provider is the upstream market-data source.
//
//go:generate mockgen -package=cache_test -destination=cache/mock_provider_test.go -source=provider.go Provider NewsProvider
type Provider interface {
	Name() string
	FetchListing(ctx context.Context, q ListingQuery) ([]CoinSummary, error)
	FetchDetail(ctx context.Context, id string) (CoinDetail, error)
}

// NewsProvider is the upstream headline source.
type NewsProvider interface {
	FetchNews(ctx context.Context) ([]Article, error)
}

// ErrUpstream matches every *UpstreamError with errors.Is.
var ErrUpstream = errors.New("upstream failure")

// UpstreamError reports a failed upstream call: transport error, timeout,
// non-2xx status or an undecodable body. StatusCode is 0 when no response
// was received.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

