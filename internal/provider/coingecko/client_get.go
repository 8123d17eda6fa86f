package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
)

// ErrNotFound is returned when the API does not know the requested coin.
var ErrNotFound = errors.New("not found")

// ErrRateLimited is returned on HTTP 429.
var ErrRateLimited = errors.New("rate limited")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return e.Err }

// MarketsParams are the query parameters of /coins/markets.
type MarketsParams struct {
	VsCurrency string
	Order      string
	PerPage    int
	Page       int
}

// GetMarkets retrieves one page of the market listing with the 7 day
// sparkline and the 24h price change.
func (c *Client) GetMarkets(ctx context.Context, p MarketsParams) ([]Market, error) {
	query := maps.Clone(c.query)
	query.Set("vs_currency", p.VsCurrency)
	query.Set("order", p.Order)
	query.Set("per_page", strconv.Itoa(p.PerPage))
	query.Set("page", strconv.Itoa(p.Page))
	query.Set("sparkline", "true")
	query.Set("price_change_percentage", "24h")

	var markets []Market
	if err := c.get(ctx, "/coins/markets", query, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// GetCoin retrieves a single coin with market data only; localization,
// tickers, community and developer data are disabled to keep the payload small.
func (c *Client) GetCoin(ctx context.Context, id string) (*Coin, error) {
	if id == "" {
		return nil, fmt.Errorf("coin id cannot be empty")
	}
	query := maps.Clone(c.query)
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("market_data", "true")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")
	query.Set("sparkline", "false")

	var coin Coin
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), query, &coin); err != nil {
		return nil, err
	}
	return &coin, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:

	case res.StatusCode == http.StatusNotFound:
		return &StatusError{StatusCode: res.StatusCode, Err: ErrNotFound}

	case res.StatusCode == http.StatusTooManyRequests:
		return &StatusError{StatusCode: res.StatusCode, Err: ErrRateLimited}

	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return &StatusError{StatusCode: res.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
