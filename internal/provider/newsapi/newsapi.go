// Package newsapi fetches crypto headlines from NewsAPI.org.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"coinproxy/internal/provider"
)

// DefaultEndpoint is the "everything" search endpoint.
const DefaultEndpoint = "https://newsapi.org/v2/everything"

const (
	defaultQuery    = "cryptocurrency OR bitcoin OR ethereum"
	defaultPageSize = 20
)

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("newsapi: api key is required")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements provider.NewsProvider.
type Client struct {
	endpoint   string
	apiKey     string
	query      string
	pageSize   int
	httpClient HTTPClient
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithQuery overrides the search terms.
func WithQuery(q string) Option {
	return func(c *Client) {
		if q != "" {
			c.query = q
		}
	}
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		endpoint:   DefaultEndpoint,
		apiKey:     apiKey,
		query:      defaultQuery,
		pageSize:   defaultPageSize,
		httpClient: http.DefaultClient,
	}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

type response struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	PublishedAt string `json:"publishedAt"`
	URLToImage  string `json:"urlToImage"`
}

// FetchNews returns the latest English headlines, newest first. Every
// failure is a *provider.UpstreamError.
func (c *Client) FetchNews(ctx context.Context) ([]provider.Article, error) {
	articles, status, err := c.fetch(ctx)
	if err != nil {
		return nil, &provider.UpstreamError{Op: "fetch news", StatusCode: status, Err: err}
	}
	out := make([]provider.Article, 0, len(articles))
	for _, a := range articles {
		out = append(out, provider.Article{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			URLToImage:  a.URLToImage,
		})
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context) ([]article, int, error) {
	q := url.Values{}
	q.Set("q", c.query)
	q.Set("language", "en")
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	q.Set("sortBy", "publishedAt")
	q.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, res.StatusCode, fmt.Errorf("unexpected status code: %d: %s", res.StatusCode, b)
	}

	var body response
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, res.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	if body.Status != "" && body.Status != "ok" {
		return nil, res.StatusCode, fmt.Errorf("api status %q: %s", body.Status, body.Message)
	}
	return body.Articles, 0, nil
}
