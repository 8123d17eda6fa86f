package coingecko

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// PublicBaseURL is the keyless/demo API root.
	PublicBaseURL = "https://api.coingecko.com/api/v3"
	// ProBaseURL is the paid API root.
	ProBaseURL = "https://pro-api.coingecko.com/api/v3"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coingecko_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the CoinGecko API.
type Client struct {
	// baseURL is the base URL for the API, without a trailing slash.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// ClientOption is a configuration option for the CoinGecko API client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithAPIKey authenticates requests. Pro keys use the pro header, demo keys
// the demo header.
func WithAPIKey(key string, pro bool) ClientOption {
	return func(c *Client) {
		if key == "" {
			return
		}
		if pro {
			c.header.Set("x-cg-pro-api-key", key)
			return
		}
		c.header.Set("x-cg-demo-api-key", key)
	}
}

// NewClient creates a new CoinGecko API client.
func NewClient(options ...ClientOption) *Client {
	var client = &Client{
		baseURL:    PublicBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// BaseURL reports the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }
