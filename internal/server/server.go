// Package server exposes the cache service over HTTP.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinproxy/internal/provider"
	"coinproxy/internal/provider/cache"
)

const (
	DataSourceHeader = "X-Data-Source"
	FetchedAtHeader  = "X-Cache-Fetched-At"
)

// Service is what the handlers need from the cache layer.
type Service interface {
	Listing(ctx context.Context, q provider.ListingQuery) (cache.Result[[]provider.CoinSummary], error)
	Detail(ctx context.Context, id string) (cache.Result[provider.CoinDetail], error)
	News(ctx context.Context) (cache.Result[[]provider.Article], error)
	ClearCache(ctx context.Context) (cache.ClearStats, error)
	Stats(ctx context.Context) (cache.Stats, error)
}

type Options struct {
	Stage          string
	AllowedOrigins []string
	// DegradedStatus is sent with stale or fallback payloads; 0 means 200.
	DegradedStatus int
}

type Server struct {
	svc  Service
	log  *zap.Logger
	opts Options
	now  func() time.Time
}

func New(svc Service, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DegradedStatus == 0 {
		opts.DegradedStatus = http.StatusOK
	}
	return &Server{svc: svc, log: log, opts: opts, now: time.Now}
}

// Handler builds the gin engine with every route and middleware.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	// recovery runs inside gzip so a recovered 500 is written before the
	// compressor is flushed.
	r.Use(
		withGzip(),
		recovery(s.log),
		correlationID(),
		requestLogger(s.log),
		cors.New(corsConfig(s.opts.AllowedOrigins)),
	)

	api := r.Group("/api")
	api.GET("/crypto", s.getListing)
	api.GET("/coin/:id", s.getDetail)
	api.GET("/news", s.getNews)
	api.GET("/health", s.getHealth)
	api.GET("/clear-cache", s.clearCache)

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "not_found", "route not found", "")
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", CorrelationIDHeader}
	cfg.ExposeHeaders = []string{DataSourceHeader, FetchedAtHeader, CorrelationIDHeader}
	return cfg
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, msg, id string) {
	c.AbortWithStatusJSON(status, errorBody{
		Error:     code,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ID:        id,
	})
}

// NewHTTPServer wraps h with the timeouts the service runs with.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
