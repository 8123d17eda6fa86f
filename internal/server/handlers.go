package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinproxy/internal/provider"
	"coinproxy/internal/provider/cache"
)

var currencyPattern = regexp.MustCompile(`^[a-z]{2,10}$`)

var listingOrders = map[string]bool{
	"market_cap_desc": true,
	"market_cap_asc":  true,
	"volume_desc":     true,
	"volume_asc":      true,
	"id_asc":          true,
	"id_desc":         true,
}

func (s *Server) getListing(c *gin.Context) {
	q, err := parseListingQuery(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", err.Error(), "")
		return
	}

	res, err := s.svc.Listing(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeResult(c, s.status(res.Degraded()), res.Source, res.FetchedAt, res.Payload)
}

// parseListingQuery leaves unset fields zero so the service applies its
// configured defaults.
func parseListingQuery(c *gin.Context) (provider.ListingQuery, error) {
	var q provider.ListingQuery

	q.Currency = strings.ToLower(strings.TrimSpace(c.DefaultQuery("vs_currency", provider.DefaultCurrency)))
	if !currencyPattern.MatchString(q.Currency) {
		return q, fmt.Errorf("vs_currency must be 2 to 10 letters, got %q", q.Currency)
	}

	var err error
	if q.Page, err = intParam(c, "page", 1, provider.MaxPage); err != nil {
		return q, err
	}
	if q.PerPage, err = intParam(c, "per_page", 1, provider.MaxPerPage); err != nil {
		return q, err
	}

	if v := c.Query("order"); v != "" {
		if !listingOrders[v] {
			return q, fmt.Errorf("unsupported order %q", v)
		}
		q.Order = v
	}
	return q, nil
}

// intParam parses an optional integer query parameter within [lo, hi].
// An absent parameter yields 0.
func intParam(c *gin.Context, name string, lo, hi int) (int, error) {
	v, ok := c.GetQuery(name)
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

func (s *Server) getDetail(c *gin.Context) {
	id := strings.ToLower(strings.TrimSpace(c.Param("id")))
	if id == "" {
		abortWithError(c, http.StatusBadRequest, "invalid_request", "coin id is required", "")
		return
	}

	res, err := s.svc.Detail(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err, id)
		return
	}
	writeResult(c, s.status(res.Degraded()), res.Source, res.FetchedAt, res.Payload)
}

func (s *Server) getNews(c *gin.Context) {
	res, err := s.svc.News(c.Request.Context())
	if errors.Is(err, cache.ErrNewsDisabled) {
		abortWithError(c, http.StatusNotFound, "news_disabled", "news is not configured", "")
		return
	}
	if err != nil {
		s.fail(c, err, "")
		return
	}
	writeResult(c, s.status(res.Degraded()), res.Source, res.FetchedAt, res.Payload)
}

type healthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Stage     string           `json:"stage"`
	Cache     healthCache      `json:"cache"`
	TTL       healthTTL        `json:"ttl"`
	Upstream  healthUpstream   `json:"upstream"`
	Sources   map[string]int64 `json:"sources"`
}

type healthCache struct {
	CryptoEntries int    `json:"cryptoEntries"`
	CoinDetails   int    `json:"coinDetails"`
	NewsEntries   int    `json:"newsEntries"`
	Backend       string `json:"backend"`
}

type healthTTL struct {
	Seconds int    `json:"seconds"`
	Human   string `json:"human"`
}

type healthUpstream struct {
	Calls       int64  `json:"calls"`
	Failures    int64  `json:"failures"`
	LastError   string `json:"lastError,omitempty"`
	LastErrorAt string `json:"lastErrorAt,omitempty"`
}

func (s *Server) getHealth(c *gin.Context) {
	st, err := s.svc.Stats(c.Request.Context())
	if err != nil {
		s.logger(c).Error("stats failed", zap.Error(err))
		abortWithError(c, http.StatusServiceUnavailable, "cache_unavailable", err.Error(), "")
		return
	}

	out := healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Stage:     s.opts.Stage,
		Cache: healthCache{
			CryptoEntries: st.CryptoEntries,
			CoinDetails:   st.CoinDetails,
			NewsEntries:   st.NewsEntries,
			Backend:       st.Backend,
		},
		TTL: healthTTL{Seconds: int(st.TTL.Seconds()), Human: st.TTL.String()},
		Upstream: healthUpstream{
			Calls:     st.UpstreamCalls,
			Failures:  st.UpstreamFailures,
			LastError: st.LastError,
		},
		Sources: make(map[string]int64, len(st.Sources)),
	}
	if st.UpstreamDown {
		out.Status = "degraded"
	}
	if !st.LastErrorAt.IsZero() {
		out.Upstream.LastErrorAt = st.LastErrorAt.UTC().Format(time.RFC3339)
	}
	for src, n := range st.Sources {
		out.Sources[string(src)] = n
	}
	c.JSON(http.StatusOK, out)
}

type clearResponse struct {
	Message       string `json:"message"`
	CryptoEntries int    `json:"cryptoEntries"`
	CoinDetails   int    `json:"coinDetails"`
	NewsEntries   int    `json:"newsEntries"`
	Timestamp     string `json:"timestamp"`
}

func (s *Server) clearCache(c *gin.Context) {
	st, err := s.svc.ClearCache(c.Request.Context())
	if err != nil {
		s.logger(c).Error("clear cache failed", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "clear_failed", err.Error(), "")
		return
	}
	c.JSON(http.StatusOK, clearResponse{
		Message:       "cache cleared",
		CryptoEntries: st.CryptoEntries,
		CoinDetails:   st.CoinDetails,
		NewsEntries:   st.NewsEntries,
		Timestamp:     s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) status(degraded bool) int {
	if degraded {
		return s.opts.DegradedStatus
	}
	return http.StatusOK
}

func writeResult(c *gin.Context, status int, src cache.Source, fetchedAt time.Time, payload any) {
	c.Header(DataSourceHeader, string(src))
	c.Header(FetchedAtHeader, fetchedAt.UTC().Format(time.RFC3339))
	c.JSON(status, payload)
}

// fail maps a service error to a response. Exhaustion is a 503; anything
// else is unexpected.
func (s *Server) fail(c *gin.Context, err error, id string) {
	log := s.logger(c)
	if errors.Is(err, cache.ErrExhausted) {
		log.Warn("no data available", zap.String("id", id), zap.Error(err))
		abortWithError(c, http.StatusServiceUnavailable, "upstream_unavailable",
			"market data is temporarily unavailable", id)
		return
	}
	log.Error("request failed", zap.String("id", id), zap.Error(err))
	abortWithError(c, http.StatusInternalServerError, "internal_error", "internal server error", id)
}

func (s *Server) logger(c *gin.Context) *zap.Logger {
	return s.log.With(zap.String("correlation_id", getCorrelationID(c)))
}
