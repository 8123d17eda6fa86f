package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	correlationIDKey    = "correlationID"
)

// correlationID tags every request with an ID. A caller-sent ID is reused
// only when it is a UUID.
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		if sent := c.GetHeader(CorrelationIDHeader); len(sent) == 36 {
			if u, err := uuid.Parse(sent); err == nil {
				id = u.String()
			}
		}
		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Next()
	}
}

func getCorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("correlation_id", getCorrelationID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if src := c.Writer.Header().Get(DataSourceHeader); src != "" {
			fields = append(fields, zap.String("source", src))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// recovery turns a panic into a structured 500.
func recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("correlation_id", getCorrelationID(c)),
					zap.Stack("stack"),
				)
				abortWithError(c, http.StatusInternalServerError, "internal_error", "internal server error", getCorrelationID(c))
			}
		}()
		c.Next()
	}
}

// withGzip compresses the response when the client accepts gzip. Bodiless
// responses (preflight, aborts) go out untouched.
func withGzip() gin.HandlerFunc {
	var gzPool = sync.Pool{New: func() any {
		// JSON payloads: favour speed over ratio.
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)
		gw := &gzipResponseWriter{ResponseWriter: c.Writer, writer: gz}
		defer func() {
			if gw.compress {
				_ = gz.Close()
			}
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		c.Writer.Header().Add("Vary", "Accept-Encoding")
		c.Writer = gw
		c.Next()
	}
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer

	started  bool
	compress bool
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if !g.started {
		g.started = true
		// Headers already on the wire cannot announce the encoding.
		g.compress = !g.ResponseWriter.Written()
		if g.compress {
			g.Header().Del("Content-Length")
			g.Header().Set("Content-Encoding", "gzip")
		}
	}
	if !g.compress {
		return g.ResponseWriter.Write(b)
	}
	return g.writer.Write(b)
}

func (g *gzipResponseWriter) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}
