package mw

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estate-marketplace-backend/internal/auth"
)

// CachedResponse is a captured GET response.
type CachedResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body"`
}

// CacheStore holds cached responses. Flush drops every entry.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration)
	Flush(ctx context.Context) error
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// cacheKey scopes entries to the caller since responses carry per-user fields like isSaved.
func cacheKey(c *gin.Context) string {
	user := "anon"
	if id := auth.UserID(c); id != uuid.Nil {
		user = id.String()
	}
	return user + ":" + c.Request.RequestURI
}

// Cache serves GET responses from store. A successful write request flushes
// the store so readers never see state older than their own last change.
func Cache(store CacheStore, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			if status := c.Writer.Status(); status >= 200 && status < 300 {
				if err := store.Flush(c.Request.Context()); err != nil {
					slog.Warn("cache flush failed", "error", err)
				}
			}
			return
		}

		key := cacheKey(c)
		if cached, found := store.Get(c.Request.Context(), key); found {
			for k, v := range cached.Headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.Status)
			c.Writer.Write(cached.Body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			store.Set(c.Request.Context(), key, &CachedResponse{
				Status:  blw.Status(),
				Headers: blw.Header().Clone(),
				Body:    blw.body.Bytes(),
			}, duration)
		}
	}
}
