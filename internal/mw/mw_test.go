package mw

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewIPRateLimiter(rate.Limit(1), 2, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute)
	l.now = func() time.Time { return now }

	l.Limiter("a")
	now = now.Add(2 * time.Minute)
	l.Limiter("b")

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestCache(t *testing.T) {
	store := NewMemoryCache(time.Minute, time.Minute)
	user := uuid.New()
	hits := 0

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-User") != "" {
			auth.SetUser(c, user, model.UserTypeBuyer)
		}
		c.Next()
	})
	r.Use(Cache(store, time.Minute))
	r.GET("/posts", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})
	r.GET("/missing", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	r.POST("/posts", func(c *gin.Context) { c.Status(http.StatusCreated) })

	get := func(path string, asUser bool) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if asUser {
			req.Header.Set("X-User", "1")
		}
		r.ServeHTTP(w, req)
		return w
	}

	first := get("/posts", false)
	second := get("/posts", false)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)

	get("/posts", true)
	assert.Equal(t, 2, hits, "entries are scoped per user")

	get("/missing", false)
	get("/missing", false)
	assert.Equal(t, 4, hits, "errors are not cached")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	get("/posts", false)
	assert.Equal(t, 5, hits, "writes flush the cache")
}

func TestRequestLogger(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/posts/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/posts/x", nil))
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "/api/posts/x")
	assert.Contains(t, out, "status=404")
}

func TestRedisCache_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	c := NewRedisCache(rdb)
	ctx := context.Background()

	c.Set(ctx, "k", &CachedResponse{Status: http.StatusOK}, time.Minute)
	_, found := c.Get(ctx, "k")
	assert.False(t, found, "a cache outage degrades to misses")
	assert.Error(t, c.Flush(ctx))
}
