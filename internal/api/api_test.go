package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"estate-marketplace-backend/config"
	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/chat"
	"estate-marketplace-backend/internal/db"
	"estate-marketplace-backend/internal/listing"
	"estate-marketplace-backend/internal/mw"
	"estate-marketplace-backend/internal/notification"
	"estate-marketplace-backend/internal/rating"
	"estate-marketplace-backend/internal/realtime"
	"estate-marketplace-backend/internal/store"
	"estate-marketplace-backend/internal/visit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  store.Store
}

func newTestServer(t *testing.T, push *webpush.Options) *testServer {
	t.Helper()
	gdb, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "api.db")}, logger.Silent)
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	t.Cleanup(func() { sqlDB.Close() })

	s := store.NewGormStore(gdb)
	tokens := auth.NewTokens("test-secret", time.Hour)
	hub := realtime.NewHub(time.Minute)
	sink := notification.Discard{}

	h := NewHandler(Deps{
		Store:    s,
		WebPush:  push,
		Auth:     auth.NewService(s, tokens),
		Tokens:   tokens,
		Listings: listing.NewService(s),
		Visits:   visit.NewService(s, sink, time.UTC),
		Chats:    chat.NewService(s, sink, hub),
		Ratings:  rating.NewService(s),
		Hub:      hub,
	})
	r := NewRouter(h, RouterOptions{
		Auth:     auth.NewMiddleware(tokens, "token"),
		Cache:    mw.NewMemoryCache(time.Minute, time.Minute),
		CacheTTL: time.Minute,
	})
	return &testServer{router: r, store: s}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// signup registers and logs in a user, returning its id and token.
func (ts *testServer) signup(t *testing.T, name, userType string) (string, string) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": name, "email": name + "@example.com", "password": "secret123", "userType": userType,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": name, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		User  struct{ ID string } `json:"user"`
		Token string              `json:"token"`
	}
	decode(t, w, &out)
	return out.User.ID, out.Token
}

func (ts *testServer) createPost(t *testing.T, token, typ string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/posts", token, gin.H{
		"postData":   gin.H{"title": "Garden house", "price": 250000, "city": "Lyon", "type": typ, "property": "house"},
		"postDetail": gin.H{"desc": "quiet street"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p struct{ ID string }
	decode(t, w, &p)
	return p.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct{ Error string }
	decode(t, w, &out)
	return out.Error
}
