package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estate-marketplace-backend/internal/model"
)

const (
	userIDKey   = "auth.userID"
	userTypeKey = "auth.userType"
)

// Middleware authenticates requests by bearer token or cookie.
type Middleware struct {
	tokens     *Tokens
	cookieName string
}

// NewMiddleware creates the gin authentication middleware.
func NewMiddleware(tokens *Tokens, cookieName string) *Middleware {
	return &Middleware{tokens: tokens, cookieName: cookieName}
}

// Required rejects requests without a valid token.
func (m *Middleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := m.token(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		id, claims, err := m.tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDKey, id)
		c.Set(userTypeKey, claims.UserType)
		c.Next()
	}
}

// Optional identifies the caller when a valid token is present and lets
// anonymous requests through.
func (m *Middleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := m.token(c); raw != "" {
			if id, claims, err := m.tokens.Verify(raw); err == nil {
				c.Set(userIDKey, id)
				c.Set(userTypeKey, claims.UserType)
			}
		}
		c.Next()
	}
}

func (m *Middleware) token(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(m.cookieName); err == nil {
		return v
	}
	return ""
}

// UserID returns the authenticated user id, or uuid.Nil.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// UserType returns the authenticated user's account type.
func UserType(c *gin.Context) model.UserType {
	if v, ok := c.Get(userTypeKey); ok {
		if t, ok := v.(model.UserType); ok {
			return t
		}
	}
	return ""
}

// SetUser stores an identity in the context, for tests and internal callers.
func SetUser(c *gin.Context, id uuid.UUID, userType model.UserType) {
	c.Set(userIDKey, id)
	c.Set(userTypeKey, userType)
}
