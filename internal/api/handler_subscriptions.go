package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription binds a browser push subscription to the caller.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   auth.UserID(c),
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.UpsertSubscription(c.Request.Context(), &sub); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.Subscription(ctx, req.Endpoint, auth.UserID(c)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.NotFound("subscription not found"))
		} else {
			respondError(c, err)
		}
		return
	}
	if err := h.store.DeleteSubscription(ctx, req.Endpoint); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// rawQueryParam reads key from the raw query without unescaping it, since
// push endpoints are compared byte for byte.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription reports whether an endpoint is subscribed for the caller.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, err := h.store.Subscription(c.Request.Context(), raw, auth.UserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		} else {
			respondError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "createdAt": sub.CreatedAt})
}
