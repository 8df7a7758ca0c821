package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/store"
)

// ListNotifications returns the caller's notifications, newest first.
func (h *Handler) ListNotifications(c *gin.Context) {
	ns, err := h.store.Notifications(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ns)
}

// MarkNotificationRead marks one of the caller's notifications read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.store.MarkNotificationRead(c.Request.Context(), id, auth.UserID(c))
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, apperr.NotFound("notification not found"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}
