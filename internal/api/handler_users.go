package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/store"
)

// GetUser returns another user's public profile.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.store.GetUser(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, apperr.NotFound("user not found"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}

// ListUsers returns every account's public profile.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.auth.Users(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type updateUserRequest struct {
	Username        string `json:"username" binding:"omitempty,min=3,max=64"`
	Email           string `json:"email" binding:"omitempty,email"`
	Avatar          string `json:"avatar" binding:"omitempty,max=512"`
	Password        string `json:"password" binding:"omitempty,min=6"`
	CurrentPassword string `json:"currentPassword"`
}

// UpdateUser changes the caller's own profile.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u, err := h.auth.UpdateProfile(c.Request.Context(), auth.UserID(c), id, auth.ProfileInput{
		Username:        req.Username,
		Email:           req.Email,
		Avatar:          req.Avatar,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteUser removes the caller's own account and logs it out.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.auth.DeleteAccount(c.Request.Context(), auth.UserID(c), id, h.listings); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type savePostRequest struct {
	PostID string `json:"postId" binding:"required"`
}

// SavePost toggles whether the caller has saved a post.
func (h *Handler) SavePost(c *gin.Context) {
	var req savePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	postID, err := optionalID(req.PostID)
	if err != nil {
		respondError(c, err)
		return
	}

	saved, err := h.listings.ToggleSave(c.Request.Context(), auth.UserID(c), *postID)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "post removed from saved list"
	if saved {
		msg = "post saved"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "saved": saved})
}

// ProfilePosts returns the caller's own and saved listings.
func (h *Handler) ProfilePosts(c *gin.Context) {
	owned, saved, err := h.listings.ProfilePosts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userPosts": owned, "savedPosts": saved})
}

// NotificationCount returns unread notifications plus unseen chats.
func (h *Handler) NotificationCount(c *gin.Context) {
	ctx := c.Request.Context()
	me := auth.UserID(c)

	unread, err := h.store.CountUnreadNotifications(ctx, me)
	if err != nil {
		respondError(c, err)
		return
	}
	unseen, err := h.store.CountUnseenChats(ctx, me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":         unread + unseen,
		"notifications": unread,
		"chats":         unseen,
	})
}
