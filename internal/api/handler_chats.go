package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/auth"
)

// ListChats returns the caller's conversations.
func (h *Handler) ListChats(c *gin.Context) {
	views, err := h.chats.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

type openChatRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	PostID     string `json:"postId" binding:"uuid_or_empty"`
}

// OpenChat returns the caller's chat with the receiver, creating it if needed.
func (h *Handler) OpenChat(c *gin.Context) {
	var req openChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	receiver, err := optionalID(req.ReceiverID)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, err := optionalID(req.PostID)
	if err != nil {
		respondError(c, err)
		return
	}

	chat, created, err := h.chats.Open(c.Request.Context(), auth.UserID(c), *receiver, postID)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}

// GetChat returns a chat with its messages and marks it seen.
func (h *Handler) GetChat(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	chat, err := h.chats.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// ReadChat marks a chat seen.
func (h *Handler) ReadChat(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	chat, err := h.chats.Read(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required,max=5000"`
}

// SendMessage posts a message to a chat.
func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := pathID(c, "chatId")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	sent, err := h.chats.Send(c.Request.Context(), auth.UserID(c), id, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sent)
}
