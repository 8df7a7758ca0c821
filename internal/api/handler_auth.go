package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/model"
)

type registerRequest struct {
	Username string         `json:"username" binding:"required,min=3,max=64"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	UserType model.UserType `json:"userType" binding:"omitempty,oneof=buyer seller"`
}

// Register creates an account.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u, err := h.auth.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		UserType: req.UserType,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created", "user": u})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login issues a token, both as a cookie and in the body.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.tokens.TTL().Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"user": u, "token": token})
}

// Logout clears the token cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
