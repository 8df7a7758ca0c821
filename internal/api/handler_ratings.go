package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/auth"
)

type createRatingRequest struct {
	VisitID string  `json:"visitId" binding:"required"`
	Rating  float64 `json:"rating" binding:"required,min=1,max=5"`
	Comment string  `json:"comment" binding:"max=2000"`
}

// CreateRating rates the property of one of the caller's accepted visits.
func (h *Handler) CreateRating(c *gin.Context) {
	var req createRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	visitID, err := optionalID(req.VisitID)
	if err != nil {
		respondError(c, err)
		return
	}
	created, err := h.ratings.Create(c.Request.Context(), auth.UserID(c), *visitID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// PostRatings returns a property's ratings and aggregate.
func (h *Handler) PostRatings(c *gin.Context) {
	id, ok := pathID(c, "postId")
	if !ok {
		return
	}
	summary, err := h.ratings.ForPost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RatingEligibility tells the caller whether they may rate a property.
func (h *Handler) RatingEligibility(c *gin.Context) {
	id, ok := pathID(c, "postId")
	if !ok {
		return
	}
	e, err := h.ratings.Eligibility(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
