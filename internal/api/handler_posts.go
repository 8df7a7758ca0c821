package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/listing"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/store"
)

type postQuery struct {
	City     string `form:"city"`
	Type     string `form:"type" binding:"omitempty,oneof=sale rental"`
	Property string `form:"property" binding:"omitempty,oneof=apartment house condo land"`
	Bedroom  int    `form:"bedroom" binding:"min=0"`
	MinPrice int64  `form:"minPrice" binding:"min=0"`
	MaxPrice int64  `form:"maxPrice" binding:"min=0"`
}

// ListPosts returns the listings matching the query filters.
func (h *Handler) ListPosts(c *gin.Context) {
	var q postQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	posts, err := h.listings.List(c.Request.Context(), store.PostFilter{
		City:     q.City,
		Type:     model.ListingType(q.Type),
		Property: model.PropertyKind(q.Property),
		Bedroom:  q.Bedroom,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	}, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPost returns one listing with its detail and owner.
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	post, err := h.listings.Get(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

type postData struct {
	Title     string   `json:"title" binding:"required"`
	Price     int64    `json:"price" binding:"min=0"`
	Images    []string `json:"images"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Bedroom   int      `json:"bedroom" binding:"min=0"`
	Bathroom  int      `json:"bathroom" binding:"min=0"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Type      string   `json:"type" binding:"required,oneof=sale rental"`
	Property  string   `json:"property" binding:"omitempty,oneof=apartment house condo land"`
}

type postDetail struct {
	Desc       string `json:"desc"`
	Utilities  string `json:"utilities"`
	Pet        string `json:"pet"`
	Income     string `json:"income"`
	Size       int    `json:"size"`
	School     int    `json:"school"`
	Bus        int    `json:"bus"`
	Restaurant int    `json:"restaurant"`
}

type postRequest struct {
	PostData   postData    `json:"postData" binding:"required"`
	PostDetail *postDetail `json:"postDetail"`
}

func (r postRequest) input() listing.PostInput {
	in := listing.PostInput{
		Title:     r.PostData.Title,
		Price:     r.PostData.Price,
		Images:    r.PostData.Images,
		Address:   r.PostData.Address,
		City:      r.PostData.City,
		Bedroom:   r.PostData.Bedroom,
		Bathroom:  r.PostData.Bathroom,
		Latitude:  r.PostData.Latitude,
		Longitude: r.PostData.Longitude,
		Type:      model.ListingType(r.PostData.Type),
		Property:  model.PropertyKind(r.PostData.Property),
	}
	if d := r.PostDetail; d != nil {
		in.Detail = &model.PostDetail{
			Desc:       d.Desc,
			Utilities:  d.Utilities,
			Pet:        d.Pet,
			Income:     d.Income,
			Size:       d.Size,
			School:     d.School,
			Bus:        d.Bus,
			Restaurant: d.Restaurant,
		}
	}
	return in
}

// CreatePost lists a property owned by the caller.
func (h *Handler) CreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	post, err := h.listings.Create(c.Request.Context(), auth.UserID(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost edits a listing the caller owns.
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	post, err := h.listings.Update(c.Request.Context(), id, auth.UserID(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes a listing the caller owns.
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.listings.Delete(c.Request.Context(), id, auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

type toggleSoldRequest struct {
	Confirmed bool `json:"confirmed"`
}

// ToggleSold flips the sold flag of a sale listing. Unselling needs confirmed=true.
func (h *Handler) ToggleSold(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	// The body is optional and may arrive chunked, so only an empty one is skipped.
	var req toggleSoldRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}
	post, err := h.listings.ToggleSold(c.Request.Context(), id, auth.UserID(c), req.Confirmed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ToggleRented flips the rented flag of a rental listing.
func (h *Handler) ToggleRented(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	post, err := h.listings.ToggleRented(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
