package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/model"
	"estate-marketplace-backend/internal/visit"
)

type createVisitRequest struct {
	PostID     string `json:"postId" binding:"uuid_or_empty"`
	PropertyID string `json:"propertyId" binding:"uuid_or_empty"`
	VisitorID  string `json:"visitorId" binding:"uuid_or_empty"`
	Date       string `json:"date" binding:"required,calendarday"`
	TimeSlot   string `json:"timeSlot" binding:"required,timeslot"`
	Message    string `json:"message" binding:"max=2000"`
}

// actingAs rejects bodies that name a different user than the authenticated one.
func actingAs(c *gin.Context, claimed string) (uuid.UUID, error) {
	me := auth.UserID(c)
	if claimed == "" {
		return me, nil
	}
	id, err := optionalID(claimed)
	if err != nil {
		return uuid.Nil, err
	}
	if *id != me {
		return uuid.Nil, apperr.Forbidden("you can only act as yourself")
	}
	return me, nil
}

// CreateVisit requests a visit to a property.
func (h *Handler) CreateVisit(c *gin.Context) {
	var req createVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	raw := req.PostID
	if raw == "" {
		raw = req.PropertyID
	}
	postID, err := optionalID(raw)
	if err != nil {
		respondError(c, err)
		return
	}
	if postID == nil {
		respondError(c, apperr.Validation("postId is required"))
		return
	}
	visitor, err := actingAs(c, req.VisitorID)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.visits.Create(c.Request.Context(), visit.CreateInput{
		PostID:    *postID,
		VisitorID: visitor,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Message:   req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type respondVisitRequest struct {
	UserID          string  `json:"userId" binding:"uuid_or_empty"`
	Status          string  `json:"status" binding:"required,oneof=ACCEPTED REJECTED"`
	ResponseMessage *string `json:"responseMessage" binding:"omitempty,max=2000"`
}

// RespondToVisit accepts or rejects a pending visit of the caller's property.
func (h *Handler) RespondToVisit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req respondVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	responder, err := actingAs(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.visits.Respond(c.Request.Context(), visit.RespondInput{
		VisitID:         id,
		ResponderID:     responder,
		Decision:        model.VisitStatus(req.Status),
		ResponseMessage: req.ResponseMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListVisits returns the caller's visits as visitor or owner.
func (h *Handler) ListVisits(c *gin.Context) {
	visits, err := h.visits.ForUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}

// PostVisits returns the accepted slots of a property.
func (h *Handler) PostVisits(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	slots, err := h.visits.AcceptedSlots(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// VisitRequests returns the pending requests addressed to the caller.
func (h *Handler) VisitRequests(c *gin.Context) {
	visits, err := h.visits.PendingRequests(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}

// AllVisitRequests returns every request addressed to the caller, pending first.
func (h *Handler) AllVisitRequests(c *gin.Context) {
	visits, err := h.visits.AllRequests(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}

// VisitHistory returns all visits to the caller's properties.
func (h *Handler) VisitHistory(c *gin.Context) {
	visits, err := h.visits.History(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}
