package api

import (
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estate-marketplace-backend/internal/apperr"
	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/chat"
	"estate-marketplace-backend/internal/listing"
	"estate-marketplace-backend/internal/parse"
	"estate-marketplace-backend/internal/rating"
	"estate-marketplace-backend/internal/realtime"
	"estate-marketplace-backend/internal/store"
	"estate-marketplace-backend/internal/visit"
)

// Deps are the collaborators the handlers dispatch to.
type Deps struct {
	Store      store.Store
	WebPush    *webpush.Options
	Auth       *auth.Service
	Tokens     *auth.Tokens
	CookieName string
	Listings   *listing.Service
	Visits     *visit.Service
	Chats      *chat.Service
	Ratings    *rating.Service
	Hub        *realtime.Hub
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	webpush    *webpush.Options
	auth       *auth.Service
	tokens     *auth.Tokens
	cookieName string
	listings   *listing.Service
	visits     *visit.Service
	chats      *chat.Service
	ratings    *rating.Service
	hub        *realtime.Hub
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.CookieName == "" {
		d.CookieName = "token"
	}
	return &Handler{
		store:      d.Store,
		webpush:    d.WebPush,
		auth:       d.Auth,
		tokens:     d.Tokens,
		cookieName: d.CookieName,
		listings:   d.Listings,
		visits:     d.Visits,
		chats:      d.Chats,
		ratings:    d.Ratings,
		hub:        d.Hub,
	}
}

// respondError writes err with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.KindConflict, apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindConfirmationRequired:
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": err.Error(), "confirmationRequired": true})
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// pathID parses the named path parameter as an id, answering 400 when it is malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := parse.ID(c.Param(name))
	if err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return uuid.Nil, false
	}
	return id, true
}

// optionalID parses raw when present.
func optionalID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parse.ID(raw)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return &id, nil
}
