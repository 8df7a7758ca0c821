package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"estate-marketplace-backend/internal/auth"
	"estate-marketplace-backend/internal/mw"
)

// RouterOptions configures the shared middleware.
type RouterOptions struct {
	Auth        *auth.Middleware
	RateLimiter *mw.IPRateLimiter
	Cache       mw.CacheStore
	CacheTTL    time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(mw.RateLimit(opts.RateLimiter))
	}

	required := opts.Auth.Required()
	optional := opts.Auth.Optional()

	// The event stream and presence change without writes, so they bypass the cache.
	api.GET("/events", required, h.hub.Stream)
	api.GET("/online", required, h.hub.OnlineUsers)
	api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
	}

	cached := api.Group("")
	if opts.Cache != nil {
		cached.Use(optional, mw.Cache(opts.Cache, opts.CacheTTL))
	}

	posts := cached.Group("/posts")
	{
		posts.GET("", optional, h.ListPosts)
		posts.GET("/:id", optional, h.GetPost)
		posts.POST("", required, h.CreatePost)
		posts.PUT("/:id", required, h.UpdatePost)
		posts.DELETE("/:id", required, h.DeletePost)
		posts.PATCH("/:id/toggle-sold", required, h.ToggleSold)
		posts.PATCH("/:id/toggle-rented", required, h.ToggleRented)
	}

	visits := cached.Group("/visits", required)
	{
		visits.POST("", h.CreateVisit)
		visits.PUT("/:id", h.RespondToVisit)
		visits.GET("", h.ListVisits)
		visits.GET("/post/:id", h.PostVisits)
		visits.GET("/requests", h.VisitRequests)
		visits.GET("/requests/all", h.AllVisitRequests)
		visits.GET("/history", h.VisitHistory)
	}

	users := cached.Group("/users")
	{
		users.POST("/save", required, h.SavePost)
		users.GET("/profilePosts", required, h.ProfilePosts)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", required, h.UpdateUser)
		users.DELETE("/:id", required, h.DeleteUser)
	}

	// Inbox reads mark things seen, so they stay uncached.
	api.GET("/users/notification-count", required, h.NotificationCount)

	chats := api.Group("", required)
	{
		chats.GET("/chats", h.ListChats)
		chats.POST("/chats", h.OpenChat)
		chats.GET("/chats/:id", h.GetChat)
		chats.PUT("/chats/read/:id", h.ReadChat)
		chats.POST("/messages/:chatId", h.SendMessage)
	}

	ratings := cached.Group("/ratings")
	{
		ratings.POST("", required, h.CreateRating)
		ratings.GET("/posts/:postId/ratings", h.PostRatings)
		ratings.GET("/posts/:postId/rating-eligibility", required, h.RatingEligibility)
	}

	notifications := api.Group("/notifications", required)
	{
		notifications.GET("", h.ListNotifications)
		notifications.PATCH("/:id/read", h.MarkNotificationRead)
	}

	subscriptions := api.Group("/subscriptions", required)
	{
		subscriptions.GET("", h.GetSubscription)
		subscriptions.PUT("", h.PutSubscription)
		subscriptions.DELETE("", h.DeleteSubscription)
	}

	return r
}
