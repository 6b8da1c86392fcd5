// Package api assembles the gin engine serving the chat, LinkU and /ws
// endpoints.
package api

import (
	"net/http"

	"linku/backend/internal/api/handler"
	"linku/backend/internal/api/middleware"
	"linku/backend/internal/platform/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterConfig struct {
	Handler        *handler.Handler
	AuthMiddleware *middleware.AuthMiddleware
	AllowedOrigins []string
	// TraceService names the otelgin spans; empty disables request tracing.
	TraceService string
	Log          *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TraceService != "" {
		r.Use(otelgin.Middleware(cfg.TraceService))
	}
	r.Use(middleware.RequestContext())
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	h := cfg.Handler

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The stream authenticates before upgrading, see ServeWebSocket.
	r.GET("/ws", h.ServeWebSocket)

	if h.Tokens != nil {
		r.POST("/auth/dev-token", h.IssueDevToken)
	}

	protected := r.Group("/chat")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Rooms and messages
		protected.POST("/rooms", h.CreateRoom)
		protected.GET("/rooms/:id/messages", h.ListMessages)
		protected.GET("/rooms/:id/unread", h.UnreadCount)
		protected.DELETE("/rooms/:id/leave", h.LeaveRoom)
		protected.GET("/my-rooms", h.MyRooms)

		// LinkU
		protected.GET("/rooms/:id/linku", h.LinkuState)
		protected.POST("/rooms/:id/linku/propose", h.ProposeLinku)
		protected.POST("/rooms/:id/linku/reviews", h.WriteReview)
		protected.POST("/linku/:id/accept", h.AcceptLinku)
		protected.POST("/linku/:id/reject", h.RejectLinku)
		protected.GET("/linku/reviews/me", h.MyReviews)
		protected.GET("/linku/reviews/user-id/:handle", h.UserReviews)
		protected.DELETE("/linku/reviews/:id", h.DeleteReview)
		protected.GET("/linku/rating/me", h.MyRating)
		protected.GET("/linku/rating/user-id/:handle", h.UserRating)
		protected.GET("/linku/rating/:uid", h.UserRatingByID)
		protected.GET("/linku/connections/me", h.MyConnections)
	}

	return r
}
