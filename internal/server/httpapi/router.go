package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dkravets/kitafeed/internal/common"
)

// NewRouter assembles the gin engine: CORS, the public auth endpoints and
// the token-protected, rate-limited API group.
func NewRouter(s *Server, limiter *IPRateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = maxProxiedBody

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", common.AuthorizationHeaderName},
		ExposeHeaders: []string{common.RetryAfterHeaderName},
		MaxAge:        12 * time.Hour,
	}))

	auth := r.Group("/api/auth")
	auth.Use(RateLimitMiddleware(limiter))
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.POST("/refresh", s.refresh)
	}

	api := r.Group("/api")
	api.Use(JWTAuthMiddleware(s.users), RateLimitMiddleware(limiter))
	{
		api.GET("/children", s.listChildren)
		api.POST("/consent-summary", s.consentSummary)

		api.POST("/uploads/sign", s.signUpload)
		api.POST("/uploads/finalize", s.finalizeUpload)

		api.GET("/feed", s.feed)
		api.POST("/posts", s.createPost)
		api.POST("/posts/upload", s.submitPost)
		api.POST("/posts/:id/media", s.attachMedia)
		api.PATCH("/posts/:id", s.updatePost)
		api.DELETE("/posts/:id", s.deletePost)
		api.DELETE("/posts/:id/media/:mediaID", s.deleteMedia)

		api.GET("/posts/:id/comments", s.listComments)
		api.POST("/posts/:id/comments", s.createComment)
		api.PATCH("/comments/:id", s.updateComment)
		api.DELETE("/comments/:id", s.deleteComment)

		api.POST("/posts/:id/like", s.toggleLike)
		api.GET("/posts/:id/likers", s.likers)

		api.GET("/tickets", s.listTickets)
		api.POST("/tickets/:id/close", s.closeTicket)
	}

	return r
}
