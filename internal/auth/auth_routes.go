package auth

import (
	"go-safety/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, jwtSecret string, logger *zap.Logger) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", middleware.RateLimitByIP(0.08, 5), handler.Login)
		auth.GET("/verify",
			middleware.AuthMiddleware(jwtSecret),
			middleware.ContextLogger(logger),
			middleware.RateLimitByUser(2, 5),
			handler.Verify,
		)
		auth.PUT("/change-password",
			middleware.AuthMiddleware(jwtSecret),
			middleware.ContextLogger(logger),
			middleware.RateLimitByUser(0.2, 2),
			handler.ChangePassword,
		)
	}
}
