package safetyrecord

import (
	"go-safety/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	rdb *redis.Client,
	jwtSecret string,
	logger *zap.Logger,
) {
	records := r.Group("/safety-records")
	records.Use(middleware.AuthMiddleware(jwtSecret))
	records.Use(middleware.ContextLogger(logger))
	{
		records.GET("",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, "record", "read"),
			handler.GetAll,
		)

		records.GET("/:id",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, "record", "read"),
			handler.GetByID,
		)

		records.POST("",
			middleware.RateLimitByUser(2, 5),
			middleware.RBACAuthorize(rbacService, "record", "create"),
			middleware.Idempotency(rdb),
			handler.Create,
		)

		records.PUT("/:id",
			middleware.RateLimitByUser(1, 3),
			middleware.RBACAuthorize(rbacService, "record", "update"),
			handler.Update,
		)

		records.DELETE("/:id",
			middleware.RateLimitByUser(0.5, 2),
			middleware.RBACAuthorize(rbacService, "record", "delete"),
			handler.Delete,
		)
	}
}
