package analytics

import (
	"go-safety/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	jwtSecret string,
	logger *zap.Logger,
) {
	analytics := r.Group("/analytics")
	analytics.Use(middleware.AuthMiddleware(jwtSecret))
	analytics.Use(middleware.ContextLogger(logger))
	analytics.Use(middleware.RateLimitByUser(5, 20))
	analytics.Use(middleware.RBACAuthorize(rbacService, "analytics", "read"))
	{
		analytics.GET("/dashboard", handler.Dashboard)
		analytics.GET("/area-defaulters", handler.AreaDefaulters)
		analytics.GET("/department-analytics", handler.DepartmentAnalytics)
		analytics.GET("/monthly-trend", handler.MonthlyTrend)
		analytics.GET("/daily-trend", handler.DailyTrend)
		analytics.GET("/equipment-breakdown", handler.EquipmentBreakdown)
		analytics.GET("/:dimension", handler.ByDimension)
	}
}
