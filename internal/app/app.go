package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go-safety/internal/config"
	"go-safety/internal/middleware"
	"go-safety/internal/observability/metrics"
	"go-safety/internal/safetyrecord"
	"go-safety/internal/shared/connection"
	"go-safety/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// BuildApp connects the infrastructure and registers every route on router.
// The returned func closes the connections.
func BuildApp(router *gin.Engine, cfg config.Config, logger *zap.Logger) (func(), error) {
	log := logger.Named("app")

	// 1. Setup Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(cfg.DB, cfg.ConnRetries)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.ConnRetries)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info("redis connection established")

	cleanup := func() {
		_ = redisClient.Close()
		_ = sqlDB.Close()
	}

	if err := safetyrecord.RegisterValidators(); err != nil {
		cleanup()
		return nil, err
	}

	// 2. Global middleware
	router.Use(
		middleware.RequestID(),
		otelgin.Middleware(cfg.ServiceName),
		metrics.GinMiddleware(),
	)

	router.GET("/healthz", healthHandler(sqlDB, redisClient))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 3. Register Modules & Routes
	if err := registerModules(router, cfg, sqlDB, gormDB, redisClient, logger); err != nil {
		cleanup()
		return nil, err
	}

	return cleanup, nil
}

func healthHandler(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "up", "redis": "up"}
		healthy := true
		if err := db.PingContext(ctx); err != nil {
			status["database"] = "down"
			healthy = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			healthy = false
		}

		if !healthy {
			response.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Dependency unavailable", status)
			return
		}
		response.Success(c, http.StatusOK, status, nil)
	}
}
