package app

import (
	"database/sql"

	"go-safety/internal/analytics"
	"go-safety/internal/auth"
	"go-safety/internal/config"
	"go-safety/internal/messaging/kafka"
	"go-safety/internal/rbac"
	"go-safety/internal/rbac/infra"
	"go-safety/internal/safetyrecord"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	cfg config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) error {
	// --- Repositories ---
	rbacRepo := rbac.NewRepository()
	authRepo := auth.NewRepository(gormDB)
	recordRepo := safetyrecord.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(cfg.RBACModelPath)
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer, logger)
	if err := rbacService.LoadPolicy(); err != nil {
		return err
	}

	// --- Services ---
	authService := auth.NewService(authRepo, auth.Config{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiry,
	}, logger)
	// analytics owns the result cache; record writes invalidate it
	analyticsService := analytics.NewService(recordRepo, analytics.Config{
		Location:      cfg.Timezone,
		CacheTTL:      cfg.Cache.TTL,
		CacheCapacity: cfg.Cache.Capacity,
	}, logger)
	recordService := safetyrecord.NewServiceWithOutbox(db, recordRepo, outboxRepo, analyticsService, cfg.Timezone, logger)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService, logger)
	recordHandler := safetyrecord.NewHandler(recordService, logger)
	analyticsHandler := analytics.NewHandler(analyticsService, logger)
	rbacHandler := rbac.NewHandler(rbacService, logger)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler, cfg.JWT.Secret, logger)
		safetyrecord.RegisterRoutes(api, recordHandler, rbacService, rdb, cfg.JWT.Secret, logger)
		analytics.RegisterRoutes(api, analyticsHandler, rbacService, cfg.JWT.Secret, logger)
		rbac.RegisterRoutes(api, rbacHandler, cfg.JWT.Secret)
	}

	return nil
}
