package app

import (
	"context"
	"fmt"

	"go-safety/internal/auth"
	"go-safety/internal/config"
	"go-safety/internal/messaging/kafka"
	"go-safety/internal/safetyrecord"
	"go-safety/internal/shared/connection"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the services use.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&auth.User{},
		&safetyrecord.SafetyRecord{},
		&kafka.OutboxEventModel{},
	)
}

// RunSetup migrates the schema and creates the admin account when it is missing.
func RunSetup(ctx context.Context, cfg config.Config) error {
	logger := zap.L().Named("app.setup")

	if cfg.Admin.SecretID == "" {
		return fmt.Errorf("SECRET_ID is required")
	}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.DB, cfg.ConnRetries)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema migrated")

	authService := auth.NewService(auth.NewRepository(gormDB), auth.Config{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiry,
	}, logger)

	created, err := authService.EnsureUser(ctx, cfg.Admin.SecretID, cfg.Admin.Password, auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	if created {
		logger.Info("admin user created", zap.String("secret_id", cfg.Admin.SecretID))
	} else {
		logger.Info("admin user already exists", zap.String("secret_id", cfg.Admin.SecretID))
	}

	return nil
}
