package main

import (
	"context"

	"go-safety/internal/app"
	"go-safety/internal/config"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}

	if err := app.RunSetup(context.Background(), cfg); err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}
	logger.Info("database setup completed")
}
