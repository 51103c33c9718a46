package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harborstudio/teamsync/internal/config"
	"github.com/harborstudio/teamsync/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("TEAMSYNC_CONFIG"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Log.Level)

	userID := os.Getenv("TEAMSYNC_USER_ID")
	if userID == "" {
		logger.Fatalf("TEAMSYNC_USER_ID is required")
	}

	eng, err := bootstrap(cfg, userID)
	if err != nil {
		logger.Fatalf("Failed to start sync engine: %v", err)
	}

	// Initial full sync; partial failures leave the cache usable from
	// its prior contents.
	progress := eng.orchestrator.SyncAll(context.Background(), userID)
	logger.Info().
		Str("state", string(progress.State)).
		Int("succeeded", progress.SuccessCount()).
		Int("failed", progress.ErrorCount()).
		Msg("initial sync")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")
	eng.shutdown()
}
