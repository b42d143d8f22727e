package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/adapters/elastic"
	"github.com/oneboxhq/onebox/internal/api"
	"github.com/oneboxhq/onebox/internal/config"
	"github.com/oneboxhq/onebox/internal/core"
	"github.com/oneboxhq/onebox/internal/di"
	"github.com/oneboxhq/onebox/internal/imapsync"
	"github.com/oneboxhq/onebox/internal/registry"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	store *elastic.Store,
	reg *registry.AccountRegistry,
	manager *imapsync.Manager,
	server *api.Server,
	llmClient core.LLMClient,
	cache core.CategoryCache,
) error {
	defer logger.Sync()

	ctx := context.Background()

	// Prepare the email index
	if err := store.EnsureIndex(ctx); err != nil {
		logger.Error("Failed to prepare email index", zap.Error(err))
	}

	// Load saved account configs for reconnection
	if err := reg.LoadOnStartup(); err != nil {
		logger.Error("Failed to load saved account configurations", zap.Error(err))
	}

	addr := cfg.GetString("server.listen_address")
	srv := server.HTTPServer(addr)

	go func() {
		logger.Info("HTTP server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	manager.Close()

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if closer, ok := cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close cache", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
