package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/insights"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	logger.Info("Starting fintrack server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Receipt scanning is optional: it needs a Gemini API key in the
	// environment.
	var scanner apphttp.ReceiptScanner
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		generator, err := insights.NewGenerator(context.Background(), cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize insight generator", "error", err)
			os.Exit(1)
		}
		scanner = generator
		logger.Info("Receipt scanning enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("Receipt scanning disabled - no Gemini API key provided")
	}

	accountService := services.NewAccountService(repo)
	transactionService := services.NewTransactionService(repo)
	budgetService := services.NewBudgetService(repo)

	srv := apphttp.NewServer(
		":"+cfg.Port,
		repo,
		accountService,
		transactionService,
		budgetService,
		scanner,
		cfg.RateLimitPerMinute,
	)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
