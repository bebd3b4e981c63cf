// fintrack-jobs runs the scheduled background work: the daily recurring
// transaction fan-out, the budget alert cycle, and the monthly report run.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/insights"
	applog "fintrack/internal/log"
	"fintrack/internal/mail"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	logger.Info("Starting fintrack-jobs")

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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// AMQP feeds the per-row recurring worker; without it the fan-out job
	// cannot run.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Warn("AMQP disabled - recurring fan-out will not run")
	}

	// Mail feeds budget alerts and monthly reports.
	var sender mail.Sender
	if cfg.MailEnabled() {
		sender, err = mail.NewGmailSender(ctx, mail.Credentials{
			ClientJSON: cfg.GmailOAuthClientJSON,
			ClientFile: cfg.GmailOAuthClientFile,
			TokenJSON:  cfg.GmailOAuthTokenJSON,
			TokenFile:  cfg.GmailOAuthTokenFile,
			From:       cfg.MailFrom,
		})
		if err != nil {
			logger.Error("Failed to initialize Gmail sender", "error", err)
			os.Exit(1)
		}
		logger.Info("Gmail sender initialized", "from", cfg.MailFrom)
	} else {
		logger.Warn("Mail disabled - budget alerts and monthly reports will not run")
	}

	var insightSource services.InsightSource
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		generator, err := insights.NewGenerator(ctx, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize insight generator", "error", err)
			os.Exit(1)
		}
		insightSource = generator
		logger.Info("Insight generation enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("Insight generation disabled - reports will use fallback insights")
	}

	g, ctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		processor := services.NewRecurringProcessor(repo, amqpClient)
		g.Go(func() error {
			return runFanOut(ctx, processor, cfg.RecurringFanOutInterval)
		})
	}

	if sender != nil {
		evaluator := services.NewBudgetAlertEvaluator(repo, sender)
		g.Go(func() error {
			return runBudgetAlerts(ctx, evaluator, cfg.BudgetAlertInterval)
		})

		generator := services.NewMonthlyReportGenerator(repo, insightSource, sender)
		g.Go(func() error {
			return runMonthlyReports(ctx, generator, cfg.ReportCheckInterval)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Job runner stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Fintrack-jobs shutdown complete")
}

// runFanOut publishes processing requests for due recurring transactions,
// once at startup and then on every tick.
func runFanOut(ctx context.Context, processor *services.RecurringProcessor, interval time.Duration) error {
	if _, err := processor.FanOutDue(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial recurring fan-out failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := processor.FanOutDue(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Recurring fan-out failed", "error", err)
			}
		}
	}
}

func runBudgetAlerts(ctx context.Context, evaluator *services.BudgetAlertEvaluator, interval time.Duration) error {
	if _, err := evaluator.Run(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial budget alert cycle failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := evaluator.Run(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Budget alert cycle failed", "error", err)
			}
		}
	}
}

// runMonthlyReports checks periodically and sends the previous month's
// reports on the first day of a new month. lastReported keeps the run from
// repeating within one month of this process's lifetime; re-sends across
// restarts are accepted.
func runMonthlyReports(ctx context.Context, generator *services.MonthlyReportGenerator, interval time.Duration) error {
	var lastReported time.Time

	check := func(now time.Time) {
		if now.Day() != 1 {
			return
		}
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		if month.Equal(lastReported) {
			return
		}
		if _, err := generator.Run(ctx, now); err != nil {
			slog.ErrorContext(ctx, "Monthly report run failed", "error", err)
			return
		}
		lastReported = month
	}

	check(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			check(now)
		}
	}
}
