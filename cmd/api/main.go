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

	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/finvault/transaction-service/internal/config"
	"github.com/finvault/transaction-service/internal/events"
	"github.com/finvault/transaction-service/internal/handler"
	"github.com/finvault/transaction-service/internal/integrations/rates"
	"github.com/finvault/transaction-service/internal/middleware"
	"github.com/finvault/transaction-service/internal/repository"
	"github.com/finvault/transaction-service/internal/service"
	"github.com/finvault/transaction-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	repo, err := repository.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	// The database container may still be starting; retry the first ping
	// with backoff before giving up.
	backoff := retry.WithMaxRetries(5, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := repo.Ping(ctx); err != nil {
			logger.Warnf("Database not ready: %v", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to apply migrations: %v", err)
	}

	// Rate limiter: Redis-backed when configured, in-process otherwise
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		limiter, err = middleware.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
	} else {
		limiter = middleware.NewMemoryLimiter()
	}
	defer limiter.Close()

	// Optional integrations
	var mailer service.Mailer
	if cfg.SMTPHost != "" {
		mailer = email.NewSender(cfg, logger)
	}
	var publisher service.EventPublisher
	if cfg.NATSURL != "" {
		p, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer p.Close()
		publisher = p
	}
	var rateSource handler.RateSource
	if cfg.CBRURL != "" {
		rateSource = rates.NewClient(cfg.CBRURL, logger)
	}

	// Initialize layers
	authSvc := service.NewAuthService(repo, logger, cfg, mailer)
	txSvc := service.NewTransactionService(repo, logger, cfg, publisher)
	h := handler.NewHandler(authSvc, txSvc, repo, rateSource, logger)
	router := handler.NewRouter(h, authSvc, limiter, cfg, logger)

	// Background jobs
	jobs := cron.New()
	if memLimiter, ok := limiter.(*middleware.MemoryLimiter); ok {
		_, _ = jobs.AddFunc("@every 5m", memLimiter.Sweep)
	}
	_, _ = jobs.AddFunc("@daily", func() {
		statsCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		users, err := repo.CountUsers(statsCtx)
		if err != nil {
			logger.Errorf("Failed to count users: %v", err)
			return
		}
		txs, err := repo.CountTransactions(statsCtx)
		if err != nil {
			logger.Errorf("Failed to count transactions: %v", err)
			return
		}
		logger.WithFields(logrus.Fields{"users": users, "transactions": txs}).
			Info("Daily stats")
	})
	jobs.Start()
	defer jobs.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown failed: %v", err)
	}
}
