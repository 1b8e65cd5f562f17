// The sweeper binary runs one lifecycle maintenance pass and exits. It is
// meant to be invoked from cron every minute.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/database"
	"threadkart/internal/outbox"
	"threadkart/internal/payment"
	"threadkart/internal/repository"
	"threadkart/internal/service"
	"threadkart/internal/sweeper"
	"threadkart/internal/whatsapp"

	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting threadkart sweeper")

	// A single pass should never take longer than this.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize Redis for the run lease
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	sellerRepo := repository.NewSellerRepository(pool, logger)
	earningRepo := repository.NewEarningRepository(pool, logger)
	otpRepo := repository.NewOTPRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	// Initialize gateway clients
	whatsappClient := whatsapp.NewClient(cfg.Gupshup, logger)
	cashfreeClient := payment.NewClient(cfg.Cashfree, logger)

	// The order service finalizes each cancelled order; the outbox worker
	// flushes the notifications the sweep queued before the process exits.
	orderService := service.NewOrderService(orderRepo, sellerRepo, earningRepo, outboxRepo, cashfreeClient, cfg.Lifecycle, logger)
	outboxWorker := outbox.NewWorker(outboxRepo, orderRepo, whatsappClient, cfg.Outbox, logger)

	lease := sweeper.NewRedisLease(redisClient, logger)
	s := sweeper.New(lease, orderRepo, earningRepo, otpRepo, orderService, outboxWorker, cfg.Lifecycle, logger)

	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	return nil
}
