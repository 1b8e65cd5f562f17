package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadkart/internal/config"
	"threadkart/internal/database"
	"threadkart/internal/handler"
	"threadkart/internal/outbox"
	"threadkart/internal/payment"
	"threadkart/internal/repository"
	"threadkart/internal/router"
	"threadkart/internal/service"
	"threadkart/internal/whatsapp"
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
	logger.Info().Msg("starting threadkart API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	sellerRepo := repository.NewSellerRepository(pool, logger)
	earningRepo := repository.NewEarningRepository(pool, logger)
	returnRepo := repository.NewReturnRepository(pool, logger)
	withdrawalRepo := repository.NewWithdrawalRepository(pool, logger)
	otpRepo := repository.NewOTPRepository(pool, logger)
	outboxRepo := repository.NewOutboxRepository(pool, logger)

	// Initialize gateway clients
	whatsappClient := whatsapp.NewClient(cfg.Gupshup, logger)
	cashfreeClient := payment.NewClient(cfg.Cashfree, logger)

	// Initialize services
	orderService := service.NewOrderService(orderRepo, sellerRepo, earningRepo, outboxRepo, cashfreeClient, cfg.Lifecycle, logger)
	earningsService := service.NewEarningsService(earningRepo, logger)
	returnService := service.NewReturnService(returnRepo, orderRepo, cashfreeClient, logger)
	withdrawalService := service.NewWithdrawalService(withdrawalRepo, earningRepo, logger)
	authService := service.NewAuthService(otpRepo, sellerRepo, whatsappClient, cfg.Auth, cfg.Lifecycle.OTPTTL, logger)

	// Start the outbox drainer in the background
	outboxWorker := outbox.NewWorker(outboxRepo, orderRepo, whatsappClient, cfg.Outbox, logger)
	go outboxWorker.Run(ctx)

	// Initialize HTTP handlers
	webhookHandler := handler.NewWebhookHandler(orderService, cfg.Cashfree.SecretKey, logger)
	sellerHandler := handler.NewSellerHandler(orderService, earningsService, withdrawalService, logger)
	returnHandler := handler.NewReturnHandler(returnService, logger)
	adminHandler := handler.NewAdminHandler(orderService, logger)
	authHandler := handler.NewAuthHandler(authService, cfg.Auth, logger)

	// Initialize router
	mux := router.New(webhookHandler, sellerHandler, returnHandler, adminHandler, authHandler, cfg.Auth, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Stop the outbox drainer alongside the server
		cancel()

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
