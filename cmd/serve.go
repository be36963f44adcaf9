package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"closer-backend/internal/auth"
	"closer-backend/internal/config"
	"closer-backend/internal/handlers"
	"closer-backend/internal/mailer"
	"closer-backend/internal/metrics"
	"closer-backend/internal/middleware"
	"closer-backend/internal/services"
	"closer-backend/internal/storage"
	"closer-backend/internal/worker/cleanup"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return Run(cfg)
	},
}

// Run starts the API and blocks until SIGINT or SIGTERM
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(registry)

	// Collaborators
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		return err
	}
	var uploader storage.PhotoUploader
	if cfg.AWS.Enabled() {
		s3Uploader, err := storage.NewS3Uploader(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("failed to create photo uploader: %w", err)
		}
		uploader = s3Uploader
		log.Info().Str("bucket", cfg.AWS.S3Bucket).Msg("Photo uploads enabled")
	} else {
		log.Info().Msg("Photo uploads disabled, aws.s3_bucket is not set")
	}

	// Initialize services
	userService := services.NewUserService(store.Users, hasher, auth.NewJWTManager(cfg.JWT.Secret), sender, cfg.Mail.PublicBaseURL, rec)
	pairService := services.NewPairService(store.Users, rec)
	dailyService := services.NewDailyService(store, rec)
	memoryService := services.NewMemoryService(store, uploader, rec)
	accountService := services.NewAccountService(store.Accounts, rec)

	// Background cleanup of signups that never verified
	if !cfg.Cleanup.Disabled {
		ttl := time.Duration(cfg.Cleanup.UnverifiedTTLHours) * time.Hour
		scheduler, err := cleanup.Schedule(ctx, cleanup.NewJob(store.Users, ttl, rec), cfg.Cleanup.Schedule)
		if err != nil {
			return err
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst, 10*time.Minute)
	defer authLimiter.Stop()

	router := handlers.NewRouter(handlers.RouterDeps{
		Users:          userService,
		Pairs:          pairService,
		Daily:          dailyService,
		Memories:       memoryService,
		Accounts:       accountService,
		Metrics:        rec,
		MetricsHandler: metrics.Handler(registry),
		AuthLimiter:    authLimiter,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("storage", cfg.Storage.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
