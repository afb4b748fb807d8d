package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	appLogger "github.com/FACorreiaa/go-safe-assist/app/logger"
	"github.com/FACorreiaa/go-safe-assist/app/observability/metrics"
	"github.com/FACorreiaa/go-safe-assist/app/tracer"
	"github.com/FACorreiaa/go-safe-assist/config"
	"github.com/FACorreiaa/go-safe-assist/internal/api/assistant"
	generativeAI "github.com/FACorreiaa/go-safe-assist/internal/api/generative_ai"
	"github.com/FACorreiaa/go-safe-assist/internal/api/places"
	"github.com/FACorreiaa/go-safe-assist/internal/api/ratelimit"
	"github.com/FACorreiaa/go-safe-assist/internal/api/routing"
	api "github.com/FACorreiaa/go-safe-assist/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	tracer.InitTracingAndMetrics(cfg.Server.MetricsPort)
	metrics.InitAppMetrics()

	// Provider credentials are resolved per request, but warn early when the
	// process starts without them so the misconfiguration is visible at boot.
	if missing := config.LoadProviderKeys().Missing(); len(missing) > 0 {
		logger.Warn("Provider credentials missing at startup; requests will fail until set",
			slog.Any("missing", missing))
	}

	// --- Dependency Injection ---
	limiter := ratelimit.NewCacheStore(cfg.RateLimit.IdleTTL, cfg.RateLimit.SweepInterval)

	placesService := places.NewServiceImpl(places.Options{
		BaseURL:     cfg.Providers.Places.BaseURL,
		RadiusM:     cfg.Providers.Places.RadiusM,
		ResultLimit: cfg.Providers.Places.ResultLimit,
		Timeout:     cfg.Providers.Places.Timeout,
	}, func() string { return config.LoadProviderKeys().Places }, limiter, logger)

	routingService := routing.NewServiceImpl(routing.Options{
		BaseURL: cfg.Providers.Routing.BaseURL,
		Profile: cfg.Providers.Routing.Profile,
		Timeout: cfg.Providers.Routing.Timeout,
	}, func() string { return config.LoadProviderKeys().Routing }, limiter, logger)

	generator := generativeAI.NewAIClient(
		cfg.Providers.Gemini.Model,
		cfg.Providers.Gemini.Timeout,
		func() string { return config.LoadProviderKeys().Gemini },
	)

	assistantService := assistant.NewServiceImpl(placesService, routingService, generator, limiter, config.LoadProviderKeys, logger)
	assistantHandler := assistant.NewAssistantHandler(assistantService, logger)

	// --- Router Setup ---
	mainRouter := api.SetupRouter(&api.Config{
		AssistantHandler: assistantHandler,
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
