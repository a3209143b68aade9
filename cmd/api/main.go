package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-checker-api/internal/config"
	"github.com/noah-isme/gema-checker-api/internal/handler"
	"github.com/noah-isme/gema-checker-api/internal/middleware"
	"github.com/noah-isme/gema-checker-api/internal/router"
	"github.com/noah-isme/gema-checker-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).Level(cfg.LogLevel).With().Timestamp().Str("service", cfg.AppName).Logger()

	validate := service.NewValidator()
	runTestsService := service.NewRunTestsService(validate, logger)
	runTestsHandler := handler.NewRunTestsHandler(runTestsService, logger)

	app := fiber.New(cfg.FiberConfig())

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RunTestsHandler: runTestsHandler,
		EnableMetrics:   true,
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msgf("listening on http://%s", cfg.HTTPAddress())
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cfg.ShutdownTimeout, logger)
}

func waitForShutdown(app *fiber.App, timeout time.Duration, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
