package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/colegio-digital/grading-service/internal/cache"
	"github.com/colegio-digital/grading-service/internal/config"
	"github.com/colegio-digital/grading-service/internal/handlers"
	"github.com/colegio-digital/grading-service/internal/middleware"
	"github.com/colegio-digital/grading-service/internal/repositories/postgres"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/utils"
	"github.com/colegio-digital/grading-service/pkg"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewLogger("development", os.Stderr).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment, os.Stdout)
	slogger := logger.Slog()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheService := cache.NewNoopCache()
	if cfg.RedisEnabled {
		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, closure stats will not be cached", "error", err)
		} else {
			defer client.Close()
			cacheService = cache.NewRedisCache(client, slogger)
		}
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      postgres.NewRepository(db),
		Cache:     cacheService,
		Publisher: publisher,
		Logger:    slogger,
		Settings: services.Settings{
			DefaultZonaWeight:      cfg.Grading.DefaultZonaWeight,
			EnforceZonaBeforeFinal: cfg.Grading.EnforceZonaBeforeFinal,
			ClosureCacheTTL:        cfg.Grading.ClosureCacheTTL,
		},
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandlerManager(serviceManager, middleware.NewAuthenticator(cfg.Auth), logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Grading service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		os.Exit(1)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Could not stop server gracefully", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("Could not force stop server", "error", err)
		}
	}
}
