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

	"github.com/SAP-F-2025/answersheet-service/internal/cache"
	"github.com/SAP-F-2025/answersheet-service/internal/config"
	"github.com/SAP-F-2025/answersheet-service/internal/handlers"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories/memory"
	"github.com/SAP-F-2025/answersheet-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/answersheet-service/internal/services"
	"github.com/SAP-F-2025/answersheet-service/internal/utils"
	"github.com/SAP-F-2025/answersheet-service/internal/validator"
	"github.com/SAP-F-2025/answersheet-service/pkg"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo repositories.AnswersheetRepository
	switch cfg.StorageDriver {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage, answer sheets are lost on restart")
		repo = memory.NewAnswersheetMemory()
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		repo = postgres.NewAnswersheetPostgreSQL(db)
	}

	hierarchyCache := cache.HierarchyCache(cache.NoopCache{})
	redisClient, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		hierarchyCache = cache.NewHierarchyCache(cache.NewRedisCache(redisClient, logger), cfg.CacheTTL)
	} else {
		logger.Info("REDIS_URL not set, answer sheet cache disabled")
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer publisher.Close()

	v := validator.New()
	serviceManager := services.NewServiceManager(repo, slogger, v, services.AnswersheetConfig{
		Cache:              hierarchyCache,
		Publisher:          publisher,
		DefaultOptionCount: cfg.DefaultOptionCount,
	})
	router := handlers.NewRouter(handlers.NewHandlerManager(serviceManager, v, logger), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Answer sheet service listening", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
