package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmpark/tinydesk-backend/config"
	"github.com/jmpark/tinydesk-backend/internal/app/controller"
	"github.com/jmpark/tinydesk-backend/internal/app/repository"
	"github.com/jmpark/tinydesk-backend/internal/app/service"
	"github.com/jmpark/tinydesk-backend/internal/db"
	"github.com/jmpark/tinydesk-backend/internal/lock"
	"github.com/jmpark/tinydesk-backend/internal/router"
	"github.com/jmpark/tinydesk-backend/internal/scheduler"
	"github.com/jmpark/tinydesk-backend/pkg/cache"
	"github.com/jmpark/tinydesk-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting TinyDesk Tracker Backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Missing credentials are the one fatal configuration error; everything
	// downstream degrades to logged skips.
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", err)
	}

	// Initialize database
	gormDB, err := db.Initialize(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Optional response cache
	responseCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Warn("Response cache unavailable, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
		responseCache = nil
	}
	defer responseCache.Close()

	// Initialize repositories
	videoRepo := repository.NewVideoRepository(gormDB)
	historyRepo := repository.NewHistoryRepository(gormDB)
	metaRepo := repository.NewMetadataRepository(gormDB)

	// Lock backend is chosen once here; nothing else branches on dialect
	lockManager, err := lock.NewManager(gormDB, db.HasAdvisoryLocks(gormDB))
	if err != nil {
		logger.Fatal("Failed to initialize lock manager", err)
	}

	// Initialize services
	youtubeAPI, err := service.NewYouTubeClient(cfg.YouTube.APIKey, cfg.YouTube.MaxResultsPerRequest)
	if err != nil {
		logger.Fatal("Failed to initialize YouTube client", err)
	}
	ingestor := service.NewCatalogIngestor(youtubeAPI, cfg.YouTube.PlaylistID)
	trackerService := service.NewTrackerService(
		ingestor,
		youtubeAPI,
		videoRepo,
		historyRepo,
		metaRepo,
		lockManager,
		time.Duration(cfg.Update.LockTTLSeconds)*time.Second,
	)
	videoService := service.NewVideoService(videoRepo, historyRepo, metaRepo)

	// Initialize controllers
	videoController := controller.NewVideoController(videoService, &cfg.Update, responseCache)
	trackerController := controller.NewTrackerController(trackerService)

	// Start the update scheduler
	updateScheduler := scheduler.NewUpdateScheduler(&cfg.Update, trackerService)
	if err := updateScheduler.Start(); err != nil {
		logger.Fatal("Failed to start update scheduler", err)
	}
	defer updateScheduler.Stop()

	// Setup router
	r := router.NewRouter(videoController, trackerController, cfg)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
