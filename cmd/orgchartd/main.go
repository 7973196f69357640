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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/api"
	"absence-visualizer-backend/internal/db"
	"absence-visualizer-backend/internal/demo"
	"absence-visualizer-backend/internal/holidays"
	"absence-visualizer-backend/internal/personio"
	"absence-visualizer-backend/internal/scraper"
	"absence-visualizer-backend/internal/store"
)

// upstream is what the sync loop and the picture proxy need from the HR system.
type upstream interface {
	scraper.Source
	api.PictureSource
}

func setupLogger(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)
	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	setupLogger(cfg.Log)
	logrus.Infof("configuration loaded successfully from %s", configPath)

	loc, err := time.LoadLocation(cfg.Organization.Timezone)
	if err != nil {
		logrus.Fatalf("invalid organization timezone: %v", err)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logrus.Warn("VAPID keys are not configured; push notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}
	appStore := store.NewGormStore(gormDB)
	logrus.Info("data store initialized")

	var source upstream
	if cfg.Personio.Demo {
		logrus.Warn("serving the built-in demo organization")
		source = demo.NewSource()
	} else {
		source = personio.NewClient(&cfg.Personio)
	}
	holidayClient := holidays.NewClient(&cfg.Holidays)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncSvc := scraper.NewService(cfg, appStore, source, holidayClient)
	go syncSvc.Run(ctx)

	router := api.NewRouter(cfg, appStore, api.Options{
		Pictures: source,
		Holidays: holidayClient,
		Location: loc,
		WebPush:  webpushOptions,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Block until a signal is received.
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server Shutdown: %v", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}

	logrus.Info("Server gracefully stopped")
}
