package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skynetdev/incidentes-api/internal/auth"
	"github.com/skynetdev/incidentes-api/internal/broadcast"
	"github.com/skynetdev/incidentes-api/internal/config"
	"github.com/skynetdev/incidentes-api/internal/db"
	"github.com/skynetdev/incidentes-api/internal/handlers"
	"github.com/skynetdev/incidentes-api/internal/middleware"
	"github.com/skynetdev/incidentes-api/internal/reports"
	"github.com/skynetdev/incidentes-api/internal/storage"
	"github.com/skynetdev/incidentes-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("could not connect to MongoDB")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Close(closeCtx); err != nil {
			log.WithError(err).Warn("error closing MongoDB connection")
		}
	}()

	if err := database.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("could not create indexes")
	}

	images, err := storage.NewImageStore(cfg.UploadDir, log)
	if err != nil {
		log.WithError(err).Fatal("could not prepare upload directory")
	}

	var events broadcast.Publisher = broadcast.NewNoop()
	if cfg.MQTTBrokerURL != "" {
		publisher, err := broadcast.NewMQTT(cfg.MQTTBrokerURL, cfg.MQTTTopic, log)
		if err != nil {
			log.WithError(err).Fatal("could not connect to MQTT broker")
		}
		events = publisher
		log.WithField("broker", cfg.MQTTBrokerURL).Info("incident event broadcasting enabled")
	}
	defer events.Close()

	authService := auth.NewService(database.Users(), log, cfg.JWTSecret, cfg.JWTExpiry)
	reportService := reports.NewService(database.Incidents(), log)
	mw := middleware.New(authService, cfg.APIKey, log)

	router := handlers.NewRouter(handlers.RouterDeps{
		Middleware: mw,
		Auth:       handlers.NewAuthHandler(authService, log),
		Incidents: handlers.NewIncidentHandler(
			database.Incidents(), images, events, log, cfg.BaseURL, cfg.MapLimit),
		Reports:     handlers.NewReportHandler(reportService, log),
		FrontendURL: cfg.FrontendURL,
		UploadDir:   cfg.UploadDir,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown after timeout")
	}
	log.Info("server stopped")
}
