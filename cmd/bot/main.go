package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/repwatch/reputation-bot/internal/alerts"
	"github.com/repwatch/reputation-bot/internal/config"
	"github.com/repwatch/reputation-bot/internal/ingestion"
	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/repwatch/reputation-bot/internal/notifications"
	"github.com/repwatch/reputation-bot/internal/recommend"
	"github.com/repwatch/reputation-bot/internal/reports"
	"github.com/repwatch/reputation-bot/internal/reputation"
	"github.com/repwatch/reputation-bot/internal/scheduler"
	"github.com/repwatch/reputation-bot/internal/sentiment"
	"github.com/repwatch/reputation-bot/internal/sources"
	"github.com/repwatch/reputation-bot/internal/storage"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting reputation bot")

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	if err := seedEntities(st, cfg.SeedEntities); err != nil {
		logrus.Fatalf("Failed to seed entities: %v", err)
	}

	classifier, err := buildClassifier(cfg)
	if err != nil {
		logrus.Fatalf("Failed to build classifier: %v", err)
	}
	logrus.Infof("Using %s classifier", classifier.Name())

	srcs, err := sources.Build(cfg.NewsPages, cfg.RSSFeeds)
	if err != nil {
		logrus.Fatalf("Failed to build sources: %v", err)
	}
	if len(srcs) == 0 {
		logrus.Warn("No sources configured; ingestion cycles will be empty")
	}

	archive, err := buildArchive(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize report archive: %v", err)
	}

	notifier := notifications.NewService(cfg)
	aggregator := reputation.NewAggregator(st)
	engine := recommend.NewEngine(st)
	pipeline := ingestion.New(st, classifier, srcs, time.Duration(cfg.SourceTimeoutSeconds)*time.Second)
	alertService := alerts.NewService(cfg, st, aggregator, notifier)
	reportService := reports.NewService(cfg, st, aggregator, archive, notifier)

	schedulerService := scheduler.NewService(cfg, pipeline, alertService, reportService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	api := &apiServer{
		config:     cfg,
		store:      st,
		pipeline:   pipeline,
		aggregator: aggregator,
		engine:     engine,
		archive:    archive,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      newRouter(api),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func buildClassifier(cfg *config.Config) (sentiment.Classifier, error) {
	if cfg.ClassifierEndpoint == "" {
		return sentiment.NewVaderClassifier(), nil
	}
	return sentiment.NewStarModelClassifier(
		cfg.ClassifierEndpoint,
		os.Getenv("CLASSIFIER_TOKEN"),
		sentiment.NewScale(cfg.ClassifierPoints),
	)
}

func buildArchive(cfg *config.Config) (storage.StorageInterface, error) {
	if cfg.StorageAccount != "" {
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	}
	return storage.NewLocalStorage(cfg.ArchiveDir)
}

// seedEntities bootstraps entities from "name|segment|term1;term2" entries.
// Existing entities keep their stored segment; keywords are added on top.
func seedEntities(st *store.Store, entries []string) error {
	for _, entry := range entries {
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) != 3 {
			return fmt.Errorf("invalid seed entity entry %q (want name|segment|terms)", entry)
		}

		name := strings.TrimSpace(parts[0])
		segment := models.Segment(strings.TrimSpace(strings.ToLower(parts[1])))

		entity, err := st.EnsureEntity(name, segment)
		if err != nil {
			return err
		}

		for _, term := range strings.Split(parts[2], ";") {
			if term = strings.TrimSpace(term); term == "" {
				continue
			}
			if err := st.AddKeyword(entity.ID, term); err != nil {
				return err
			}
		}

		logrus.Infof("Seeded entity %s (%s)", name, segment)
	}
	return nil
}
