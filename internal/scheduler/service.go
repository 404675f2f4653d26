package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/repwatch/reputation-bot/internal/alerts"
	"github.com/repwatch/reputation-bot/internal/config"
	"github.com/repwatch/reputation-bot/internal/ingestion"
	"github.com/repwatch/reputation-bot/internal/reports"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service schedules the periodic cycles: ingestion (with jitter so scrape
// targets don't see a fixed cadence), spike polling, and period reports.
// Overlapping runs are tolerated by design; the store's constraints keep
// concurrent cycles from double-writing.
type Service struct {
	config   *config.Config
	pipeline *ingestion.Pipeline
	alerts   *alerts.Service
	reports  *reports.Service
	cron     *cron.Cron
}

// NewService creates a scheduler service
func NewService(cfg *config.Config, pipeline *ingestion.Pipeline, alertService *alerts.Service, reportService *reports.Service) *Service {
	return &Service{
		config:   cfg,
		pipeline: pipeline,
		alerts:   alertService,
		reports:  reportService,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start registers the cron jobs and begins scheduling
func (s *Service) Start() error {
	ingestExpr := fmt.Sprintf("0 */%d * * * *", s.config.IngestIntervalMinutes)
	_, err := s.cron.AddFunc(ingestExpr, s.runIngestion)
	if err != nil {
		return err
	}

	// Spike polling is cheap (one count query per entity); check every 15 min
	_, err = s.cron.AddFunc("0 */15 * * * *", func() {
		if err := s.alerts.Run(); err != nil {
			logrus.Errorf("Spike check failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	var reportExpr string
	switch s.config.ReportSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		reportExpr = "0 0 9 * * *"
	default:
		// Run weekly on Monday at 9 AM UTC
		reportExpr = "0 0 9 * * MON"
	}
	_, err = s.cron.AddFunc(reportExpr, func() {
		logrus.Info("Starting scheduled report run")
		if err := s.reports.Run(); err != nil {
			logrus.Errorf("Report run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started: ingestion every %dm (jitter up to %ds), %s reports",
		s.config.IngestIntervalMinutes, s.config.IngestJitterSeconds, s.config.ReportSchedule)
	return nil
}

func (s *Service) runIngestion() {
	if s.config.IngestJitterSeconds > 0 {
		jitter := time.Duration(rand.Intn(s.config.IngestJitterSeconds+1)) * time.Second
		time.Sleep(jitter)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.pipeline.Ingest(ctx); err != nil {
		logrus.Errorf("Scheduled ingestion failed: %v", err)
	}

	if _, err := s.pipeline.AnalyzeBacklog(ctx); err != nil {
		logrus.Errorf("Backlog analysis failed: %v", err)
	}
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
