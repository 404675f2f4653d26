// Package reports builds periodic per-entity report snapshots and archives
// them as JSON. Rendering (PDF, dashboards) is a consumer concern.
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/repwatch/reputation-bot/internal/config"
	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/repwatch/reputation-bot/internal/notifications"
	"github.com/repwatch/reputation-bot/internal/reputation"
	"github.com/repwatch/reputation-bot/internal/storage"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/sirupsen/logrus"
)

const topNegativeLimit = 10

// Service generates, archives and sends period reports
type Service struct {
	config     *config.Config
	store      *store.Store
	aggregator *reputation.Aggregator
	archive    storage.StorageInterface
	notifier   notifications.NotificationInterface
}

// NewService creates a report service
func NewService(cfg *config.Config, st *store.Store, agg *reputation.Aggregator, archive storage.StorageInterface, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:     cfg,
		store:      st,
		aggregator: agg,
		archive:    archive,
		notifier:   notifier,
	}
}

// Run generates, archives and delivers a report for every active entity.
// Failures are isolated per entity.
func (s *Service) Run() error {
	entities, err := s.store.ActiveEntities()
	if err != nil {
		return fmt.Errorf("load active entities: %w", err)
	}

	windowHours := 24
	if s.config.ReportSchedule == "weekly" {
		windowHours = 7 * 24
	}

	failures := 0
	for _, entity := range entities {
		report, err := s.Generate(entity.ID, windowHours)
		if err != nil {
			logrus.Errorf("Failed to generate report for %s: %v", entity.Name, err)
			failures++
			continue
		}

		if err := s.archiveReport(report); err != nil {
			logrus.Errorf("Failed to archive report for %s: %v", entity.Name, err)
			failures++
		}

		if err := s.notifier.SendReport(report); err != nil {
			logrus.Errorf("Failed to send report for %s: %v", entity.Name, err)
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("report run finished with %d failures", failures)
	}
	return nil
}

// Generate builds a report snapshot for one entity over the last windowHours
func (s *Service) Generate(entityID int64, windowHours int) (*models.Report, error) {
	entity, err := s.store.GetEntity(entityID)
	if err != nil {
		return nil, fmt.Errorf("load entity %d: %w", entityID, err)
	}

	now := time.Now().UTC()
	since := now.Add(-time.Duration(windowHours) * time.Hour)

	titles, err := s.store.TitlesInWindow(entityID, since)
	if err != nil {
		return nil, err
	}

	sourceCounts, err := s.store.SourceCountsSince(entityID, since)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]int)
	var topNegative []string
	for _, t := range titles {
		breakdown[string(t.Label)]++
		if t.Label == models.SentimentNegative && len(topNegative) < topNegativeLimit {
			topNegative = append(topNegative, t.Title)
		}
	}

	report := &models.Report{
		ID:                 uuid.NewString(),
		GeneratedAt:        now,
		Period:             s.config.ReportSchedule,
		EntityID:           entity.ID,
		EntityName:         entity.Name,
		TotalMentions:      len(titles),
		SentimentBreakdown: breakdown,
		TopSources:         topSources(sourceCounts),
		TopNegativeTitles:  topNegative,
	}

	score, err := s.aggregator.RollingScore(entityID, s.config.ScoreWindowHours, s.config.DecayLambda)
	switch {
	case err == nil:
		report.RollingScore = &score
	case errors.Is(err, reputation.ErrNoData):
		// No analyses in the score window; leave the score unset
	default:
		return nil, err
	}

	if rec, err := s.store.LatestRecommendation(entityID); err != nil {
		return nil, err
	} else if rec != nil {
		report.Summary = rec.Summary
		report.Actions = rec.Actions
	}

	return report, nil
}

func (s *Service) archiveReport(report *models.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	filename := fmt.Sprintf("report-%s-%s.json",
		slugify(report.EntityName),
		report.GeneratedAt.Format("2006-01-02-15-04-05"))
	return s.archive.Store(filename, data)
}

// topSources ranks sources by mention count, top 5
func topSources(counts map[string]int) []string {
	type sourceScore struct {
		source string
		count  int
	}

	scores := make([]sourceScore, 0, len(counts))
	for source, count := range counts {
		scores = append(scores, sourceScore{source, count})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].count != scores[j].count {
			return scores[i].count > scores[j].count
		}
		return scores[i].source < scores[j].source
	})

	var top []string
	for i, score := range scores {
		if i >= 5 {
			break
		}
		top = append(top, fmt.Sprintf("%s (%d)", score.source, score.count))
	}
	return top
}

func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}
