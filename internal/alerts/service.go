// Package alerts polls for negative-sentiment spikes and pushes urgent
// notifications through the alert channel.
package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/repwatch/reputation-bot/internal/config"
	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/repwatch/reputation-bot/internal/notifications"
	"github.com/repwatch/reputation-bot/internal/reputation"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/sirupsen/logrus"
)

// Service checks every active entity for a negative spike
type Service struct {
	config     *config.Config
	store      *store.Store
	aggregator *reputation.Aggregator
	notifier   notifications.NotificationInterface
}

// NewService creates a spike alert service
func NewService(cfg *config.Config, st *store.Store, agg *reputation.Aggregator, notifier notifications.NotificationInterface) *Service {
	return &Service{
		config:     cfg,
		store:      st,
		aggregator: agg,
		notifier:   notifier,
	}
}

// Run performs one spike check over all active entities. Failures are
// isolated per entity; the returned error summarizes them.
func (s *Service) Run() error {
	entities, err := s.store.ActiveEntities()
	if err != nil {
		return fmt.Errorf("load active entities: %w", err)
	}

	failures := 0
	for _, entity := range entities {
		spike, err := s.aggregator.IsNegativeSpike(entity.ID, s.config.SpikeWindowHours, s.config.SpikeThreshold)
		if err != nil {
			logrus.Errorf("Spike check failed for %s: %v", entity.Name, err)
			failures++
			continue
		}
		if !spike {
			continue
		}

		count, err := s.aggregator.NegativeCount(entity.ID, s.config.SpikeWindowHours)
		if err != nil {
			logrus.Errorf("Negative count failed for %s: %v", entity.Name, err)
			failures++
			continue
		}

		logrus.Warnf("Negative spike detected for %s: %d negative mentions in %dh",
			entity.Name, count, s.config.SpikeWindowHours)

		alert := &models.Alert{
			ID:         uuid.NewString(),
			Type:       "negative_spike",
			EntityID:   entity.ID,
			EntityName: entity.Name,
			Title:      fmt.Sprintf("Negative mention spike: %s", entity.Name),
			Message: fmt.Sprintf("%s has %d negative mentions in the last %d hours (threshold %d). Review the latest recommendation and consider immediate response.",
				entity.Name, count, s.config.SpikeWindowHours, s.config.SpikeThreshold),
			NegativeCount: count,
			WindowHours:   s.config.SpikeWindowHours,
			CreatedAt:     time.Now().UTC(),
		}

		if err := s.notifier.SendAlert(alert); err != nil {
			logrus.Errorf("Failed to send spike alert for %s: %v", entity.Name, err)
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("spike check finished with %d failures", failures)
	}
	return nil
}
