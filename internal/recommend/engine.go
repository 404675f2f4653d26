// Package recommend turns a window of analyzed mentions into a remediation
// recommendation: a deterministic summary plus an ordered action list driven
// by trigger-keyword rules. No learning, no external calls.
package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/sirupsen/logrus"
)

// Negative count at which the war-room action is appended
const warRoomThreshold = 5

// Trigger keywords per segment. Matching is case-insensitive substring,
// deliberately looser than the whole-word relevance filter in ingestion.
var triggerLists = map[models.Segment][]string{
	models.SegmentPolitical: {
		"corruption", "scandal", "investigation", "bribery", "embezzlement",
	},
	models.SegmentCorporate: {
		"recall", "boycott", "defect", "leak", "delay", "price gouging",
	},
}

const (
	actionWarRoom = "Stand up a communications war room within 24h and designate a single spokesperson."
)

var politicalActions = []string{
	"Issue a factual statement on the sensitive topic with verifiable data and a timeline of events.",
	"Give an interview to a high-trust regional outlet to anchor the narrative.",
	"Reinforce a positive agenda with local deliverables over the next 72h.",
}

var corporateActions = []string{
	"Publish a statement acknowledging the problem with a correction plan and deadlines (SLA).",
	"Open a dedicated support channel for affected customers and publish a transparent FAQ.",
	"Schedule clarifying content on social channels with active comment monitoring.",
}

var defaultActions = []string{
	"Maintain intensive monitoring and keep an updated Q&A ready for spokespeople.",
	"Capitalize on positive mentions with public cases and testimonials over the next 48h.",
}

// triggersFor resolves the trigger list for a segment. Unknown segments fall
// back to the corporate list instead of silently matching nothing, so a
// misconfigured segment still produces useful output.
func triggersFor(segment models.Segment) []string {
	if triggers, ok := triggerLists[segment]; ok {
		return triggers
	}
	return triggerLists[models.SegmentCorporate]
}

// Engine generates and persists recommendations
type Engine struct {
	store *store.Store
}

// NewEngine creates a recommendation engine over the given store
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Generate builds a recommendation for the entity over the last windowHours,
// persists it, and returns the stored snapshot
func (e *Engine) Generate(entityID int64, windowHours int) (models.Recommendation, error) {
	entity, err := e.store.GetEntity(entityID)
	if err != nil {
		return models.Recommendation{}, fmt.Errorf("load entity %d: %w", entityID, err)
	}

	now := time.Now().UTC()
	since := now.Add(-time.Duration(windowHours) * time.Hour)

	rows, err := e.store.TitlesInWindow(entityID, since)
	if err != nil {
		return models.Recommendation{}, fmt.Errorf("load titles for entity %d: %w", entityID, err)
	}

	var negTitles, posTitles []string
	for _, row := range rows {
		switch row.Label {
		case models.SentimentNegative:
			negTitles = append(negTitles, row.Title)
		case models.SentimentPositive:
			posTitles = append(posTitles, row.Title)
		}
	}

	hits := triggerHits(negTitles, triggersFor(entity.Segment))

	summary := fmt.Sprintf("%d mentions in the last %dh: %d positive, %d negative.",
		len(rows), windowHours, len(posTitles), len(negTitles))

	var actions []string
	if len(negTitles) >= warRoomThreshold {
		actions = append(actions, actionWarRoom)
	}
	if len(hits) > 0 {
		if entity.Segment == models.SegmentPolitical {
			actions = append(actions, politicalActions...)
		} else {
			actions = append(actions, corporateActions...)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, defaultActions...)
	}

	rec, err := e.store.InsertRecommendation(models.Recommendation{
		EntityID:    entityID,
		WindowStart: since,
		WindowEnd:   now,
		Summary:     summary,
		Actions:     actions,
		CreatedAt:   now,
	})
	if err != nil {
		return models.Recommendation{}, fmt.Errorf("persist recommendation: %w", err)
	}

	logrus.Infof("Generated recommendation for %s: %d trigger hits, %d actions",
		entity.Name, len(hits), len(actions))
	return rec, nil
}

// triggerHits returns the negative titles containing any trigger keyword
func triggerHits(negTitles, triggers []string) []string {
	var hits []string
	for _, title := range negTitles {
		lower := strings.ToLower(title)
		for _, trigger := range triggers {
			if strings.Contains(lower, trigger) {
				hits = append(hits, title)
				break
			}
		}
	}
	return hits
}
