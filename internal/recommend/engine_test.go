package recommend

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, segment models.Segment) (*Engine, *store.Store, int64) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	entity, err := st.CreateEntity("Acme", segment)
	require.NoError(t, err)

	return NewEngine(st), st, entity.ID
}

func addTitled(t *testing.T, st *store.Store, entityID int64, title string, label models.SentimentLabel) {
	t.Helper()
	contribution := 0.0
	switch label {
	case models.SentimentPositive:
		contribution = 0.8
	case models.SentimentNegative:
		contribution = -0.8
	}
	now := time.Now().UTC()
	_, inserted, err := st.InsertMentionWithAnalysis(
		models.Mention{
			EntityID:    entityID,
			Source:      "newsfeed",
			Title:       title,
			URL:         fmt.Sprintf("https://example.com/%d/%s", entityID, title),
			PublishedAt: now,
			InsertedAt:  now,
		},
		models.Analysis{Label: label, Confidence: 0.8, Contribution: contribution},
	)
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestGenerateCorporateTriggerBundle(t *testing.T) {
	engine, st, entityID := newFixture(t, models.SegmentCorporate)

	addTitled(t, st, entityID, "Acme recall announced after safety review", models.SentimentNegative)
	addTitled(t, st, entityID, "Acme RECALL widens to more models", models.SentimentNegative)
	addTitled(t, st, entityID, "Acme wins industry award", models.SentimentPositive)

	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)

	assert.Equal(t, "3 mentions in the last 48h: 1 positive, 2 negative.", rec.Summary)
	assert.Equal(t, corporateActions, rec.Actions)
	assert.NotZero(t, rec.ID)
}

func TestGeneratePoliticalTriggerBundle(t *testing.T) {
	engine, st, entityID := newFixture(t, models.SegmentPolitical)

	addTitled(t, st, entityID, "Mayor faces corruption probe", models.SentimentNegative)

	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)
	assert.Equal(t, politicalActions, rec.Actions)
}

func TestGenerateDefaultBundleWithoutTriggers(t *testing.T) {
	engine, st, entityID := newFixture(t, models.SegmentCorporate)

	addTitled(t, st, entityID, "Acme shares dip on weak earnings", models.SentimentNegative)
	addTitled(t, st, entityID, "Acme opens new plant", models.SentimentPositive)

	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)
	assert.Equal(t, defaultActions, rec.Actions)
}

func TestGenerateWarRoomComesFirst(t *testing.T) {
	engine, st, entityID := newFixture(t, models.SegmentCorporate)

	for i := 0; i < 5; i++ {
		addTitled(t, st, entityID, fmt.Sprintf("Acme recall story %d", i), models.SentimentNegative)
	}

	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)

	require.Len(t, rec.Actions, 1+len(corporateActions))
	assert.Equal(t, actionWarRoom, rec.Actions[0])
	assert.Equal(t, corporateActions, rec.Actions[1:])
}

func TestGenerateWarRoomWithoutTriggers(t *testing.T) {
	engine, st, entityID := newFixture(t, models.SegmentCorporate)

	for i := 0; i < 5; i++ {
		addTitled(t, st, entityID, fmt.Sprintf("Acme criticized over earnings %d", i), models.SentimentNegative)
	}

	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)
	assert.Equal(t, []string{actionWarRoom}, rec.Actions)
}

func TestGenerateUnknownSegmentFallsBackToCorporate(t *testing.T) {
	engine, st, entityID := newFixture(t, models.Segment("other"))

	addTitled(t, st, entityID, "Acme boycott gains momentum", models.SentimentNegative)

	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)
	assert.Equal(t, corporateActions, rec.Actions)
}

func TestGenerateEmptyWindow(t *testing.T) {
	engine, _, entityID := newFixture(t, models.SegmentCorporate)

	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)
	assert.Equal(t, "0 mentions in the last 48h: 0 positive, 0 negative.", rec.Summary)
	assert.Equal(t, defaultActions, rec.Actions)
}

func TestGeneratePersistsLatest(t *testing.T) {
	engine, st, entityID := newFixture(t, models.SegmentCorporate)

	addTitled(t, st, entityID, "Acme wins industry award", models.SentimentPositive)
	rec, err := engine.Generate(entityID, 48)
	require.NoError(t, err)

	latest, err := st.LatestRecommendation(entityID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, rec.Summary, latest.Summary)
	assert.Equal(t, rec.Actions, latest.Actions)
}

func TestTriggerHitsSubstringMatching(t *testing.T) {
	titles := []string{
		"Mass recall hits Acme",
		"Acme recalls flagship model", // "recall" matches inside "recalls"
		"Acme earnings miss estimates",
	}
	hits := triggerHits(titles, triggerLists[models.SegmentCorporate])
	assert.Len(t, hits, 2)
}
