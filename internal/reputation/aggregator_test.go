package reputation

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

func newFixture(t *testing.T) (*Aggregator, *store.Store, int64) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	entity, err := st.CreateEntity("Acme", models.SegmentCorporate)
	require.NoError(t, err)

	return NewAggregator(st), st, entity.ID
}

// addAnalyzed stores a mention with an analysis at the given age before now
func addAnalyzed(t *testing.T, st *store.Store, entityID int64, url string, label models.SentimentLabel, contribution float64, age time.Duration) {
	t.Helper()
	at := time.Now().UTC().Add(-age)
	_, inserted, err := st.InsertMentionWithAnalysis(
		models.Mention{
			EntityID:    entityID,
			Source:      "newsfeed",
			Title:       "headline for " + url,
			URL:         url,
			PublishedAt: at,
			InsertedAt:  at,
		},
		models.Analysis{Label: label, Confidence: 0.9, Contribution: contribution},
	)
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestRollingScoreNoData(t *testing.T) {
	agg, _, entityID := newFixture(t)

	_, err := agg.RollingScore(entityID, 72, DefaultLambda)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRollingScoreSingleAnalysis(t *testing.T) {
	agg, st, entityID := newFixture(t)
	addAnalyzed(t, st, entityID, "https://example.com/1", models.SentimentNegative, -0.9, time.Hour)

	score, err := agg.RollingScore(entityID, 72, DefaultLambda)
	require.NoError(t, err)
	// The weighted average of a single contribution is the contribution itself
	assert.InDelta(t, -0.9, score, 1e-9)
}

func TestRollingScoreFavorsRecent(t *testing.T) {
	agg, st, entityID := newFixture(t)
	addAnalyzed(t, st, entityID, "https://example.com/old", models.SentimentPositive, 0.9, 48*time.Hour)
	addAnalyzed(t, st, entityID, "https://example.com/new", models.SentimentNegative, -0.9, 10*time.Minute)

	score, err := agg.RollingScore(entityID, 72, DefaultLambda)
	require.NoError(t, err)
	// The recent negative dominates the heavily decayed old positive
	assert.Less(t, score, -0.5)
	assert.GreaterOrEqual(t, score, -1.0)
}

func TestRollingScoreAllNeutralIsZero(t *testing.T) {
	agg, st, entityID := newFixture(t)
	addAnalyzed(t, st, entityID, "https://example.com/1", models.SentimentNeutral, 0, time.Hour)
	addAnalyzed(t, st, entityID, "https://example.com/2", models.SentimentNeutral, 0, 2*time.Hour)

	// All-neutral is a real zero, not a missing-data condition
	score, err := agg.RollingScore(entityID, 72, DefaultLambda)
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestRollingScoreIgnoresOutsideWindow(t *testing.T) {
	agg, st, entityID := newFixture(t)
	addAnalyzed(t, st, entityID, "https://example.com/old", models.SentimentNegative, -0.9, 100*time.Hour)

	_, err := agg.RollingScore(entityID, 72, DefaultLambda)
	assert.ErrorIs(t, err, ErrNoData)

	addAnalyzed(t, st, entityID, "https://example.com/new", models.SentimentPositive, 0.8, time.Hour)
	score, err := agg.RollingScore(entityID, 72, DefaultLambda)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestRollingScoreWeightUnderflow(t *testing.T) {
	agg, st, entityID := newFixture(t)
	addAnalyzed(t, st, entityID, "https://example.com/1", models.SentimentNegative, -0.9, time.Hour)

	// An extreme lambda drives every weight to zero; that reads as missing
	// data, never as a division by zero
	_, err := agg.RollingScore(entityID, 72, 1e6)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRollingScoreBounds(t *testing.T) {
	agg, st, entityID := newFixture(t)
	for i := 0; i < 10; i++ {
		addAnalyzed(t, st, entityID,
			fmt.Sprintf("https://example.com/%d", i),
			models.SentimentNegative, -1.0, time.Duration(i)*time.Hour)
	}

	score, err := agg.RollingScore(entityID, 72, DefaultLambda)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, -1.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestNegativeSpikeThreshold(t *testing.T) {
	agg, st, entityID := newFixture(t)

	for i := 0; i < 5; i++ {
		addAnalyzed(t, st, entityID,
			fmt.Sprintf("https://example.com/neg/%d", i),
			models.SentimentNegative, -0.7, time.Duration(i)*time.Minute)
	}
	// Positive and neutral analyses never count toward a spike
	addAnalyzed(t, st, entityID, "https://example.com/pos", models.SentimentPositive, 0.8, time.Minute)
	addAnalyzed(t, st, entityID, "https://example.com/neu", models.SentimentNeutral, 0, time.Minute)

	spike, err := agg.IsNegativeSpike(entityID, 6, 5)
	require.NoError(t, err)
	assert.True(t, spike, "count == threshold triggers")

	spike, err = agg.IsNegativeSpike(entityID, 6, 6)
	require.NoError(t, err)
	assert.False(t, spike)

	count, err := agg.NegativeCount(entityID, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestNegativeSpikeWindowExcludesOld(t *testing.T) {
	agg, st, entityID := newFixture(t)

	addAnalyzed(t, st, entityID, "https://example.com/old", models.SentimentNegative, -0.9, 7*time.Hour)
	addAnalyzed(t, st, entityID, "https://example.com/new", models.SentimentNegative, -0.9, time.Hour)

	spike, err := agg.IsNegativeSpike(entityID, 6, 2)
	require.NoError(t, err)
	assert.False(t, spike, "only one negative falls inside the window")
}
