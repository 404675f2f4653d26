package alerts

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/repwatch/reputation-bot/internal/config"
	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/repwatch/reputation-bot/internal/reputation"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockNotifier) SendAlert(alert *models.Alert) error {
	args := m.Called(alert)
	return args.Error(0)
}

func newFixture(t *testing.T) (*Service, *store.Store, int64, *MockNotifier) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	entity, err := st.CreateEntity("Acme", models.SegmentCorporate)
	require.NoError(t, err)

	cfg := &config.Config{SpikeWindowHours: 6, SpikeThreshold: 5}
	notifier := new(MockNotifier)
	svc := NewService(cfg, st, reputation.NewAggregator(st), notifier)
	return svc, st, entity.ID, notifier
}

func addNegatives(t *testing.T, st *store.Store, entityID int64, n int) {
	t.Helper()
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		_, inserted, err := st.InsertMentionWithAnalysis(
			models.Mention{
				EntityID:    entityID,
				Source:      "newsfeed",
				Title:       fmt.Sprintf("Acme recall story %d", i),
				URL:         fmt.Sprintf("https://example.com/%d", i),
				PublishedAt: now,
				InsertedAt:  now,
			},
			models.Analysis{Label: models.SentimentNegative, Confidence: 0.9, Contribution: -0.9},
		)
		require.NoError(t, err)
		require.True(t, inserted)
	}
}

func TestRunBelowThresholdIsQuiet(t *testing.T) {
	svc, st, entityID, notifier := newFixture(t)
	addNegatives(t, st, entityID, 4)

	require.NoError(t, svc.Run())
	notifier.AssertNotCalled(t, "SendAlert", mock.Anything)
}

func TestRunSendsSpikeAlert(t *testing.T) {
	svc, st, entityID, notifier := newFixture(t)
	addNegatives(t, st, entityID, 5)

	notifier.On("SendAlert", mock.MatchedBy(func(alert *models.Alert) bool {
		return alert.Type == "negative_spike" &&
			alert.EntityName == "Acme" &&
			alert.NegativeCount == 5 &&
			alert.WindowHours == 6
	})).Return(nil)

	require.NoError(t, svc.Run())
	notifier.AssertExpectations(t)
}

func TestRunReportsDeliveryFailure(t *testing.T) {
	svc, st, entityID, notifier := newFixture(t)
	addNegatives(t, st, entityID, 6)

	notifier.On("SendAlert", mock.Anything).Return(assert.AnError)

	err := svc.Run()
	assert.Error(t, err)
}

func TestRunSkipsInactiveEntities(t *testing.T) {
	svc, st, entityID, notifier := newFixture(t)
	addNegatives(t, st, entityID, 10)
	require.NoError(t, st.SetEntityActive(entityID, false))

	require.NoError(t, svc.Run())
	notifier.AssertNotCalled(t, "SendAlert", mock.Anything)
}
