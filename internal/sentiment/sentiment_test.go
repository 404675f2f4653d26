package sentiment

import (
	"context"
	"testing"

	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScaleMapping(t *testing.T) {
	scale := DefaultScale()

	cases := []struct {
		ordinal int
		want    models.SentimentLabel
	}{
		{1, models.SentimentNegative},
		{2, models.SentimentNegative},
		{3, models.SentimentNeutral},
		{4, models.SentimentPositive},
		{5, models.SentimentPositive},
		// Out-of-range ordinals clamp to the nearest end
		{0, models.SentimentNegative},
		{7, models.SentimentPositive},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, scale.LabelFor(tc.ordinal), "ordinal %d", tc.ordinal)
	}
}

func TestTenPointScaleMapping(t *testing.T) {
	scale := NewScale(10)

	assert.Equal(t, models.SentimentNegative, scale.LabelFor(4))
	assert.Equal(t, models.SentimentNeutral, scale.LabelFor(5))
	assert.Equal(t, models.SentimentNeutral, scale.LabelFor(6))
	assert.Equal(t, models.SentimentPositive, scale.LabelFor(7))

	assert.Error(t, Scale{Points: 2, NegativeBelow: 0.4, PositiveAbove: 0.6}.validate())
	assert.NoError(t, scale.validate())
}

func TestContribution(t *testing.T) {
	assert.InDelta(t, 0.8, Contribution(models.SentimentPositive, 0.8), 1e-9)
	assert.InDelta(t, -0.7, Contribution(models.SentimentNegative, 0.7), 1e-9)

	// Neutral contributes nothing regardless of confidence
	assert.Zero(t, Contribution(models.SentimentNeutral, 0.99))
	assert.Zero(t, Contribution(models.SentimentNeutral, 0.01))

	// Confidence is clamped to [0, 1]
	assert.InDelta(t, 1.0, Contribution(models.SentimentPositive, 1.5), 1e-9)
	assert.InDelta(t, 0.0, Contribution(models.SentimentNegative, -0.2), 1e-9)
}

func TestVaderClassifier(t *testing.T) {
	c := NewVaderClassifier()
	ctx := context.Background()

	pos, err := c.Classify(ctx, "This launch is wonderful, customers love the new product")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, pos.Label)
	assert.Greater(t, pos.Confidence, 0.0)

	neg, err := c.Classify(ctx, "This is a horrible disaster and everyone hates it")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, neg.Label)
	assert.Greater(t, neg.Confidence, 0.0)

	neu, err := c.Classify(ctx, "The quarterly report was published on Tuesday")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNeutral, neu.Label)
}
