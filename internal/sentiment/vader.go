package sentiment

import (
	"context"
	"math"

	"github.com/jonreiter/govader"
	"github.com/repwatch/reputation-bot/internal/models"
)

// Compound score cutoffs for the polarity buckets
const (
	vaderPositiveCut = 0.20
	vaderNegativeCut = -0.20
)

// VaderClassifier is a local, rule-based classifier built on VADER. It needs
// no network access or API keys, which makes it the default implementation.
type VaderClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ Classifier = (*VaderClassifier)(nil)

// NewVaderClassifier creates a VADER-backed classifier
func NewVaderClassifier() *VaderClassifier {
	return &VaderClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (c *VaderClassifier) Name() string {
	return "vader"
}

// Classify scores the text's compound polarity. Confidence is the magnitude
// of the compound score for polar labels; for neutral text it is how close
// the compound sits to zero.
func (c *VaderClassifier) Classify(_ context.Context, text string) (Result, error) {
	compound := c.analyzer.PolarityScores(text).Compound

	switch {
	case compound >= vaderPositiveCut:
		return Result{Label: models.SentimentPositive, Confidence: clamp(compound, 0, 1)}, nil
	case compound <= vaderNegativeCut:
		return Result{Label: models.SentimentNegative, Confidence: clamp(-compound, 0, 1)}, nil
	default:
		return Result{Label: models.SentimentNeutral, Confidence: clamp(1-math.Abs(compound), 0, 1)}, nil
	}
}
