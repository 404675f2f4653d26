// Package sentiment normalizes classifier output into the three-bucket label
// scale and the signed reputation contribution derived from it.
package sentiment

import (
	"context"
	"fmt"
	"math"

	"github.com/repwatch/reputation-bot/internal/models"
)

// Result is a classifier verdict: a label plus a confidence in [0,1]
type Result struct {
	Label      models.SentimentLabel
	Confidence float64
}

// Classifier maps raw text to a sentiment verdict. Implementations may be
// slow or remote; they must honor the context.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
	Name() string
}

// Contribution converts a label+confidence pair into the signed reputation
// contribution. Neutral contributes exactly 0 regardless of confidence:
// confidence on a "no polarity" label carries no reputational signal.
func Contribution(label models.SentimentLabel, confidence float64) float64 {
	confidence = clamp(confidence, 0, 1)
	switch label {
	case models.SentimentPositive:
		return confidence
	case models.SentimentNegative:
		return -confidence
	default:
		return 0
	}
}

// Scale maps an ordinal rating (1..Points, e.g. "stars") onto the three
// buckets. The bottom NegativeBelow fraction is negative, the top above
// PositiveAbove is positive, the middle is neutral.
type Scale struct {
	Points        int
	NegativeBelow float64
	PositiveAbove float64
}

// DefaultScale is the 5-point split: 1-2 negative, 3 neutral, 4-5 positive
func DefaultScale() Scale {
	return Scale{Points: 5, NegativeBelow: 0.4, PositiveAbove: 0.6}
}

// NewScale builds a scale for an n-point ordinal rating with the default
// 40/20/40 split
func NewScale(points int) Scale {
	return Scale{Points: points, NegativeBelow: 0.4, PositiveAbove: 0.6}
}

// LabelFor buckets an ordinal rating. Out-of-range ordinals are clamped.
func (s Scale) LabelFor(ordinal int) models.SentimentLabel {
	if ordinal < 1 {
		ordinal = 1
	}
	if ordinal > s.Points {
		ordinal = s.Points
	}
	r := float64(ordinal)
	n := float64(s.Points)
	// 5-point default: r <= 2 negative, r >= 4 positive
	if r <= s.NegativeBelow*n+1e-9 {
		return models.SentimentNegative
	}
	if r > s.PositiveAbove*n+1e-9 {
		return models.SentimentPositive
	}
	return models.SentimentNeutral
}

func (s Scale) validate() error {
	if s.Points < 3 {
		return fmt.Errorf("ordinal scale needs at least 3 points, got %d", s.Points)
	}
	if s.NegativeBelow <= 0 || s.PositiveAbove >= 1 || s.NegativeBelow >= s.PositiveAbove {
		return fmt.Errorf("invalid scale thresholds %.2f/%.2f", s.NegativeBelow, s.PositiveAbove)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
