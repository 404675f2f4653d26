// Package reputation computes time-decayed reputation scores and detects
// negative-sentiment spikes. Both are stateless reads over the store, so they
// are safe to call at arbitrary frequency and always reflect backfilled data.
package reputation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/repwatch/reputation-bot/internal/store"
)

// ErrNoData distinguishes "no analyses in the window" from a zero score
var ErrNoData = errors.New("no analyses in window")

// DefaultLambda gives a half-life of roughly 8.7 hours
const DefaultLambda = 0.08

// Aggregator computes rolling reputation scores from stored analyses
type Aggregator struct {
	store *store.Store
}

// NewAggregator creates an aggregator over the given store
func NewAggregator(st *store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// RollingScore computes the exponentially time-weighted average contribution
// for an entity over the last windowHours:
//
//	score = sum(exp(-lambda*age_h) * contribution) / sum(exp(-lambda*age_h))
//
// The result is in [-1, 1]. Returns ErrNoData when the window holds no
// analyses, or when every weight underflows to zero.
func (a *Aggregator) RollingScore(entityID int64, windowHours int, lambda float64) (float64, error) {
	if lambda <= 0 {
		lambda = DefaultLambda
	}

	now := time.Now().UTC()
	since := now.Add(-time.Duration(windowHours) * time.Hour)

	rows, err := a.store.AnalysesInWindow(entityID, since)
	if err != nil {
		return 0, fmt.Errorf("load analyses for entity %d: %w", entityID, err)
	}
	if len(rows) == 0 {
		return 0, ErrNoData
	}

	var num, den float64
	for _, row := range rows {
		ageHours := now.Sub(row.InsertedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		w := math.Exp(-lambda * ageHours)
		num += w * row.Contribution
		den += w
	}

	if den == 0 {
		// Every weight underflowed; treat as no data rather than dividing
		return 0, ErrNoData
	}

	score := num / den
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score, nil
}

// IsNegativeSpike reports whether the negative-analysis count for the entity
// within the last windowHours has reached the threshold. Pure read, no side
// effects.
func (a *Aggregator) IsNegativeSpike(entityID int64, windowHours, threshold int) (bool, error) {
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	count, err := a.store.CountNegativesSince(entityID, since)
	if err != nil {
		return false, fmt.Errorf("count negatives for entity %d: %w", entityID, err)
	}
	return count >= threshold, nil
}

// NegativeCount returns the raw negative-analysis count for a window; the
// alert payload includes it alongside the spike flag.
func (a *Aggregator) NegativeCount(entityID int64, windowHours int) (int, error) {
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	return a.store.CountNegativesSince(entityID, since)
}
