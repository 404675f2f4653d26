package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// StarModelClassifier calls a hosted inference endpoint that returns ordinal
// "N stars" labels (nlptown-style multilingual sentiment models) and maps
// them onto the three buckets via a Scale.
type StarModelClassifier struct {
	client   *resty.Client
	endpoint string
	scale    Scale
}

var _ Classifier = (*StarModelClassifier)(nil)

type starPrediction struct {
	Label string  `json:"label"` // e.g. "4 stars"
	Score float64 `json:"score"`
}

// NewStarModelClassifier creates a remote classifier against the given
// inference endpoint. token may be empty for unauthenticated endpoints.
func NewStarModelClassifier(endpoint, token string, scale Scale) (*StarModelClassifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("classifier endpoint is required")
	}
	if err := scale.validate(); err != nil {
		return nil, err
	}

	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "reputation-bot/1.0").
		SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &StarModelClassifier{client: client, endpoint: endpoint, scale: scale}, nil
}

func (c *StarModelClassifier) Name() string {
	return "star-model"
}

// Classify sends the text to the inference endpoint and picks the
// highest-scoring prediction
func (c *StarModelClassifier) Classify(ctx context.Context, text string) (Result, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"inputs": text}).
		Post(c.endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("classifier request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return Result{}, fmt.Errorf("classifier returned status %d", resp.StatusCode())
	}

	predictions, err := parsePredictions(resp.Body())
	if err != nil {
		return Result{}, err
	}
	if len(predictions) == 0 {
		return Result{}, fmt.Errorf("classifier returned no predictions")
	}

	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.Score > best.Score {
			best = p
		}
	}

	ordinal, err := parseOrdinal(best.Label)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Label:      c.scale.LabelFor(ordinal),
		Confidence: clamp(best.Score, 0, 1),
	}, nil
}

// parsePredictions accepts both a flat prediction list and the nested
// one-list-per-input form inference APIs commonly return
func parsePredictions(body []byte) ([]starPrediction, error) {
	var nested [][]starPrediction
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}

	var flat []starPrediction
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}
	return flat, nil
}

// parseOrdinal extracts the leading integer from labels like "4 stars"
func parseOrdinal(label string) (int, error) {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty classifier label")
	}
	ordinal, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("unparseable classifier label %q", label)
	}
	return ordinal, nil
}
