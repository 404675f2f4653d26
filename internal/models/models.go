package models

import "time"

// Segment classifies a monitored entity for recommendation purposes
type Segment string

const (
	SegmentPolitical Segment = "political"
	SegmentCorporate Segment = "corporate"
	SegmentOther     Segment = "other"
)

// SentimentLabel is the normalized three-bucket sentiment classification
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Entity represents a monitored subject (person, company, etc.)
type Entity struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Segment  Segment   `json:"segment"`
	Active   bool      `json:"active"`
	Keywords []Keyword `json:"keywords,omitempty"`
}

// Keyword is a relevance term belonging to exactly one entity
type Keyword struct {
	ID       int64  `json:"id"`
	EntityID int64  `json:"entity_id"`
	Term     string `json:"term"`
}

// RawItem is what a source adapter produces before relevance filtering
type RawItem struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Mention represents one observed occurrence of an entity in a source.
// (entity_id, url) is unique; mentions are append-only and never mutated.
type Mention struct {
	ID          int64     `json:"id"`
	EntityID    int64     `json:"entity_id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	InsertedAt  time.Time `json:"inserted_at"`
}

// Analysis is the sentiment result attached 1:1 to a mention.
// Contribution carries sign(label) x confidence; neutral is always 0.
type Analysis struct {
	ID           int64          `json:"id"`
	MentionID    int64          `json:"mention_id"`
	Label        SentimentLabel `json:"label"`
	Confidence   float64        `json:"confidence"`
	Contribution float64        `json:"contribution"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Recommendation is a snapshot of suggested actions for an entity over a window
type Recommendation struct {
	ID          int64     `json:"id"`
	EntityID    int64     `json:"entity_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Summary     string    `json:"summary"`
	Actions     []string  `json:"actions"`
	CreatedAt   time.Time `json:"created_at"`
}

// IngestionResult summarizes one ingestion cycle
type IngestionResult struct {
	NewMentions   int `json:"new_mentions"`
	AnalyzedCount int `json:"analyzed_count"`
	SourceErrors  int `json:"source_errors"`
	ItemErrors    int `json:"item_errors"`
}

// Report represents a periodic report for one entity
type Report struct {
	ID                 string         `json:"id"`
	GeneratedAt        time.Time      `json:"generated_at"`
	Period             string         `json:"period"` // "daily" or "weekly"
	EntityID           int64          `json:"entity_id"`
	EntityName         string         `json:"entity_name"`
	TotalMentions      int            `json:"total_mentions"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	TopSources         []string       `json:"top_sources"`
	TopNegativeTitles  []string       `json:"top_negative_titles"`
	RollingScore       *float64       `json:"rolling_score,omitempty"`
	Summary            string         `json:"summary,omitempty"`
	Actions            []string       `json:"actions,omitempty"`
}

// Alert represents an urgent notification, e.g. a negative-sentiment spike
type Alert struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"` // "negative_spike"
	EntityID      int64     `json:"entity_id"`
	EntityName    string    `json:"entity_name"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	NegativeCount int       `json:"negative_count"`
	WindowHours   int       `json:"window_hours"`
	CreatedAt     time.Time `json:"created_at"`
}
