// Package ingestion pulls raw items from sources, filters them for entity
// relevance, deduplicates, and persists mention+analysis pairs.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/repwatch/reputation-bot/internal/sentiment"
	"github.com/repwatch/reputation-bot/internal/sources"
	"github.com/repwatch/reputation-bot/internal/store"
	"github.com/sirupsen/logrus"
)

// Pipeline handles one ingestion cycle: fetch, filter, dedup, classify, persist
type Pipeline struct {
	store         *store.Store
	classifier    sentiment.Classifier
	sources       []sources.Source
	sourceTimeout time.Duration

	metrics *Metrics
	mu      sync.RWMutex
}

// Metrics holds counters for the most recent cycle
type Metrics struct {
	NewMentions        int            `json:"new_mentions"`
	AnalyzedCount      int            `json:"analyzed_count"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	SourceErrors       int            `json:"source_errors"`
	ItemErrors         int            `json:"item_errors"`
}

// New creates an ingestion pipeline. sourceTimeout bounds each source fetch so
// one slow source cannot stall the cycle.
func New(st *store.Store, classifier sentiment.Classifier, srcs []sources.Source, sourceTimeout time.Duration) *Pipeline {
	if sourceTimeout <= 0 {
		sourceTimeout = 30 * time.Second
	}
	return &Pipeline{
		store:         st,
		classifier:    classifier,
		sources:       srcs,
		sourceTimeout: sourceTimeout,
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}
}

type fetchResult struct {
	source string
	items  []models.RawItem
	err    error
}

// Ingest runs one full cycle over all sources and all active entities.
// Failures are isolated: a failing source or item never aborts the rest of
// the cycle. The returned error is non-nil only when every source failed.
func (p *Pipeline) Ingest(ctx context.Context) (models.IngestionResult, error) {
	start := time.Now()
	logrus.Info("Starting ingestion cycle")

	entities, err := p.store.ActiveEntities()
	if err != nil {
		return models.IngestionResult{}, fmt.Errorf("load active entities: %w", err)
	}

	items, sourceErrors := p.fetchAll(ctx)
	logrus.Infof("Collected %d items from %d sources (%d source errors)",
		len(items), len(p.sources), sourceErrors)

	var result models.IngestionResult
	result.SourceErrors = sourceErrors

	if len(p.sources) > 0 && sourceErrors == len(p.sources) {
		p.updateMetrics(result, time.Since(start), nil, nil)
		return result, fmt.Errorf("all %d sources failed", len(p.sources))
	}

	breakdown := make(map[string]int)
	sourceCounts := make(map[string]int)
	for _, entity := range entities {
		matcher := newKeywordMatcher(entity.Keywords)
		for _, item := range items {
			select {
			case <-ctx.Done():
				p.updateMetrics(result, time.Since(start), breakdown, sourceCounts)
				return result, ctx.Err()
			default:
			}

			if !matcher.matches(item.Title) {
				continue
			}
			p.processItem(ctx, entity, item, &result, breakdown, sourceCounts)
		}
	}

	p.updateMetrics(result, time.Since(start), breakdown, sourceCounts)
	logrus.Infof("Ingestion cycle completed in %v: %d new mentions, %d analyzed",
		time.Since(start), result.NewMentions, result.AnalyzedCount)
	return result, nil
}

// fetchAll fetches every source concurrently, each under its own timeout.
// Cancelling one source fetch does not cancel the others.
func (p *Pipeline) fetchAll(ctx context.Context) ([]models.RawItem, int) {
	var wg sync.WaitGroup
	results := make(chan fetchResult, len(p.sources))

	for _, src := range p.sources {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, p.sourceTimeout)
			defer cancel()

			items, err := src.Fetch(fetchCtx)
			results <- fetchResult{source: src.Name(), items: items, err: err}
		}(src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []models.RawItem
	errorCount := 0
	for res := range results {
		if res.err != nil {
			logrus.Errorf("Error fetching from %s: %v", res.source, res.err)
			errorCount++
			continue
		}
		logrus.Infof("Found %d items from %s", len(res.items), res.source)
		all = append(all, res.items...)
	}

	return all, errorCount
}

// processItem persists one relevant item for one entity. Dedup is silent;
// classifier failure stores the mention alone for later backfill.
func (p *Pipeline) processItem(ctx context.Context, entity models.Entity, item models.RawItem, result *models.IngestionResult, breakdown, sourceCounts map[string]int) {
	exists, err := p.store.MentionExists(entity.ID, item.URL)
	if err != nil {
		logrus.Errorf("Existence check failed for %s: %v", item.URL, err)
		result.ItemErrors++
		return
	}
	if exists {
		return
	}

	now := time.Now().UTC()
	mention := models.Mention{
		EntityID:    entity.ID,
		Source:      item.Source,
		Title:       item.Title,
		URL:         item.URL,
		PublishedAt: item.PublishedAt,
		InsertedAt:  now,
	}

	res, err := p.classifier.Classify(ctx, item.Title)
	if err != nil {
		logrus.Warnf("Classification failed for %q, storing mention for backfill: %v", item.Title, err)
		_, inserted, insErr := p.store.InsertMention(mention)
		if insErr != nil {
			logrus.Errorf("Failed to store mention %s: %v", item.URL, insErr)
		} else if inserted {
			result.NewMentions++
			sourceCounts[item.Source]++
		}
		result.ItemErrors++
		return
	}

	analysis := models.Analysis{
		Label:        res.Label,
		Confidence:   res.Confidence,
		Contribution: sentiment.Contribution(res.Label, res.Confidence),
		CreatedAt:    now,
	}

	_, inserted, err := p.store.InsertMentionWithAnalysis(mention, analysis)
	if err != nil {
		logrus.Errorf("Failed to store mention %s: %v", item.URL, err)
		result.ItemErrors++
		return
	}
	if !inserted {
		// Lost a race with a concurrent cycle; not an error
		return
	}

	result.NewMentions++
	result.AnalyzedCount++
	breakdown[string(res.Label)]++
	sourceCounts[item.Source]++
}

// AnalyzeBacklog backfills analyses for mentions that lack one, e.g. after a
// classifier outage. Idempotent and safe to run concurrently with ingestion:
// the analysis uniqueness constraint drops the losing writer.
func (p *Pipeline) AnalyzeBacklog(ctx context.Context) (int, error) {
	mentions, err := p.store.MentionsWithoutAnalysis(500)
	if err != nil {
		return 0, fmt.Errorf("load unanalyzed mentions: %w", err)
	}
	if len(mentions) == 0 {
		return 0, nil
	}

	logrus.Infof("Backfilling analyses for %d mentions", len(mentions))

	analyzed := 0
	for _, mention := range mentions {
		select {
		case <-ctx.Done():
			return analyzed, ctx.Err()
		default:
		}

		res, err := p.classifier.Classify(ctx, mention.Title)
		if err != nil {
			logrus.Warnf("Backfill classification failed for mention %d: %v", mention.ID, err)
			continue
		}

		inserted, err := p.store.InsertAnalysis(models.Analysis{
			MentionID:    mention.ID,
			Label:        res.Label,
			Confidence:   res.Confidence,
			Contribution: sentiment.Contribution(res.Label, res.Confidence),
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			logrus.Errorf("Failed to store backfill analysis for mention %d: %v", mention.ID, err)
			continue
		}
		if inserted {
			analyzed++
		}
	}

	logrus.Infof("Backfill completed: %d analyses added", analyzed)
	return analyzed, nil
}

func (p *Pipeline) updateMetrics(result models.IngestionResult, duration time.Duration, breakdown, sourceCounts map[string]int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.NewMentions = result.NewMentions
	p.metrics.AnalyzedCount = result.AnalyzedCount
	p.metrics.LastRun = time.Now().UTC()
	p.metrics.LastRunDuration = duration.String()
	p.metrics.SourceErrors = result.SourceErrors
	p.metrics.ItemErrors = result.ItemErrors

	p.metrics.SourceMetrics = make(map[string]int)
	for source, n := range sourceCounts {
		p.metrics.SourceMetrics[source] = n
	}

	p.metrics.SentimentBreakdown = make(map[string]int)
	for label, n := range breakdown {
		p.metrics.SentimentBreakdown[label] = n
	}
}

// GetMetrics returns the last cycle's metrics as JSON
func (p *Pipeline) GetMetrics() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, _ := json.MarshalIndent(p.metrics, "", "  ")
	return string(data)
}

// keywordMatcher tests whole-word, case-insensitive keyword relevance.
// Trigger-keyword detection in the recommendation engine is deliberately
// looser (substring); this one is strict to keep ingestion precise.
type keywordMatcher struct {
	patterns []*regexp.Regexp
}

func newKeywordMatcher(keywords []models.Keyword) *keywordMatcher {
	m := &keywordMatcher{}
	for _, k := range keywords {
		term := strings.TrimSpace(k.Term)
		if term == "" {
			continue
		}
		m.patterns = append(m.patterns,
			regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return m
}

func (m *keywordMatcher) matches(title string) bool {
	for _, p := range m.patterns {
		if p.MatchString(title) {
			return true
		}
	}
	return false
}
