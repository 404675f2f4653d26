package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// RSSSource fetches items from an RSS/Atom feed
type RSSSource struct {
	name    string
	feedURL string
	parser  *gofeed.Parser
}

var _ Source = (*RSSSource)(nil)

// NewRSSSource creates a new RSS source
func NewRSSSource(name, feedURL string) *RSSSource {
	parser := gofeed.NewParser()
	parser.UserAgent = "reputation-bot/1.0"
	return &RSSSource{
		name:    name,
		feedURL: feedURL,
		parser:  parser,
	}
}

func (s *RSSSource) Name() string {
	return s.name
}

// Fetch parses the feed and converts entries to raw items
func (s *RSSSource) Fetch(ctx context.Context) ([]models.RawItem, error) {
	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", s.feedURL, err)
	}

	now := time.Now().UTC()
	items := make([]models.RawItem, 0, len(feed.Items))

	for _, entry := range feed.Items {
		title := strings.TrimSpace(entry.Title)
		if title == "" || entry.Link == "" {
			continue
		}

		published := now
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		items = append(items, models.RawItem{
			Source:      s.name,
			Title:       title,
			URL:         entry.Link,
			PublishedAt: published,
		})
	}

	logrus.Debugf("Parsed %d items from feed %s", len(items), s.name)
	return items, nil
}
