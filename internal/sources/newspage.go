package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/repwatch/reputation-bot/internal/models"
	"github.com/sirupsen/logrus"
)

// NewsPageSource scrapes headline anchors off a news site page using a CSS
// selector, e.g. "a.feed-post-link" on a portal front page. Publication time
// is not available on listing pages, so items carry the fetch time.
type NewsPageSource struct {
	name     string
	pageURL  string
	selector string
	client   *resty.Client
}

var _ Source = (*NewsPageSource)(nil)

// NewNewsPageSource creates a scraping source for one news page
func NewNewsPageSource(name, pageURL, selector string) *NewsPageSource {
	return &NewsPageSource{
		name:     name,
		pageURL:  pageURL,
		selector: selector,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "reputation-bot/1.0"),
	}
}

func (s *NewsPageSource) Name() string {
	return s.name
}

// Fetch downloads the page and extracts title/link pairs from the selector
func (s *NewsPageSource) Fetch(ctx context.Context) ([]models.RawItem, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.pageURL, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%s returned status %d", s.pageURL, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body())))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.pageURL, err)
	}

	base, err := url.Parse(s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %s: %w", s.pageURL, err)
	}

	now := time.Now().UTC()
	var items []models.RawItem
	seen := make(map[string]bool)

	doc.Find(s.selector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		href, ok := sel.Attr("href")
		if !ok {
			// Selector may point at a wrapper; look for the anchor inside
			href, ok = sel.Find("a").First().Attr("href")
		}
		if title == "" || href == "" || !ok {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			logrus.Debugf("Skipping unparseable link %q from %s", href, s.name)
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true

		items = append(items, models.RawItem{
			Source:      s.name,
			Title:       title,
			URL:         abs,
			PublishedAt: now,
		})
	})

	logrus.Debugf("Extracted %d items from %s", len(items), s.name)
	return items, nil
}
