package sources

import (
	"fmt"
	"strings"
)

// Build assembles sources from config entries. News page entries are
// "name|url|selector"; RSS entries are "name|url". Malformed entries are
// errors so a typo surfaces at startup rather than as a silently dead source.
func Build(newsPages, rssFeeds []string) ([]Source, error) {
	var srcs []Source

	for _, entry := range newsPages {
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid news page entry %q (want name|url|selector)", entry)
		}
		srcs = append(srcs, NewNewsPageSource(
			strings.TrimSpace(parts[0]),
			strings.TrimSpace(parts[1]),
			strings.TrimSpace(parts[2]),
		))
	}

	for _, entry := range rssFeeds {
		parts := strings.SplitN(entry, "|", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid RSS feed entry %q (want name|url)", entry)
		}
		srcs = append(srcs, NewRSSSource(
			strings.TrimSpace(parts[0]),
			strings.TrimSpace(parts[1]),
		))
	}

	return srcs, nil
}
