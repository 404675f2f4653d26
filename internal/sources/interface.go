package sources

import (
	"context"

	"github.com/repwatch/reputation-bot/internal/models"
)

// Source interface defines the contract for all mention sources. A source
// produces raw (source, title, url) items; relevance filtering happens in the
// ingestion pipeline, not here.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.RawItem, error)
}
