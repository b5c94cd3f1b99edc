package stats

import (
	"context"
)

// Repository stores event-type statistics, one record per (event_type, pair)
type Repository interface {
	// Replace swaps in a freshly recomputed record wholesale. Either the full
	// record lands or nothing changes; there is no partial update path.
	Replace(ctx context.Context, s *EventTypeStats) error

	Get(ctx context.Context, eventType, pair string) (*EventTypeStats, error)

	ListByPair(ctx context.Context, pair string, limit int) ([]EventTypeStats, error)
}
