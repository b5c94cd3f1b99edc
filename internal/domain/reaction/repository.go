package reaction

import (
	"context"
)

// Repository stores reactions, one per (event_id, pair)
type Repository interface {
	// Upsert replaces the reaction for its (event_id, pair) key
	Upsert(ctx context.Context, r *Reaction) error

	Get(ctx context.Context, eventID, pair string) (*Reaction, error)

	ListByEvent(ctx context.Context, eventID string) ([]Reaction, error)

	// CountByEvent returns how many pairs have a reaction for the event
	CountByEvent(ctx context.Context, eventID string) (int, error)

	// ListSettlementPending returns reactions whose +3h price is unset and
	// whose event is old enough for the +3h bar to exist, event timestamp
	// strictly after afterMs, ordered ascending
	ListSettlementPending(ctx context.Context, afterMs, notAfterMs int64, limit int) ([]Reaction, error)

	// SetPlus3hr backfills the +3h settlement price
	SetPlus3hr(ctx context.Context, eventID, pair string, price float64) error

	// ListByTypeAndPair returns all reactions for events of one canonical
	// type on one pair, paged by limit/offset for bounded reads
	ListByTypeAndPair(ctx context.Context, eventType, pair string, limit, offset int) ([]Reaction, error)

	// ListStaleGroups returns (event_type, pair) groups that have at least
	// minSamples reactions and reactions newer than the group's statistics,
	// ordered by (event_type, pair) strictly after the cursor pair
	ListStaleGroups(ctx context.Context, afterType, afterPair string, minSamples, limit int) ([]Group, error)
}

// Group identifies one (event type, pair) aggregation unit
type Group struct {
	EventType string `db:"event_type"`
	Pair      string `db:"pair"`
}
