package postgres

import (
	"context"
	"database/sql"

	"eventpulse/internal/domain/reaction"
	"eventpulse/pkg/errors"
)

// Compile-time check that we implement the interface
var _ reaction.Repository = (*ReactionRepository)(nil)

const reactionColumns = `
	event_id, pair, event_timestamp,
	price_at_minus_15m, price_at_minus_5m, price_at_minus_1m, price_at_event,
	spike_high, spike_low, spike_direction, spike_magnitude_pips, time_to_spike_sec,
	price_at_plus_5m, price_at_plus_15m, price_at_plus_30m, price_at_plus_1hr, price_at_plus_3hr,
	pattern_type, did_reverse, reversal_magnitude_pips, final_direction_matches_spike,
	computed_at`

// ReactionRepository implements reaction.Repository using sqlx
type ReactionRepository struct {
	db DBTX
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db DBTX) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Upsert replaces the reaction for its (event_id, pair) key. Recomputation
// is deterministic, so overwriting in place is always safe.
func (r *ReactionRepository) Upsert(ctx context.Context, rec *reaction.Reaction) error {
	query := `
		INSERT INTO reactions (` + reactionColumns + `)
		VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21,
			$22
		)
		ON CONFLICT (event_id, pair) DO UPDATE SET
			event_timestamp = EXCLUDED.event_timestamp,
			price_at_minus_15m = EXCLUDED.price_at_minus_15m,
			price_at_minus_5m = EXCLUDED.price_at_minus_5m,
			price_at_minus_1m = EXCLUDED.price_at_minus_1m,
			price_at_event = EXCLUDED.price_at_event,
			spike_high = EXCLUDED.spike_high,
			spike_low = EXCLUDED.spike_low,
			spike_direction = EXCLUDED.spike_direction,
			spike_magnitude_pips = EXCLUDED.spike_magnitude_pips,
			time_to_spike_sec = EXCLUDED.time_to_spike_sec,
			price_at_plus_5m = EXCLUDED.price_at_plus_5m,
			price_at_plus_15m = EXCLUDED.price_at_plus_15m,
			price_at_plus_30m = EXCLUDED.price_at_plus_30m,
			price_at_plus_1hr = EXCLUDED.price_at_plus_1hr,
			price_at_plus_3hr = COALESCE(EXCLUDED.price_at_plus_3hr, reactions.price_at_plus_3hr),
			pattern_type = EXCLUDED.pattern_type,
			did_reverse = EXCLUDED.did_reverse,
			reversal_magnitude_pips = EXCLUDED.reversal_magnitude_pips,
			final_direction_matches_spike = EXCLUDED.final_direction_matches_spike,
			computed_at = EXCLUDED.computed_at`

	_, err := r.db.ExecContext(ctx, query,
		rec.EventID, rec.Pair, rec.EventTimestamp,
		rec.PriceAtMinus15m, rec.PriceAtMinus5m, rec.PriceAtMinus1m, rec.PriceAtEvent,
		rec.SpikeHigh, rec.SpikeLow, rec.SpikeDirection, rec.SpikeMagnitudePips, rec.TimeToSpikeSec,
		rec.PriceAtPlus5m, rec.PriceAtPlus15m, rec.PriceAtPlus30m, rec.PriceAtPlus1hr, rec.PriceAtPlus3hr,
		rec.PatternType, rec.DidReverse, rec.ReversalMagnitudePips, rec.FinalDirectionMatchesSpike,
		rec.ComputedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert reaction %s/%s", rec.EventID, rec.Pair)
	}
	return nil
}

// Get retrieves the reaction for (event_id, pair)
func (r *ReactionRepository) Get(ctx context.Context, eventID, pair string) (*reaction.Reaction, error) {
	var rec reaction.Reaction
	query := `SELECT ` + reactionColumns + ` FROM reactions WHERE event_id = $1 AND pair = $2`

	err := r.db.GetContext(ctx, &rec, query, eventID, pair)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "reaction %s/%s", eventID, pair)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByEvent returns all pair reactions for one event
func (r *ReactionRepository) ListByEvent(ctx context.Context, eventID string) ([]reaction.Reaction, error) {
	query := `SELECT ` + reactionColumns + ` FROM reactions WHERE event_id = $1 ORDER BY pair`

	var rows []reaction.Reaction
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, errors.Wrapf(err, "list reactions for event %s", eventID)
	}
	return rows, nil
}

// CountByEvent returns how many pairs have a reaction for the event
func (r *ReactionRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reactions WHERE event_id = $1`

	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, errors.Wrapf(err, "count reactions for event %s", eventID)
	}
	return count, nil
}

// ListSettlementPending returns reactions missing their +3h price whose
// event is old enough for the bar to exist, strictly after the cursor
func (r *ReactionRepository) ListSettlementPending(ctx context.Context, afterMs, notAfterMs int64, limit int) ([]reaction.Reaction, error) {
	query := `
		SELECT ` + reactionColumns + `
		FROM reactions
		WHERE price_at_plus_3hr IS NULL
		  AND event_timestamp > $1
		  AND event_timestamp <= $2
		ORDER BY event_timestamp ASC, pair ASC
		LIMIT $3`

	var rows []reaction.Reaction
	if err := r.db.SelectContext(ctx, &rows, query, afterMs, notAfterMs, limit); err != nil {
		return nil, errors.Wrap(err, "list settlement pending reactions")
	}
	return rows, nil
}

// SetPlus3hr backfills the +3h settlement price
func (r *ReactionRepository) SetPlus3hr(ctx context.Context, eventID, pair string, price float64) error {
	query := `UPDATE reactions SET price_at_plus_3hr = $3 WHERE event_id = $1 AND pair = $2`
	if _, err := r.db.ExecContext(ctx, query, eventID, pair, price); err != nil {
		return errors.Wrapf(err, "set +3h price for %s/%s", eventID, pair)
	}
	return nil
}

// ListByTypeAndPair returns reactions for events of one canonical type on one
// pair, paged for bounded reads
func (r *ReactionRepository) ListByTypeAndPair(ctx context.Context, eventType, pair string, limit, offset int) ([]reaction.Reaction, error) {
	query := `
		SELECT r.event_id, r.pair, r.event_timestamp,
			   r.price_at_minus_15m, r.price_at_minus_5m, r.price_at_minus_1m, r.price_at_event,
			   r.spike_high, r.spike_low, r.spike_direction, r.spike_magnitude_pips, r.time_to_spike_sec,
			   r.price_at_plus_5m, r.price_at_plus_15m, r.price_at_plus_30m, r.price_at_plus_1hr, r.price_at_plus_3hr,
			   r.pattern_type, r.did_reverse, r.reversal_magnitude_pips, r.final_direction_matches_spike,
			   r.computed_at
		FROM reactions r
		JOIN events e ON e.event_id = r.event_id
		WHERE e.event_type = $1 AND r.pair = $2
		ORDER BY r.event_timestamp ASC
		LIMIT $3 OFFSET $4`

	var rows []reaction.Reaction
	if err := r.db.SelectContext(ctx, &rows, query, eventType, pair, limit, offset); err != nil {
		return nil, errors.Wrapf(err, "list reactions for %s/%s", eventType, pair)
	}
	return rows, nil
}

// ListStaleGroups returns (event_type, pair) groups holding at least
// minSamples reactions where some reaction is newer than the stored
// statistics, keyset-paged by the (event_type, pair) cursor
func (r *ReactionRepository) ListStaleGroups(ctx context.Context, afterType, afterPair string, minSamples, limit int) ([]reaction.Group, error) {
	query := `
		SELECT e.event_type, r.pair
		FROM reactions r
		JOIN events e ON e.event_id = r.event_id
		LEFT JOIN event_type_stats s ON s.event_type = e.event_type AND s.pair = r.pair
		WHERE (e.event_type, r.pair) > ($1, $2)
		GROUP BY e.event_type, r.pair, s.last_updated
		HAVING COUNT(*) >= $3 AND MAX(r.computed_at) > COALESCE(s.last_updated, 0)
		ORDER BY e.event_type, r.pair
		LIMIT $4`

	var groups []reaction.Group
	if err := r.db.SelectContext(ctx, &groups, query, afterType, afterPair, minSamples, limit); err != nil {
		return nil, errors.Wrap(err, "list stale stat groups")
	}
	return groups, nil
}
