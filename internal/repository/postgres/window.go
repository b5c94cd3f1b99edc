package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"eventpulse/internal/domain/candle"
	"eventpulse/pkg/errors"
)

// Compile-time check that we implement the interface
var _ candle.WindowRepository = (*WindowRepository)(nil)

// WindowRepository implements candle.WindowRepository using sqlx. Candle
// slices are stored as a JSONB column: windows are read and replaced whole,
// never queried per-candle.
type WindowRepository struct {
	db DBTX
}

// NewWindowRepository creates a new window repository
func NewWindowRepository(db DBTX) *WindowRepository {
	return &WindowRepository{db: db}
}

// Upsert replaces the window stored for (event_id, pair). The payload is
// normalized first so stored candles are always sorted and deduplicated.
func (r *WindowRepository) Upsert(ctx context.Context, w *candle.Window) error {
	w.Normalize()

	candlesJSON, err := json.Marshal(w.Candles)
	if err != nil {
		return errors.Wrap(err, "failed to marshal candles")
	}

	query := `
		INSERT INTO event_windows (event_id, pair, event_timestamp, window_start, window_end, candles)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, pair) DO UPDATE SET
			event_timestamp = EXCLUDED.event_timestamp,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			candles = EXCLUDED.candles`

	_, err = r.db.ExecContext(ctx, query,
		w.EventID, w.Pair, w.EventTimestamp, w.WindowStart, w.WindowEnd, candlesJSON,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert window %s/%s", w.EventID, w.Pair)
	}
	return nil
}

// Get retrieves the window for (event_id, pair)
func (r *WindowRepository) Get(ctx context.Context, eventID, pair string) (*candle.Window, error) {
	var w candle.Window
	var candlesJSON []byte

	query := `
		SELECT event_id, pair, event_timestamp, window_start, window_end, candles
		FROM event_windows
		WHERE event_id = $1 AND pair = $2`

	row := r.db.QueryRowContext(ctx, query, eventID, pair)
	err := row.Scan(&w.EventID, &w.Pair, &w.EventTimestamp, &w.WindowStart, &w.WindowEnd, &candlesJSON)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "window %s/%s", eventID, pair)
	}
	if err != nil {
		return nil, err
	}

	if len(candlesJSON) > 0 {
		if err := json.Unmarshal(candlesJSON, &w.Candles); err != nil {
			return nil, errors.Wrapf(err, "unmarshal candles for %s/%s", eventID, pair)
		}
	}
	return &w, nil
}

// PairsWithWindows returns the pairs that already have a window for the event
func (r *WindowRepository) PairsWithWindows(ctx context.Context, eventID string) ([]string, error) {
	query := `SELECT pair FROM event_windows WHERE event_id = $1 ORDER BY pair`

	var pairs []string
	if err := r.db.SelectContext(ctx, &pairs, query, eventID); err != nil {
		return nil, errors.Wrapf(err, "list pairs for event %s", eventID)
	}
	return pairs, nil
}
