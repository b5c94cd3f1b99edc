package postgres

import (
	"context"
	"database/sql"

	"eventpulse/internal/domain/event"
	"eventpulse/pkg/errors"
)

// Compile-time check that we implement the interface
var _ event.Repository = (*EventRepository)(nil)

const eventColumns = `
	event_id, event_type, name, country, currency, source,
	timestamp_ms, scraped_at, status, impact, day_of_week, trading_session,
	actual_raw, forecast_raw, previous_raw,
	actual, forecast, previous, deviation, deviation_pct,
	raw_outcome, surprise_z_score, related_event_id, is_follow_up,
	windows_complete, reactions_calculated`

// EventRepository implements event.Repository using sqlx
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Upsert inserts the event or replaces the stored row when the payload was
// scraped at least as recently. Stale payloads are silent no-ops, so replayed
// batches and out-of-order consumers cannot regress released values. The
// completion flags and z-score are pipeline-owned and never touched here.
func (r *EventRepository) Upsert(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24,
			false, false
		)
		ON CONFLICT (event_id) DO UPDATE SET
			event_type = EXCLUDED.event_type,
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			currency = EXCLUDED.currency,
			source = EXCLUDED.source,
			timestamp_ms = EXCLUDED.timestamp_ms,
			scraped_at = EXCLUDED.scraped_at,
			status = EXCLUDED.status,
			impact = EXCLUDED.impact,
			day_of_week = EXCLUDED.day_of_week,
			trading_session = EXCLUDED.trading_session,
			actual_raw = EXCLUDED.actual_raw,
			forecast_raw = EXCLUDED.forecast_raw,
			previous_raw = EXCLUDED.previous_raw,
			actual = EXCLUDED.actual,
			forecast = EXCLUDED.forecast,
			previous = EXCLUDED.previous,
			deviation = EXCLUDED.deviation,
			deviation_pct = EXCLUDED.deviation_pct,
			raw_outcome = EXCLUDED.raw_outcome,
			related_event_id = EXCLUDED.related_event_id,
			is_follow_up = EXCLUDED.is_follow_up
		WHERE events.scraped_at <= EXCLUDED.scraped_at`

	_, err := r.db.ExecContext(ctx, query,
		e.EventID, e.EventType, e.Name, e.Country, e.Currency, e.Source,
		e.Timestamp, e.ScrapedAt, e.Status, e.Impact, e.DayOfWeek, e.TradingSession,
		e.ActualRaw, e.ForecastRaw, e.PreviousRaw,
		e.Actual, e.Forecast, e.Previous, e.Deviation, e.DeviationPct,
		e.RawOutcome, e.SurpriseZScore, e.RelatedEventID, e.IsFollowUp,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert event %s", e.EventID)
	}
	return nil
}

// GetByID retrieves an event by its canonical ID
func (r *EventRepository) GetByID(ctx context.Context, eventID string) (*event.Event, error) {
	var e event.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_id = $1`

	err := r.db.GetContext(ctx, &e, query, eventID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "event %s", eventID)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListRange returns events whose corrected timestamps fall in [fromMs, toMs].
// The stored column is queried over a widened range first so legacy rows near
// the boundary survive the index scan, then filtered on corrected time.
func (r *EventRepository) ListRange(ctx context.Context, fromMs, toMs int64, currency string, limit int) ([]event.Event, error) {
	wideFrom, wideTo := event.WidenRange(fromMs, toMs)

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2`
	args := []interface{}{wideFrom, wideTo}

	if currency != "" {
		query += ` AND currency = $3`
		args = append(args, currency)
	}
	query += ` ORDER BY timestamp_ms ASC`

	var rows []event.Event
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list events by range")
	}

	return narrowCorrected(rows, fromMs, toMs, limit), nil
}

// ListHighImpactRange returns high-impact events in the corrected range
func (r *EventRepository) ListHighImpactRange(ctx context.Context, fromMs, toMs int64, limit int) ([]event.Event, error) {
	wideFrom, wideTo := event.WidenRange(fromMs, toMs)

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2 AND impact = $3
		ORDER BY timestamp_ms ASC`

	var rows []event.Event
	if err := r.db.SelectContext(ctx, &rows, query, wideFrom, wideTo, event.ImpactHigh); err != nil {
		return nil, errors.Wrap(err, "list high impact events")
	}

	return narrowCorrected(rows, fromMs, toMs, limit), nil
}

// narrowCorrected keeps rows whose skew-corrected timestamp is inside the
// requested range, preserving order, up to limit
func narrowCorrected(rows []event.Event, fromMs, toMs int64, limit int) []event.Event {
	out := make([]event.Event, 0, len(rows))
	for _, e := range rows {
		corrected := event.CorrectSkew(e.Source, e.Timestamp)
		if corrected < fromMs || corrected > toMs {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ListWindowPending returns released events still waiting for window capture,
// strictly after the cursor, oldest first
func (r *EventRepository) ListWindowPending(ctx context.Context, afterMs int64, limit int) ([]event.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE status = $1
		  AND windows_complete = false
		  AND timestamp_ms > $2
		ORDER BY timestamp_ms ASC
		LIMIT $3`

	var rows []event.Event
	if err := r.db.SelectContext(ctx, &rows, query, event.StatusReleased, afterMs, limit); err != nil {
		return nil, errors.Wrap(err, "list window pending events")
	}
	return rows, nil
}

// ListReactionPending returns events with captured windows but uncalculated
// reactions, strictly after the cursor, oldest first
func (r *EventRepository) ListReactionPending(ctx context.Context, afterMs int64, limit int) ([]event.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE windows_complete = true
		  AND reactions_calculated = false
		  AND timestamp_ms > $1
		ORDER BY timestamp_ms ASC
		LIMIT $2`

	var rows []event.Event
	if err := r.db.SelectContext(ctx, &rows, query, afterMs, limit); err != nil {
		return nil, errors.Wrap(err, "list reaction pending events")
	}
	return rows, nil
}

// SetWindowsComplete flips the flag only when it is still unset. Re-running
// a completed batch leaves the row untouched.
func (r *EventRepository) SetWindowsComplete(ctx context.Context, eventID string) error {
	query := `UPDATE events SET windows_complete = true WHERE event_id = $1 AND windows_complete = false`
	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return errors.Wrapf(err, "set windows_complete for %s", eventID)
	}
	return nil
}

// SetReactionsCalculated flips the flag only when it is still unset
func (r *EventRepository) SetReactionsCalculated(ctx context.Context, eventID string) error {
	query := `UPDATE events SET reactions_calculated = true WHERE event_id = $1 AND reactions_calculated = false`
	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return errors.Wrapf(err, "set reactions_calculated for %s", eventID)
	}
	return nil
}

// ResetFlags clears both completion flags for an intentional recompute
func (r *EventRepository) ResetFlags(ctx context.Context, eventID string) error {
	query := `UPDATE events SET windows_complete = false, reactions_calculated = false WHERE event_id = $1`

	res, err := r.db.ExecContext(ctx, query, eventID)
	if err != nil {
		return errors.Wrapf(err, "reset flags for %s", eventID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "event %s", eventID)
	}
	return nil
}

// SetSurpriseZScore records the standardized surprise for a released event
func (r *EventRepository) SetSurpriseZScore(ctx context.Context, eventID string, z float64) error {
	query := `UPDATE events SET surprise_z_score = $2 WHERE event_id = $1`
	if _, err := r.db.ExecContext(ctx, query, eventID, z); err != nil {
		return errors.Wrapf(err, "set surprise z-score for %s", eventID)
	}
	return nil
}

// ListByTypeWithValues returns released events of one type with both actual
// and forecast parsed, newest first
func (r *EventRepository) ListByTypeWithValues(ctx context.Context, eventType string, limit int) ([]event.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE event_type = $1
		  AND status = $2
		  AND actual IS NOT NULL
		  AND forecast IS NOT NULL
		ORDER BY timestamp_ms DESC
		LIMIT $3`

	var rows []event.Event
	if err := r.db.SelectContext(ctx, &rows, query, eventType, event.StatusReleased, limit); err != nil {
		return nil, errors.Wrap(err, "list events by type with values")
	}
	return rows, nil
}
