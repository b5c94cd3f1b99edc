package event

import (
	"context"
)

// Repository defines the interface for event storage.
// All list methods take explicit limits; callers page with cursors rather
// than assuming the candidate set fits in one read.
type Repository interface {
	// Upsert inserts or replaces an event keyed by event_id. A payload with
	// scraped_at older than the stored row is a no-op (recency wins, not
	// arrival order).
	Upsert(ctx context.Context, e *Event) error

	GetByID(ctx context.Context, eventID string) (*Event, error)

	// ListRange returns events in [fromMs, toMs] (skew-corrected timestamps),
	// optionally filtered by currency, ordered by timestamp ascending.
	ListRange(ctx context.Context, fromMs, toMs int64, currency string, limit int) ([]Event, error)

	// ListHighImpactRange returns high-impact events in the corrected range
	ListHighImpactRange(ctx context.Context, fromMs, toMs int64, limit int) ([]Event, error)

	// ListWindowPending returns released events with windows_complete = false
	// and timestamp strictly after afterMs, ordered by timestamp ascending
	ListWindowPending(ctx context.Context, afterMs int64, limit int) ([]Event, error)

	// ListReactionPending returns events whose windows are complete but whose
	// reactions_calculated flag is still false, strictly after afterMs
	ListReactionPending(ctx context.Context, afterMs int64, limit int) ([]Event, error)

	// SetWindowsComplete flips windows_complete true only if currently false
	SetWindowsComplete(ctx context.Context, eventID string) error

	// SetReactionsCalculated flips reactions_calculated true only if currently false
	SetReactionsCalculated(ctx context.Context, eventID string) error

	// ResetFlags clears both completion flags. Administrative use only, for
	// intentional invalidation before a recompute.
	ResetFlags(ctx context.Context, eventID string) error

	// SetSurpriseZScore records the standardized surprise for a released event
	SetSurpriseZScore(ctx context.Context, eventID string, z float64) error

	// ListByTypeWithValues returns released events of one type that have both
	// actual and forecast parsed, newest first
	ListByTypeWithValues(ctx context.Context, eventType string, limit int) ([]Event, error)
}
