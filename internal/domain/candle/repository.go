package candle

import (
	"context"
)

// WindowRepository stores captured event windows, one per (event_id, pair)
type WindowRepository interface {
	// Upsert replaces candles and bounds for the (event_id, pair) key,
	// preserving identity
	Upsert(ctx context.Context, w *Window) error

	Get(ctx context.Context, eventID, pair string) (*Window, error)

	// PairsWithWindows returns the pairs that already have a window for the event
	PairsWithWindows(ctx context.Context, eventID string) ([]string, error)
}

// HourlyRepository stores the hourly candle series used for +3h settlement
// lookups. Backed by ClickHouse; absence of a bar is expected and reported
// via ErrNotFound.
type HourlyRepository interface {
	// Insert writes a batch of hourly candles for a pair
	Insert(ctx context.Context, pair string, candles []Candle) error

	// GetHour returns the candle whose bar-open equals hourStartMs exactly
	GetHour(ctx context.Context, pair string, hourStartMs int64) (*Candle, error)
}
