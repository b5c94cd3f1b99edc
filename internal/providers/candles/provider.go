// Package candles fetches minute and hourly OHLCV bars from the upstream
// price history API.
package candles

import (
	"context"

	"eventpulse/internal/domain/candle"
)

// Provider fetches candle series for a pair over a UTC millisecond range.
// Implementations return the candles they have; gaps (weekends, holidays,
// thin markets) are normal and left to the caller to interpret.
type Provider interface {
	// FetchMinute returns one-minute candles in [fromMs, toMs]
	FetchMinute(ctx context.Context, pair string, fromMs, toMs int64) ([]candle.Candle, error)

	// FetchHourly returns one-hour candles in [fromMs, toMs]
	FetchHourly(ctx context.Context, pair string, fromMs, toMs int64) ([]candle.Candle, error)
}

// FetchResult carries one pair's outcome when fetching several pairs for the
// same event; a per-pair error must not sink the other pairs
type FetchResult struct {
	Pair    string
	Candles []candle.Candle
	Err     error
}
