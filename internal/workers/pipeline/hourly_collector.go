package pipeline

import (
	"context"
	"time"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/providers/candles"
	"eventpulse/internal/workers"
)

// hourlyLookback is how far back each collection reaches. Generous overlap
// with previous runs is fine: the hourly table dedupes on (pair, timestamp).
const hourlyLookback = 48 * time.Hour

// HourlyCollector keeps the hourly candle series current for every tracked
// pair so settlement backfills always find their bar locally instead of
// hitting the provider per reaction.
type HourlyCollector struct {
	*workers.BaseWorker
	provider candles.Provider
	hourly   candle.HourlyRepository
	pairs    []string
}

// NewHourlyCollector creates a new hourly candle collector
func NewHourlyCollector(
	provider candles.Provider,
	hourly candle.HourlyRepository,
	pairs []string,
	interval time.Duration,
	enabled bool,
) *HourlyCollector {
	return &HourlyCollector{
		BaseWorker: workers.NewBaseWorker("hourly_collector", interval, enabled),
		provider:   provider,
		hourly:     hourly,
		pairs:      pairs,
	}
}

// Run fetches and stores recent hourly candles for all tracked pairs
func (c *HourlyCollector) Run(ctx context.Context) error {
	now := time.Now().UTC()
	toMs := now.Truncate(time.Hour).UnixMilli()
	fromMs := toMs - hourlyLookback.Milliseconds()

	var lastErr error
	for _, pair := range c.pairs {
		cs, err := c.provider.FetchHourly(ctx, pair, fromMs, toMs)
		if err != nil {
			c.Log().Errorw("Hourly fetch failed", "pair", pair, "error", err)
			lastErr = err
			continue
		}
		if len(cs) == 0 {
			continue
		}
		if err := c.hourly.Insert(ctx, pair, cs); err != nil {
			c.Log().Errorw("Hourly insert failed", "pair", pair, "error", err)
			lastErr = err
			continue
		}
		c.Log().Debugw("Hourly candles stored", "pair", pair, "count", len(cs))
	}
	return lastErr
}
