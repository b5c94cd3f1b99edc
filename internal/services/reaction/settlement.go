package reaction

import (
	"context"
	"time"

	"eventpulse/internal/domain/candle"
	"eventpulse/pkg/errors"
)

// settlementDelay is how far past the event the +3h settlement sits
const settlementDelay = 3 * time.Hour

// ResolvePlus3hr looks up the hourly close covering event+3h. The target is
// floored to the hour boundary so the minute of the event never shifts which
// hourly bar answers.
func ResolvePlus3hr(ctx context.Context, hourly candle.HourlyRepository, pair string, eventTS int64) (float64, error) {
	target := eventTS + settlementDelay.Milliseconds()
	hourMs := time.Hour.Milliseconds()
	floored := target - target%hourMs

	c, err := hourly.GetHour(ctx, pair, floored)
	if err != nil {
		return 0, errors.Wrapf(err, "resolve +3h settlement for %s at %d", pair, floored)
	}
	return c.Close, nil
}

// SettlementDue reports whether enough wall time has elapsed past the event
// for the +3h settlement bar to exist upstream. An extra hour of slack lets
// the hourly bar close and replicate.
func SettlementDue(eventTS, nowMs int64) bool {
	return nowMs-eventTS >= (settlementDelay + time.Hour).Milliseconds()
}
