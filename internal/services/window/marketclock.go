package window

import (
	"time"

	"github.com/scmhub/calendar"
)

// MarketClock answers whether the spot FX market can produce candles around
// a given instant. FX runs continuously from the Sydney open to the New York
// close; the weekly gap is Friday 22:00 UTC to Sunday 22:00 UTC. Exchange
// holidays thin liquidity but the NYSE calendar is used only for the handful
// of days the market produces no bars at all.
type MarketClock struct {
	cal *calendar.Calendar
}

// NewMarketClock creates a clock backed by the NYSE holiday calendar
func NewMarketClock() *MarketClock {
	return &MarketClock{cal: calendar.GetCalendar("xnys")}
}

// fullClosureDays are the dates FX feeds go completely dark regardless of
// what the exchange calendar says
func fullClosureDay(t time.Time) bool {
	month, day := t.Month(), t.Day()
	return (month == time.December && day == 25) || (month == time.January && day == 1)
}

// Open reports whether candles can exist at the given UTC millisecond instant
func (m *MarketClock) Open(timestampMs int64) bool {
	t := time.UnixMilli(timestampMs).UTC()

	if fullClosureDay(t) {
		return false
	}

	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return t.Hour() < 22
	case time.Sunday:
		return t.Hour() >= 22
	}
	return true
}

// TradingDay reports whether the date has any trading at all. Weekends and
// full closures are out; a Friday or Sunday still counts because part of the
// day trades.
func (m *MarketClock) TradingDay(timestampMs int64) bool {
	t := time.UnixMilli(timestampMs).UTC()

	if fullClosureDay(t) {
		return false
	}
	if t.Weekday() == time.Saturday {
		return false
	}
	if t.Weekday() == time.Sunday {
		return t.Hour() >= 22
	}
	if m.cal != nil && t.Weekday() != time.Friday && !m.cal.IsBusinessDay(t) {
		// exchange holiday mid-week: bars may exist but events never fire,
		// treat the day as closed for capture purposes
		return false
	}
	return true
}
