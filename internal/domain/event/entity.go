package event

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Event represents a single scheduled macroeconomic release or speech,
// normalized from a raw calendar row. Timestamps are UTC milliseconds.
type Event struct {
	EventID   string `db:"event_id"`
	EventType string `db:"event_type"`
	Name      string `db:"name"`
	Country   string `db:"country"`
	Currency  string `db:"currency"`
	Source    string `db:"source"`

	Timestamp int64 `db:"timestamp_ms"`
	ScrapedAt int64 `db:"scraped_at"`

	Status         Status `db:"status"`
	Impact         Impact `db:"impact"`
	DayOfWeek      string `db:"day_of_week"`
	TradingSession string `db:"trading_session"`

	ActualRaw   sql.NullString `db:"actual_raw"`
	ForecastRaw sql.NullString `db:"forecast_raw"`
	PreviousRaw sql.NullString `db:"previous_raw"`

	Actual       decimal.NullDecimal `db:"actual"`
	Forecast     decimal.NullDecimal `db:"forecast"`
	Previous     decimal.NullDecimal `db:"previous"`
	Deviation    decimal.NullDecimal `db:"deviation"`
	DeviationPct decimal.NullDecimal `db:"deviation_pct"`

	// RawOutcome is the ingestion-time epsilon comparison (beat/miss/met).
	// The direction-aware Outcome used for statistics partitions is computed
	// by ClassifyOutcome and may differ for lower-is-better event types.
	RawOutcome     sql.NullString  `db:"raw_outcome"`
	SurpriseZScore sql.NullFloat64 `db:"surprise_z_score"`

	// Multi-part releases (e.g. a statement followed by a press conference)
	// link follow-up events to their parent.
	RelatedEventID sql.NullString `db:"related_event_id"`
	IsFollowUp     bool           `db:"is_follow_up"`

	// Completion flags. Both are monotonic: set once the first time their
	// condition is observed true, never cleared except by an explicit
	// administrative reset.
	WindowsComplete     bool `db:"windows_complete"`
	ReactionsCalculated bool `db:"reactions_calculated"`
}

// Status reflects whether the release has happened yet
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusReleased  Status = "released"
)

// Impact defines event impact level
type Impact string

const (
	ImpactHigh        Impact = "high"
	ImpactMedium      Impact = "medium"
	ImpactLow         Impact = "low"
	ImpactNonEconomic Impact = "non_economic"
)

// Valid checks if impact level is valid
func (i Impact) Valid() bool {
	switch i {
	case ImpactHigh, ImpactMedium, ImpactLow, ImpactNonEconomic:
		return true
	}
	return false
}

// String returns string representation
func (i Impact) String() string {
	return string(i)
}

// HasForecastPair reports whether both actual and forecast parsed
func (e *Event) HasForecastPair() bool {
	return e.Actual.Valid && e.Forecast.Valid
}

// Surprise returns actual - forecast as a float, valid only when both parsed
func (e *Event) Surprise() (float64, bool) {
	if !e.HasForecastPair() {
		return 0, false
	}
	return e.Actual.Decimal.Sub(e.Forecast.Decimal).InexactFloat64(), true
}
