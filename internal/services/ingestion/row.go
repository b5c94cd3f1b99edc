package ingestion

import (
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"eventpulse/internal/domain/event"
	"eventpulse/pkg/errors"
)

// RawCalendarRow is one scraped calendar entry as delivered by the scraper,
// over Kafka or the bulk HTTP endpoint. Values are carried verbatim; all
// interpretation happens in Normalize.
type RawCalendarRow struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Country  string `json:"country,omitempty"`

	TimestampMs int64  `json:"timestamp"`
	ScrapedAtMs int64  `json:"scrapedAt,omitempty"`
	Source      string `json:"source"`

	Impact   string `json:"impact"`
	Actual   string `json:"actual,omitempty"`
	Forecast string `json:"forecast,omitempty"`
	Previous string `json:"previous,omitempty"`

	RelatedEventID string `json:"relatedEventId,omitempty"`
	IsFollowUp     bool   `json:"isFollowUp,omitempty"`
}

// Normalize converts a raw row into a storable event: canonical type and ID,
// parsed numeric values, derived deviation and outcome, and session context.
// nowMs fills scrapedAt when the scraper omitted it.
func Normalize(row *RawCalendarRow, nowMs int64) (*event.Event, error) {
	name := strings.TrimSpace(row.Name)
	currency := strings.ToUpper(strings.TrimSpace(row.Currency))

	switch {
	case name == "":
		return nil, errors.Wrap(errors.ErrInvalidInput, "row has no event name")
	case currency == "":
		return nil, errors.Wrapf(errors.ErrInvalidInput, "row %q has no currency", name)
	case row.TimestampMs <= 0:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "row %q has no timestamp", name)
	}

	scrapedAt := row.ScrapedAtMs
	if scrapedAt == 0 {
		scrapedAt = nowMs
	}

	country := strings.TrimSpace(row.Country)
	if country == "" {
		country = event.CountryForCurrency(currency)
	}

	e := &event.Event{
		EventID:   event.GenerateEventID(name, currency, row.TimestampMs),
		EventType: event.CanonicalEventType(name),
		Name:      name,
		Country:   country,
		Currency:  currency,
		Source:    row.Source,

		Timestamp: row.TimestampMs,
		ScrapedAt: scrapedAt,

		Impact:         event.NormalizeImpact(row.Impact),
		DayOfWeek:      event.DayOfWeek(row.TimestampMs),
		TradingSession: event.TradingSession(row.TimestampMs),

		ActualRaw:   nullString(row.Actual),
		ForecastRaw: nullString(row.Forecast),
		PreviousRaw: nullString(row.Previous),

		Actual:   event.ParseNumericValue(row.Actual),
		Forecast: event.ParseNumericValue(row.Forecast),
		Previous: event.ParseNumericValue(row.Previous),

		RelatedEventID: nullString(row.RelatedEventID),
		IsFollowUp:     row.IsFollowUp,

		Status: event.StatusScheduled,
	}

	if strings.TrimSpace(row.Actual) != "" {
		e.Status = event.StatusReleased
	}

	deriveComparisons(e)

	return e, nil
}

// deriveComparisons fills deviation, deviation percent, and the raw
// magnitude-only outcome when both actual and forecast parsed
func deriveComparisons(e *event.Event) {
	if !e.HasForecastPair() {
		return
	}

	actual := e.Actual.Decimal
	forecast := e.Forecast.Decimal

	dev := actual.Sub(forecast)
	e.Deviation = decimal.NewNullDecimal(dev)

	if !forecast.IsZero() {
		pct := dev.Div(forecast.Abs()).Mul(decimal.NewFromInt(100))
		e.DeviationPct = decimal.NewNullDecimal(pct)
	}

	// raw outcome is direction-blind; the stats layer applies the
	// lower-is-better interpretation
	outcome := "met"
	switch actual.Cmp(forecast) {
	case 1:
		outcome = "beat"
	case -1:
		outcome = "miss"
	}
	e.RawOutcome = sql.NullString{String: outcome, Valid: true}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
