package api

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"eventpulse/internal/domain/event"
)

// eventView is the wire shape for events. Two things separate it from the
// stored entity: the timestamp carries the legacy-source skew correction, and
// nullable columns flatten to optional camelCase fields instead of leaking
// sql.Null* internals.
type eventView struct {
	EventID        string       `json:"eventId"`
	EventType      string       `json:"eventType"`
	Name           string       `json:"name"`
	Country        string       `json:"country,omitempty"`
	Currency       string       `json:"currency"`
	Source         string       `json:"source"`
	Timestamp      int64        `json:"timestamp"`
	ScrapedAt      int64        `json:"scrapedAt"`
	Status         event.Status `json:"status"`
	Impact         event.Impact `json:"impact"`
	DayOfWeek      string       `json:"dayOfWeek,omitempty"`
	TradingSession string       `json:"tradingSession,omitempty"`

	ActualRaw   *string `json:"actualRaw,omitempty"`
	ForecastRaw *string `json:"forecastRaw,omitempty"`
	PreviousRaw *string `json:"previousRaw,omitempty"`

	Actual       *float64 `json:"actual,omitempty"`
	Forecast     *float64 `json:"forecast,omitempty"`
	Previous     *float64 `json:"previous,omitempty"`
	Deviation    *float64 `json:"deviation,omitempty"`
	DeviationPct *float64 `json:"deviationPct,omitempty"`

	RawOutcome     *string  `json:"rawOutcome,omitempty"`
	SurpriseZScore *float64 `json:"surpriseZScore,omitempty"`

	RelatedEventID *string `json:"relatedEventId,omitempty"`
	IsFollowUp     bool    `json:"isFollowUp"`

	WindowsComplete     bool `json:"windowsComplete"`
	ReactionsCalculated bool `json:"reactionsCalculated"`
}

func newEventView(e *event.Event) eventView {
	return eventView{
		EventID:        e.EventID,
		EventType:      e.EventType,
		Name:           e.Name,
		Country:        e.Country,
		Currency:       e.Currency,
		Source:         e.Source,
		Timestamp:      e.CorrectedTimestamp(),
		ScrapedAt:      e.ScrapedAt,
		Status:         e.Status,
		Impact:         e.Impact,
		DayOfWeek:      e.DayOfWeek,
		TradingSession: e.TradingSession,

		ActualRaw:   optString(e.ActualRaw),
		ForecastRaw: optString(e.ForecastRaw),
		PreviousRaw: optString(e.PreviousRaw),

		Actual:       optDecimal(e.Actual),
		Forecast:     optDecimal(e.Forecast),
		Previous:     optDecimal(e.Previous),
		Deviation:    optDecimal(e.Deviation),
		DeviationPct: optDecimal(e.DeviationPct),

		RawOutcome:     optString(e.RawOutcome),
		SurpriseZScore: optFloat(e.SurpriseZScore),

		RelatedEventID: optString(e.RelatedEventID),
		IsFollowUp:     e.IsFollowUp,

		WindowsComplete:     e.WindowsComplete,
		ReactionsCalculated: e.ReactionsCalculated,
	}
}

func eventViews(events []event.Event) []eventView {
	out := make([]eventView, 0, len(events))
	for i := range events {
		out = append(out, newEventView(&events[i]))
	}
	return out
}

func optString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func optFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func optDecimal(v decimal.NullDecimal) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Decimal.InexactFloat64()
	return &f
}
