package event

import (
	"math"
	"strings"
)

// Outcome classifies the actual release value relative to its forecast
type Outcome string

const (
	OutcomeBeat   Outcome = "beat"
	OutcomeMiss   Outcome = "miss"
	OutcomeInline Outcome = "inline"
)

// String returns string representation
func (o Outcome) String() string {
	return string(o)
}

// inlineThresholdPct is the deviation band treated as "met expectations"
const inlineThresholdPct = 5.0

// lowerIsBetterCodes are event types where a lower actual is the good
// surprise: rising unemployment, claims, and inflation prints hurt.
var lowerIsBetterCodes = map[string]struct{}{
	"UNEMPLOYMENT_RATE":       {},
	"JOBLESS_CLAIMS":          {},
	"INITIAL_JOBLESS_CLAIMS":  {},
	"CONTINUED_CLAIMS":        {},
	"CPI_MOM":                 {},
	"CPI_YOY":                 {},
	"CORE_CPI_MOM":            {},
	"CORE_CPI_YOY":            {},
	"PPI_MOM":                 {},
	"PPI_YOY":                 {},
	"CORE_PPI_MOM":            {},
	"CORE_PPI_YOY":            {},
}

// LowerIsBetter reports whether a smaller actual counts as a beat for the type
func LowerIsBetter(eventType string) bool {
	if _, ok := lowerIsBetterCodes[eventType]; ok {
		return true
	}
	// Catch CPI/PPI variants that missed the canonical table
	return strings.HasPrefix(eventType, "CPI_") || strings.HasPrefix(eventType, "PPI_") ||
		strings.HasPrefix(eventType, "CORE_CPI_") || strings.HasPrefix(eventType, "CORE_PPI_")
}

// ClassifyOutcome maps (actual, forecast, event type) to beat/miss/inline.
// Total: every input triple maps to exactly one outcome.
func ClassifyOutcome(actual, forecast float64, eventType string) Outcome {
	if forecast == 0 {
		switch {
		case actual == 0:
			return OutcomeInline
		case actual > 0:
			return OutcomeBeat
		default:
			return OutcomeMiss
		}
	}

	deviationPct := math.Abs(actual-forecast) / math.Abs(forecast) * 100
	if deviationPct <= inlineThresholdPct {
		return OutcomeInline
	}

	if LowerIsBetter(eventType) {
		if actual < forecast {
			return OutcomeBeat
		}
		return OutcomeMiss
	}

	if actual > forecast {
		return OutcomeBeat
	}
	return OutcomeMiss
}
