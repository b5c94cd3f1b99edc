package event

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// eventTypeCodes maps well-known calendar row names to canonical type codes.
// Names not listed fall back to upper-snake-casing of the raw name.
var eventTypeCodes = map[string]string{
	"Non-Farm Employment Change":  "NFP",
	"Unemployment Rate":           "UNEMPLOYMENT_RATE",
	"Unemployment Claims":         "JOBLESS_CLAIMS",
	"CPI m/m":                     "CPI_MOM",
	"CPI y/y":                     "CPI_YOY",
	"Core CPI m/m":                "CORE_CPI_MOM",
	"Core CPI y/y":                "CORE_CPI_YOY",
	"PPI m/m":                     "PPI_MOM",
	"PPI y/y":                     "PPI_YOY",
	"Core PPI m/m":                "CORE_PPI_MOM",
	"Advance GDP q/q":             "GDP",
	"Prelim GDP q/q":              "GDP_PRELIM",
	"Final GDP q/q":               "GDP_FINAL",
	"GDP m/m":                     "GDP_MOM",
	"Retail Sales m/m":            "RETAIL_SALES_MOM",
	"Core Retail Sales m/m":       "CORE_RETAIL_SALES_MOM",
	"Federal Funds Rate":          "FED_FUNDS_RATE",
	"FOMC Statement":              "FOMC_STATEMENT",
	"FOMC Press Conference":       "FOMC_PRESS_CONFERENCE",
	"FOMC Meeting Minutes":        "FOMC_MINUTES",
	"ISM Manufacturing PMI":       "ISM_MANUFACTURING_PMI",
	"ISM Services PMI":            "ISM_SERVICES_PMI",
	"Official Bank Rate":          "BOE_RATE",
	"Main Refinancing Rate":       "ECB_RATE",
	"Overnight Rate":              "BOC_RATE",
	"Cash Rate":                   "RBA_RATE",
	"Official Cash Rate":          "RBNZ_RATE",
	"BOJ Policy Rate":             "BOJ_RATE",
	"Average Hourly Earnings m/m": "AVG_HOURLY_EARNINGS_MOM",
	"Trade Balance":               "TRADE_BALANCE",
	"Crude Oil Inventories":       "CRUDE_OIL_INVENTORIES",
}

// currencyCountry maps release currency to issuing country/region code
var currencyCountry = map[string]string{
	"USD": "US",
	"EUR": "EU",
	"GBP": "GB",
	"JPY": "JP",
	"AUD": "AU",
	"NZD": "NZ",
	"CAD": "CA",
	"CHF": "CH",
	"CNY": "CN",
}

// rawImpactLevels maps scraped impact labels to normalized levels
var rawImpactLevels = map[string]Impact{
	"High Impact Expected":   ImpactHigh,
	"Medium Impact Expected": ImpactMedium,
	"Low Impact Expected":    ImpactLow,
	"Non-Economic":           ImpactNonEconomic,
	"high":                   ImpactHigh,
	"medium":                 ImpactMedium,
	"low":                    ImpactLow,
	"non_economic":           ImpactNonEconomic,
}

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscoreRe = regexp.MustCompile(`_+`)
)

// CanonicalEventType resolves a raw event name to its canonical type code
func CanonicalEventType(name string) string {
	if code, ok := eventTypeCodes[strings.TrimSpace(name)]; ok {
		return code
	}
	return fallbackTypeCode(name)
}

func fallbackTypeCode(name string) string {
	code := nonAlnumRe.ReplaceAllString(name, "_")
	code = underscoreRe.ReplaceAllString(code, "_")
	code = strings.Trim(code, "_")
	return strings.ToUpper(code)
}

// CountryForCurrency derives the release country from its currency
func CountryForCurrency(currency string) string {
	if c, ok := currencyCountry[strings.ToUpper(currency)]; ok {
		return c
	}
	return ""
}

// NormalizeImpact maps a scraped impact label to a normalized level.
// Empty and unknown labels count as non-economic.
func NormalizeImpact(raw string) Impact {
	if impact, ok := rawImpactLevels[strings.TrimSpace(raw)]; ok {
		return impact
	}
	return ImpactNonEconomic
}

// ParseNumericValue parses calendar values like "4.50%", "256K", "-0.3%",
// "1.2M" into an exact decimal. Suffix multipliers: K=1e3, M=1e6, B=1e9,
// T=1e12. Returns invalid for empty or unparseable input.
func ParseNumericValue(raw string) decimal.NullDecimal {
	v := strings.TrimSpace(raw)
	if v == "" {
		return decimal.NullDecimal{}
	}

	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, "%", "")

	multiplier := decimal.NewFromInt(1)
	upper := strings.ToUpper(v)
	for suffix, exp := range map[string]int32{"K": 3, "M": 6, "B": 9, "T": 12} {
		if strings.Contains(upper, suffix) {
			multiplier = decimal.New(1, exp)
			v = strings.ReplaceAll(upper, suffix, "")
			break
		}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d.Mul(multiplier), Valid: true}
}

// GenerateEventID builds the stable identifier for a release that arrived
// without one: {normalized_name(<=20)}_{CUR}_{YYYY-MM-DD}_{HH:MM} in UTC.
func GenerateEventID(name, currency string, timestampMs int64) string {
	normalized := nonAlnumRe.ReplaceAllString(name, "_")
	normalized = underscoreRe.ReplaceAllString(normalized, "_")
	normalized = strings.Trim(normalized, "_")
	if len(normalized) > 20 {
		normalized = normalized[:20]
	}

	t := time.UnixMilli(timestampMs).UTC()
	return normalized + "_" + strings.ToUpper(currency) + "_" + t.Format("2006-01-02") + "_" + t.Format("15:04")
}

// TradingSession classifies a UTC timestamp into the forex session it falls in
func TradingSession(timestampMs int64) string {
	hour := time.UnixMilli(timestampMs).UTC().Hour()

	inSydney := hour >= 21 || hour < 6
	inLondon := hour >= 7 && hour < 16
	inNY := hour >= 12 && hour < 21

	switch {
	case inLondon && inNY:
		return "london_ny_overlap"
	case inSydney && inLondon:
		return "asian_london_overlap"
	case inLondon:
		return "london"
	case inNY:
		return "new_york"
	case inSydney:
		return "asian"
	default:
		return "off_hours"
	}
}

// DayOfWeek returns the Mon..Sun abbreviation for a UTC timestamp
func DayOfWeek(timestampMs int64) string {
	return time.UnixMilli(timestampMs).UTC().Format("Mon")
}
