package reaction

// Direction of the initial spike
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Pattern classifies the relationship between the spike and the settled move
type Pattern string

const (
	PatternSpikeReversal Pattern = "spike_reversal"
	PatternContinuation  Pattern = "continuation"
	PatternFade          Pattern = "fade"
	PatternRange         Pattern = "range"
)

// Patterns lists all pattern types in fixed histogram order. Dominant-pattern
// ties resolve to the earliest entry.
var Patterns = []Pattern{PatternSpikeReversal, PatternContinuation, PatternFade, PatternRange}

// Reaction is the computed price-movement summary for one (event, pair).
// Recomputing from the same window yields identical output; the store upserts
// by (event_id, pair) so duplicates overwrite in place.
type Reaction struct {
	EventID        string `db:"event_id" json:"eventId"`
	Pair           string `db:"pair" json:"pair"`
	EventTimestamp int64  `db:"event_timestamp" json:"eventTimestamp"`

	PriceAtMinus15m float64 `db:"price_at_minus_15m" json:"priceAtMinus15m"`
	PriceAtMinus5m  float64 `db:"price_at_minus_5m" json:"priceAtMinus5m"`
	PriceAtMinus1m  float64 `db:"price_at_minus_1m" json:"priceAtMinus1m"`
	PriceAtEvent    float64 `db:"price_at_event" json:"priceAtEvent"`

	SpikeHigh          float64   `db:"spike_high" json:"spikeHigh"`
	SpikeLow           float64   `db:"spike_low" json:"spikeLow"`
	SpikeDirection     Direction `db:"spike_direction" json:"spikeDirection"`
	SpikeMagnitudePips float64   `db:"spike_magnitude_pips" json:"spikeMagnitudePips"`
	TimeToSpikeSec     *int64    `db:"time_to_spike_sec" json:"timeToSpikeSec"`

	PriceAtPlus5m  *float64 `db:"price_at_plus_5m" json:"priceAtPlus5m"`
	PriceAtPlus15m *float64 `db:"price_at_plus_15m" json:"priceAtPlus15m"`
	PriceAtPlus30m *float64 `db:"price_at_plus_30m" json:"priceAtPlus30m"`
	PriceAtPlus1hr *float64 `db:"price_at_plus_1hr" json:"priceAtPlus1hr"`
	PriceAtPlus3hr *float64 `db:"price_at_plus_3hr" json:"priceAtPlus3hr"`

	PatternType                Pattern  `db:"pattern_type" json:"patternType"`
	DidReverse                 bool     `db:"did_reverse" json:"didReverse"`
	ReversalMagnitudePips      *float64 `db:"reversal_magnitude_pips" json:"reversalMagnitudePips"`
	FinalDirectionMatchesSpike bool     `db:"final_direction_matches_spike" json:"finalDirectionMatchesSpike"`

	ComputedAt int64 `db:"computed_at" json:"computedAt"`
}

// ReversedBy reports whether the retracement from the spike extreme to the
// given settlement price exceeds half the spike magnitude. Used for the
// 30-minute test at compute time and the distinct 1-hour test at
// aggregation time.
func (r *Reaction) ReversedBy(settlement float64, pip float64) bool {
	if pip <= 0 || r.SpikeMagnitudePips <= 0 {
		return false
	}
	var pullbackPips float64
	if r.SpikeDirection == DirectionUp {
		pullbackPips = (r.SpikeHigh - settlement) / pip
	} else {
		pullbackPips = (settlement - r.SpikeLow) / pip
	}
	return pullbackPips > 0.5*r.SpikeMagnitudePips
}
