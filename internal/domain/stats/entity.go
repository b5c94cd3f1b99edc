package stats

import (
	"eventpulse/internal/domain/reaction"
)

// EventTypeStats summarizes all reactions for one (event type, pair).
// Fully derived: safe to recompute from scratch at any time, never hand-edited.
type EventTypeStats struct {
	EventType string `db:"event_type"`
	Pair      string `db:"pair"`

	SampleSize     int   `db:"sample_size"`
	DateRangeStart int64 `db:"date_range_start"`
	DateRangeEnd   int64 `db:"date_range_end"`
	LastUpdated    int64 `db:"last_updated"`

	// Std dev of the actual-forecast surprise, not of spike pips. Defaults
	// to 1 when fewer than 3 events carry both values so downstream z-score
	// division never sees degenerate variance.
	HistoricalStdDev float64 `db:"historical_std_dev"`

	AvgSpikePips    float64 `db:"avg_spike_pips"`
	MedianSpikePips float64 `db:"median_spike_pips"`
	MaxSpikePips    float64 `db:"max_spike_pips"`
	MinSpikePips    float64 `db:"min_spike_pips"`
	StdDevSpikePips float64 `db:"std_dev_spike_pips"`

	SpikeUpCount   int     `db:"spike_up_count"`
	SpikeDownCount int     `db:"spike_down_count"`
	SpikeUpPct     float64 `db:"spike_up_pct"`

	ReversalWithin30minCount int     `db:"reversal_within_30min_count"`
	ReversalWithin30minPct   float64 `db:"reversal_within_30min_pct"`
	ReversalWithin1hrCount   int     `db:"reversal_within_1hr_count"`
	ReversalWithin1hrPct     float64 `db:"reversal_within_1hr_pct"`

	FinalMatchesSpikeCount int `db:"final_matches_spike_count"`

	PatternCounts PatternCounts `db:"-"`

	HasForecastData bool `db:"has_forecast_data"`

	// Conditional blocks are nil, not zero-filled, when their partition has
	// too few samples: omission means "not enough evidence", distinct from
	// a genuine zero.
	BeatStats   *ConditionalStats `db:"-"`
	MissStats   *ConditionalStats `db:"-"`
	InlineStats *ConditionalStats `db:"-"`
}

// PatternCounts is the pattern histogram in fixed order
type PatternCounts struct {
	SpikeReversal int `json:"spike_reversal"`
	Continuation  int `json:"continuation"`
	Fade          int `json:"fade"`
	Range         int `json:"range"`
}

// Get returns the count for a pattern
func (p PatternCounts) Get(pat reaction.Pattern) int {
	switch pat {
	case reaction.PatternSpikeReversal:
		return p.SpikeReversal
	case reaction.PatternContinuation:
		return p.Continuation
	case reaction.PatternFade:
		return p.Fade
	case reaction.PatternRange:
		return p.Range
	}
	return 0
}

// Add increments the count for a pattern
func (p *PatternCounts) Add(pat reaction.Pattern) {
	switch pat {
	case reaction.PatternSpikeReversal:
		p.SpikeReversal++
	case reaction.PatternContinuation:
		p.Continuation++
	case reaction.PatternFade:
		p.Fade++
	case reaction.PatternRange:
		p.Range++
	}
}

// Dominant returns the most frequent pattern; ties resolve to the earliest
// entry in the fixed histogram order.
func (p PatternCounts) Dominant() reaction.Pattern {
	best := reaction.Patterns[0]
	bestCount := p.Get(best)
	for _, pat := range reaction.Patterns[1:] {
		if c := p.Get(pat); c > bestCount {
			best, bestCount = pat, c
		}
	}
	return best
}

// ConditionalStats summarizes one beat/miss/inline partition
type ConditionalStats struct {
	SampleSize             int     `json:"sampleSize"`
	AvgSpikePips           float64 `json:"avgSpikePips"`
	MedianSpikePips        float64 `json:"medianSpikePips"`
	SpikeUpPct             float64 `json:"spikeUpPct"`
	ReversalWithin30minPct float64 `json:"reversalWithin30minPct"`
	DominantPattern        string  `json:"dominantPattern"`
}
