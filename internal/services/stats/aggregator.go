package stats

import (
	"math"
	"sort"

	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/internal/domain/stats"
	"eventpulse/pkg/errors"
)

const (
	// MinAggregateSample is the fewest reactions a group needs before any
	// statistics record is produced for it
	MinAggregateSample = 3

	// MinConditionalSample gates each beat/miss/inline sub-block separately
	MinConditionalSample = 5

	// minForecastSamples is how many surprise observations the historical
	// std dev needs before it replaces the neutral default of 1
	minForecastSamples = 3
)

// Aggregate folds every reaction in one (event type, pair) group into a
// statistics record. Pure and wholesale: the same inputs always yield the
// same record, and the caller replaces the stored record in one write.
// Events are keyed by event ID and supply the forecast context; reactions
// without a matching event still count toward the price statistics.
func Aggregate(eventType, pair string, reactions []reaction.Reaction, events map[string]*event.Event, nowMs int64) (*stats.EventTypeStats, error) {
	if len(reactions) < MinAggregateSample {
		return nil, errors.Wrapf(errors.ErrInsufficientSampleSize,
			"%s/%s has %d reactions, need %d", eventType, pair, len(reactions), MinAggregateSample)
	}

	pip := reaction.PipSize(pair)

	s := &stats.EventTypeStats{
		EventType:      eventType,
		Pair:           pair,
		SampleSize:     len(reactions),
		DateRangeStart: reactions[0].EventTimestamp,
		DateRangeEnd:   reactions[0].EventTimestamp,
		LastUpdated:    nowMs,
	}

	spikes := make([]float64, 0, len(reactions))
	for i := range reactions {
		r := &reactions[i]
		spikes = append(spikes, r.SpikeMagnitudePips)

		if r.EventTimestamp < s.DateRangeStart {
			s.DateRangeStart = r.EventTimestamp
		}
		if r.EventTimestamp > s.DateRangeEnd {
			s.DateRangeEnd = r.EventTimestamp
		}

		if r.SpikeDirection == reaction.DirectionUp {
			s.SpikeUpCount++
		} else {
			s.SpikeDownCount++
		}
		if r.DidReverse {
			s.ReversalWithin30minCount++
		}
		if reversedWithinHour(r, pip) {
			s.ReversalWithin1hrCount++
		}
		if r.FinalDirectionMatchesSpike {
			s.FinalMatchesSpikeCount++
		}
		s.PatternCounts.Add(r.PatternType)
	}

	s.AvgSpikePips = mean(spikes)
	s.MedianSpikePips = median(spikes)
	s.MaxSpikePips = maxOf(spikes)
	s.MinSpikePips = minOf(spikes)
	s.StdDevSpikePips = stdDev(spikes)

	total := float64(len(reactions))
	s.SpikeUpPct = float64(s.SpikeUpCount) / total * 100
	s.ReversalWithin30minPct = float64(s.ReversalWithin30minCount) / total * 100
	s.ReversalWithin1hrPct = float64(s.ReversalWithin1hrCount) / total * 100

	surprises := collectSurprises(reactions, events)
	s.HasForecastData = len(surprises) >= minForecastSamples
	if s.HasForecastData {
		s.HistoricalStdDev = stdDev(surprises)
	} else {
		s.HistoricalStdDev = 1
	}

	beat, miss, inline := partitionByOutcome(reactions, events, eventType)
	s.BeatStats = conditional(beat, pip)
	s.MissStats = conditional(miss, pip)
	s.InlineStats = conditional(inline, pip)

	return s, nil
}

// reversedWithinHour applies the half-spike retracement test cumulatively:
// a group member counts if it reversed by the 30-minute mark or by the
// 1-hour settlement.
func reversedWithinHour(r *reaction.Reaction, pip float64) bool {
	if r.DidReverse {
		return true
	}
	if r.PriceAtPlus1hr == nil {
		return false
	}
	return r.ReversedBy(*r.PriceAtPlus1hr, pip)
}

// collectSurprises returns actual-forecast for every distinct event in the
// group that parsed both values
func collectSurprises(reactions []reaction.Reaction, events map[string]*event.Event) []float64 {
	seen := make(map[string]struct{}, len(reactions))
	var out []float64
	for i := range reactions {
		id := reactions[i].EventID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ev, ok := events[id]
		if !ok {
			continue
		}
		if surprise, ok := ev.Surprise(); ok {
			out = append(out, surprise)
		}
	}
	return out
}

// partitionByOutcome splits reactions by their event's beat/miss/inline
// classification. Reactions whose event is unknown or lacks a forecast pair
// fall out of every partition.
func partitionByOutcome(reactions []reaction.Reaction, events map[string]*event.Event, eventType string) (beat, miss, inline []reaction.Reaction) {
	for i := range reactions {
		ev, ok := events[reactions[i].EventID]
		if !ok || !ev.HasForecastPair() {
			continue
		}
		outcome := event.ClassifyOutcome(
			ev.Actual.Decimal.InexactFloat64(),
			ev.Forecast.Decimal.InexactFloat64(),
			eventType,
		)
		switch outcome {
		case event.OutcomeBeat:
			beat = append(beat, reactions[i])
		case event.OutcomeMiss:
			miss = append(miss, reactions[i])
		case event.OutcomeInline:
			inline = append(inline, reactions[i])
		}
	}
	return beat, miss, inline
}

// conditional summarizes one outcome partition, or nil below the sample gate
func conditional(rs []reaction.Reaction, pip float64) *stats.ConditionalStats {
	if len(rs) < MinConditionalSample {
		return nil
	}

	spikes := make([]float64, 0, len(rs))
	var upCount, reversed int
	var patterns stats.PatternCounts
	for i := range rs {
		spikes = append(spikes, rs[i].SpikeMagnitudePips)
		if rs[i].SpikeDirection == reaction.DirectionUp {
			upCount++
		}
		if rs[i].DidReverse {
			reversed++
		}
		patterns.Add(rs[i].PatternType)
	}

	total := float64(len(rs))
	return &stats.ConditionalStats{
		SampleSize:             len(rs),
		AvgSpikePips:           mean(spikes),
		MedianSpikePips:        median(spikes),
		SpikeUpPct:             float64(upCount) / total * 100,
		ReversalWithin30minPct: float64(reversed) / total * 100,
		DominantPattern:        string(patterns.Dominant()),
	}
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func median(vs []float64) float64 {
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func maxOf(vs []float64) float64 {
	out := vs[0]
	for _, v := range vs[1:] {
		out = math.Max(out, v)
	}
	return out
}

func minOf(vs []float64) float64 {
	out := vs[0]
	for _, v := range vs[1:] {
		out = math.Min(out, v)
	}
	return out
}

// stdDev is the sample standard deviation; zero for fewer than two values
func stdDev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	var sum float64
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)-1))
}
