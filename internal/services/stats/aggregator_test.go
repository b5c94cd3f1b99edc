package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/pkg/errors"
)

var aggNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func rx(id string, ts int64, dir reaction.Direction, mag float64, didReverse bool, pat reaction.Pattern) reaction.Reaction {
	return reaction.Reaction{
		EventID:            id,
		Pair:               "EURUSD",
		EventTimestamp:     ts,
		SpikeDirection:     dir,
		SpikeMagnitudePips: mag,
		DidReverse:         didReverse,
		PatternType:        pat,
	}
}

func evWith(id string, actual, forecast float64) *event.Event {
	return &event.Event{
		EventID:  id,
		Actual:   decimal.NewNullDecimal(decimal.NewFromFloat(actual)),
		Forecast: decimal.NewNullDecimal(decimal.NewFromFloat(forecast)),
	}
}

func TestAggregateBasics(t *testing.T) {
	day := int64(24 * 60 * 60 * 1000)
	reactions := []reaction.Reaction{
		rx("e1", aggNow-5*day, reaction.DirectionUp, 40, true, reaction.PatternSpikeReversal),
		rx("e2", aggNow-4*day, reaction.DirectionUp, 60, false, reaction.PatternContinuation),
		rx("e3", aggNow-3*day, reaction.DirectionDown, 20, false, reaction.PatternRange),
		rx("e4", aggNow-2*day, reaction.DirectionUp, 80, true, reaction.PatternFade),
	}

	s, err := Aggregate("NFP", "EURUSD", reactions, nil, aggNow)
	require.NoError(t, err)

	assert.Equal(t, "NFP", s.EventType)
	assert.Equal(t, "EURUSD", s.Pair)
	assert.Equal(t, 4, s.SampleSize)
	assert.Equal(t, aggNow-5*day, s.DateRangeStart)
	assert.Equal(t, aggNow-2*day, s.DateRangeEnd)
	assert.Equal(t, aggNow, s.LastUpdated)

	assert.InDelta(t, 50.0, s.AvgSpikePips, 0.01)
	assert.InDelta(t, 50.0, s.MedianSpikePips, 0.01)
	assert.InDelta(t, 80.0, s.MaxSpikePips, 0.01)
	assert.InDelta(t, 20.0, s.MinSpikePips, 0.01)

	assert.Equal(t, 3, s.SpikeUpCount)
	assert.Equal(t, 1, s.SpikeDownCount)
	assert.InDelta(t, 75.0, s.SpikeUpPct, 0.01)

	assert.Equal(t, 2, s.ReversalWithin30minCount)
	assert.InDelta(t, 50.0, s.ReversalWithin30minPct, 0.01)

	assert.Equal(t, 1, s.PatternCounts.SpikeReversal)
	assert.Equal(t, 1, s.PatternCounts.Continuation)
	assert.Equal(t, 1, s.PatternCounts.Fade)
	assert.Equal(t, 1, s.PatternCounts.Range)

	// no events supplied, so no forecast context
	assert.False(t, s.HasForecastData)
	assert.InDelta(t, 1.0, s.HistoricalStdDev, 1e-9)
	assert.Nil(t, s.BeatStats)
	assert.Nil(t, s.MissStats)
	assert.Nil(t, s.InlineStats)
}

func TestAggregateTooFewReactions(t *testing.T) {
	reactions := []reaction.Reaction{
		rx("e1", aggNow, reaction.DirectionUp, 40, false, reaction.PatternRange),
		rx("e2", aggNow, reaction.DirectionUp, 50, false, reaction.PatternRange),
	}

	_, err := Aggregate("NFP", "EURUSD", reactions, nil, aggNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientSampleSize))
}

func TestAggregateOneHourReversalIsCumulative(t *testing.T) {
	settled := 1.1020
	reactions := []reaction.Reaction{
		// reversed by 30 minutes
		rx("e1", aggNow, reaction.DirectionUp, 50, true, reaction.PatternFade),
		// held at 30 minutes, gave back 30 of 50 pips by the hour
		func() reaction.Reaction {
			r := rx("e2", aggNow, reaction.DirectionUp, 50, false, reaction.PatternContinuation)
			r.SpikeHigh = 1.1050
			r.PriceAtPlus1hr = &settled
			return r
		}(),
		// never reversed
		rx("e3", aggNow, reaction.DirectionDown, 40, false, reaction.PatternContinuation),
	}

	s, err := Aggregate("CPI_YOY", "EURUSD", reactions, nil, aggNow)
	require.NoError(t, err)

	assert.Equal(t, 1, s.ReversalWithin30minCount)
	assert.Equal(t, 2, s.ReversalWithin1hrCount)
	assert.InDelta(t, 66.67, s.ReversalWithin1hrPct, 0.01)
}

func TestAggregateConditionalGate(t *testing.T) {
	var reactions []reaction.Reaction
	events := make(map[string]*event.Event)

	// five clear beats and four clear misses against a forecast of 200
	ids := []string{"b1", "b2", "b3", "b4", "b5"}
	for i, id := range ids {
		reactions = append(reactions, rx(id, aggNow+int64(i), reaction.DirectionUp, 50+float64(i), false, reaction.PatternContinuation))
		events[id] = evWith(id, 260, 200)
	}
	for i, id := range []string{"m1", "m2", "m3", "m4"} {
		reactions = append(reactions, rx(id, aggNow+int64(100+i), reaction.DirectionDown, 30, true, reaction.PatternSpikeReversal))
		events[id] = evWith(id, 140, 200)
	}

	s, err := Aggregate("NFP", "EURUSD", reactions, events, aggNow)
	require.NoError(t, err)

	assert.True(t, s.HasForecastData)

	require.NotNil(t, s.BeatStats)
	assert.Equal(t, 5, s.BeatStats.SampleSize)
	assert.InDelta(t, 52.0, s.BeatStats.AvgSpikePips, 0.01)
	assert.InDelta(t, 100.0, s.BeatStats.SpikeUpPct, 0.01)
	assert.Equal(t, string(reaction.PatternContinuation), s.BeatStats.DominantPattern)

	// four misses sit below the conditional gate
	assert.Nil(t, s.MissStats)
	assert.Nil(t, s.InlineStats)
}

func TestAggregateHistoricalStdDev(t *testing.T) {
	reactions := []reaction.Reaction{
		rx("e1", aggNow, reaction.DirectionUp, 40, false, reaction.PatternRange),
		rx("e2", aggNow, reaction.DirectionUp, 50, false, reaction.PatternRange),
		rx("e3", aggNow, reaction.DirectionUp, 60, false, reaction.PatternRange),
	}

	// two forecast pairs: below the floor, the flag stays off and the
	// divisor stays at the neutral default
	events := map[string]*event.Event{
		"e1": evWith("e1", 210, 200),
		"e2": evWith("e2", 190, 200),
	}
	s, err := Aggregate("NFP", "EURUSD", reactions, events, aggNow)
	require.NoError(t, err)
	assert.False(t, s.HasForecastData)
	assert.InDelta(t, 1.0, s.HistoricalStdDev, 1e-9)

	// the third pair flips the flag and unlocks a real sample std dev
	events["e3"] = evWith("e3", 230, 200)
	s, err = Aggregate("NFP", "EURUSD", reactions, events, aggNow)
	require.NoError(t, err)
	assert.True(t, s.HasForecastData)
	// surprises 10, -10, 30 have sample std dev 20
	assert.InDelta(t, 20.0, s.HistoricalStdDev, 0.01)
}

func TestDominantPatternTieOrder(t *testing.T) {
	reactions := []reaction.Reaction{
		rx("e1", aggNow, reaction.DirectionUp, 40, true, reaction.PatternFade),
		rx("e2", aggNow, reaction.DirectionUp, 50, true, reaction.PatternSpikeReversal),
		rx("e3", aggNow, reaction.DirectionDown, 60, false, reaction.PatternContinuation),
	}

	s, err := Aggregate("GDP_QOQ", "USDJPY", reactions, nil, aggNow)
	require.NoError(t, err)

	// three-way tie resolves to the histogram's first entry
	assert.Equal(t, reaction.PatternSpikeReversal, s.PatternCounts.Dominant())
}

func TestSurpriseZScore(t *testing.T) {
	assert.InDelta(t, 2.0, SurpriseZScore(40, 20), 1e-9)
	assert.InDelta(t, 40.0, SurpriseZScore(40, 0), 1e-9)
	assert.InDelta(t, -1.5, SurpriseZScore(-30, 20), 1e-9)
}
