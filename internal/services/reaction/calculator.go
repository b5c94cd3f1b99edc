package reaction

import (
	"math"
	"time"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/reaction"
	"eventpulse/pkg/errors"
)

const (
	// MinWindowCandles is the minimum window size for a computable reaction
	MinWindowCandles = 10

	// anchorTolerance bounds how far a matched candle may sit from its
	// target offset. The at-event anchor gets a wider band because it is
	// load-bearing; pre/post anchors are advisory.
	anchorTolerance      = 90 * time.Second
	eventAnchorTolerance = 180 * time.Second

	// eventFallbackRadius is the last-resort search radius for the at-event
	// anchor when nothing sits within its tolerance
	eventFallbackRadius = 5 * time.Minute

	// Spike window bounds relative to the event. The pre-event buffer
	// absorbs provider clock skew.
	spikeWindowBefore = 2 * time.Minute
	spikeWindowAfter  = 5 * time.Minute
)

// anchorSet holds the candles matched at each minute offset. Nil entries mean
// no candle sat within tolerance of that offset.
type anchorSet struct {
	minus15 *candle.Candle
	minus5  *candle.Candle
	minus1  *candle.Candle
	atEvent *candle.Candle
	plus5   *candle.Candle
	plus15  *candle.Candle
	plus30  *candle.Candle
	plus60  *candle.Candle
}

// Compute derives the reaction record for one captured window. Pure: the same
// window and timestamp always produce the same record, and nothing here reads
// a clock or touches a store. ComputedAt and the +3h settlement are filled by
// the callers that own those concerns.
func Compute(w *candle.Window, eventTS int64, pip float64) (*reaction.Reaction, error) {
	if len(w.Candles) < MinWindowCandles {
		return nil, errors.Wrapf(errors.ErrInsufficientData,
			"window %s/%s has %d candles, need %d", w.EventID, w.Pair, len(w.Candles), MinWindowCandles)
	}

	a := matchAnchors(w.Candles, eventTS)
	if a.atEvent == nil {
		return nil, errors.Wrapf(errors.ErrMissingEventCandle,
			"no candle within %s of event for %s/%s", eventFallbackRadius, w.EventID, w.Pair)
	}
	priceAtEvent := a.atEvent.Open

	spike := spikeCandles(w.Candles, eventTS)
	if len(spike) == 0 {
		return nil, errors.Wrapf(errors.ErrNoSpikeCandles, "event %s pair %s", w.EventID, w.Pair)
	}

	spikeHigh, spikeLow := spike[0].High, spike[0].Low
	for _, c := range spike[1:] {
		spikeHigh = math.Max(spikeHigh, c.High)
		spikeLow = math.Min(spikeLow, c.Low)
	}

	upMove := (spikeHigh - priceAtEvent) / pip
	downMove := (priceAtEvent - spikeLow) / pip

	direction := reaction.DirectionUp
	magnitude := upMove
	if downMove > upMove {
		direction = reaction.DirectionDown
		magnitude = downMove
	}
	magnitude = roundPips(magnitude)

	timeToSpike := timeToExtremeSec(spike, eventTS, direction, spikeHigh, spikeLow)

	// Settlement chain is monotonic: each point falls back to the previous
	// one, bottoming out at the event-open price.
	settle5 := pickClose(a.plus5, priceAtEvent)
	settle15 := pickClose(a.plus15, settle5)
	settle30 := pickClose(a.plus30, settle15)
	settle60 := pickClose(a.plus60, settle30)

	r := &reaction.Reaction{
		EventID:        w.EventID,
		Pair:           w.Pair,
		EventTimestamp: eventTS,

		PriceAtMinus15m: preEventPrice(priceAtEvent, a.minus15, a.minus5),
		PriceAtMinus5m:  preEventPrice(priceAtEvent, a.minus5, a.minus15),
		PriceAtMinus1m:  preEventPrice(priceAtEvent, a.minus1, a.minus5, a.minus15),
		PriceAtEvent:    priceAtEvent,

		SpikeHigh:          spikeHigh,
		SpikeLow:           spikeLow,
		SpikeDirection:     direction,
		SpikeMagnitudePips: magnitude,
		TimeToSpikeSec:     &timeToSpike,

		PriceAtPlus5m:  &settle5,
		PriceAtPlus15m: &settle15,
		PriceAtPlus30m: &settle30,
		PriceAtPlus1hr: &settle60,
	}

	// Reversal: directional retracement from the spike extreme to the
	// 30-minute settlement, measured against half the spike.
	var pullback float64
	if direction == reaction.DirectionUp {
		pullback = (spikeHigh - settle30) / pip
	} else {
		pullback = (settle30 - spikeLow) / pip
	}
	r.DidReverse = pullback > 0.5*magnitude
	if r.DidReverse {
		rev := roundPips(pullback)
		r.ReversalMagnitudePips = &rev
	}

	finalMove := (settle60 - priceAtEvent) / pip
	r.FinalDirectionMatchesSpike = (direction == reaction.DirectionUp && finalMove > 0) ||
		(direction == reaction.DirectionDown && finalMove < 0)

	r.PatternType = classifyPattern(r.DidReverse, r.FinalDirectionMatchesSpike, finalMove, magnitude)

	return r, nil
}

// classifyPattern applies the fixed precedence order; first match wins
func classifyPattern(didReverse, finalMatches bool, finalMovePips, magnitudePips float64) reaction.Pattern {
	switch {
	case !didReverse && math.Abs(finalMovePips) > 0.5*magnitudePips:
		return reaction.PatternContinuation
	case didReverse && !finalMatches:
		return reaction.PatternSpikeReversal
	case didReverse && finalMatches:
		return reaction.PatternFade
	default:
		return reaction.PatternRange
	}
}

// matchAnchors locates the closest candle within tolerance at each offset
func matchAnchors(cs []candle.Candle, eventTS int64) anchorSet {
	a := anchorSet{
		minus15: closestWithin(cs, eventTS-15*60*1000, anchorTolerance),
		minus5:  closestWithin(cs, eventTS-5*60*1000, anchorTolerance),
		minus1:  closestWithin(cs, eventTS-1*60*1000, anchorTolerance),
		atEvent: closestWithin(cs, eventTS, eventAnchorTolerance),
		plus5:   closestWithin(cs, eventTS+5*60*1000, anchorTolerance),
		plus15:  closestWithin(cs, eventTS+15*60*1000, anchorTolerance),
		plus30:  closestWithin(cs, eventTS+30*60*1000, anchorTolerance),
		plus60:  closestWithin(cs, eventTS+60*60*1000, anchorTolerance),
	}
	if a.atEvent == nil {
		a.atEvent = closestWithin(cs, eventTS, eventFallbackRadius)
	}
	return a
}

// closestWithin returns the candle nearest to target, or nil if none sits
// within the tolerance
func closestWithin(cs []candle.Candle, targetMs int64, tol time.Duration) *candle.Candle {
	tolMs := tol.Milliseconds()
	var best *candle.Candle
	var bestDist int64
	for i := range cs {
		dist := cs[i].Timestamp - targetMs
		if dist < 0 {
			dist = -dist
		}
		if dist > tolMs {
			continue
		}
		if best == nil || dist < bestDist {
			best = &cs[i]
			bestDist = dist
		}
	}
	return best
}

// preEventPrice resolves a pre-event price through its ordered fallback
// chain, bottoming out at the event-open price. Pre-event context is
// advisory, so missing anchors degrade instead of failing.
func preEventPrice(atEvent float64, chain ...*candle.Candle) float64 {
	for _, c := range chain {
		if c != nil {
			return c.Close
		}
	}
	return atEvent
}

// pickClose returns the anchor's close, or the fallback when unmatched
func pickClose(c *candle.Candle, fallback float64) float64 {
	if c != nil {
		return c.Close
	}
	return fallback
}

// spikeCandles returns all candles within [event-2m, event+5m]
func spikeCandles(cs []candle.Candle, eventTS int64) []candle.Candle {
	lo := eventTS - spikeWindowBefore.Milliseconds()
	hi := eventTS + spikeWindowAfter.Milliseconds()

	var out []candle.Candle
	for _, c := range cs {
		if c.Timestamp >= lo && c.Timestamp <= hi {
			out = append(out, c)
		}
	}
	return out
}

// timeToExtremeSec returns the offset of the first spike-window candle that
// touches the spike extreme
func timeToExtremeSec(spike []candle.Candle, eventTS int64, dir reaction.Direction, high, low float64) int64 {
	for _, c := range spike {
		if (dir == reaction.DirectionUp && c.High == high) ||
			(dir == reaction.DirectionDown && c.Low == low) {
			return (c.Timestamp - eventTS) / 1000
		}
	}
	return 0
}

// roundPips rounds a pip magnitude to one decimal place
func roundPips(v float64) float64 {
	return math.Round(v*10) / 10
}
