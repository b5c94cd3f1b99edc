package window

import (
	"context"
	"time"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/event"
	"eventpulse/internal/metrics"
	"eventpulse/internal/providers/candles"
	"eventpulse/pkg/logger"
)

const (
	// Capture bounds around an event. The extra minute on each side keeps
	// the -15m and +60m anchors inside the window after tolerance matching.
	captureBefore = 16 * time.Minute
	captureAfter  = 61 * time.Minute
)

// Service captures per-pair candle windows around released events. Capture is
// resumable: pairs that already have a window are skipped, so a partially
// captured event finishes on the next pass instead of refetching everything.
type Service struct {
	events   event.Repository
	windows  candle.WindowRepository
	provider candles.Provider
	clock    *MarketClock
	pairs    []string
	log      *logger.Logger
}

// NewService creates a new window capture service
func NewService(
	events event.Repository,
	windows candle.WindowRepository,
	provider candles.Provider,
	clock *MarketClock,
	pairs []string,
	log *logger.Logger,
) *Service {
	return &Service{
		events:   events,
		windows:  windows,
		provider: provider,
		clock:    clock,
		pairs:    pairs,
		log:      log,
	}
}

// CaptureEvent fetches missing pair windows for one event and reports whether
// the event is now fully captured. The completion flag itself is flipped by
// the caller so flag writes stay in one place.
func (s *Service) CaptureEvent(ctx context.Context, e *event.Event) (bool, error) {
	corrected := event.CorrectSkew(e.Source, e.Timestamp)

	// No market at the release instant, no candles: the event is complete by
	// vacuity. TradingDay rules out whole closed days, Open catches releases
	// inside the weekend gap of an otherwise tradable day (late Friday).
	if !s.clock.TradingDay(corrected) || !s.clock.Open(corrected) {
		s.log.Infow("Event fell outside market hours, marking complete",
			"event_id", e.EventID, "timestamp", corrected)
		return true, nil
	}

	have, err := s.windows.PairsWithWindows(ctx, e.EventID)
	if err != nil {
		return false, err
	}
	captured := make(map[string]bool, len(have))
	for _, p := range have {
		captured[p] = true
	}

	fromMs := corrected - captureBefore.Milliseconds()
	toMs := corrected + captureAfter.Milliseconds()

	complete := true
	for _, pair := range s.pairs {
		if captured[pair] {
			continue
		}

		res := s.fetchPair(ctx, e, pair, corrected, fromMs, toMs)
		if res.Err != nil {
			s.log.Warnw("Window fetch failed",
				"event_id", e.EventID, "pair", pair, "error", res.Err)
			complete = false
			continue
		}
		if len(res.Candles) == 0 {
			// provider had nothing for the range; retry on a later pass
			complete = false
			continue
		}
	}

	return complete, nil
}

// fetchPair fetches and stores one pair's window
func (s *Service) fetchPair(ctx context.Context, e *event.Event, pair string, eventTS, fromMs, toMs int64) candles.FetchResult {
	cs, err := s.provider.FetchMinute(ctx, pair, fromMs, toMs)
	if err != nil {
		return candles.FetchResult{Pair: pair, Err: err}
	}
	if len(cs) == 0 {
		return candles.FetchResult{Pair: pair}
	}

	w := &candle.Window{
		EventID:        e.EventID,
		Pair:           pair,
		EventTimestamp: eventTS,
		WindowStart:    fromMs,
		WindowEnd:      toMs,
		Candles:        cs,
	}
	if err := s.windows.Upsert(ctx, w); err != nil {
		return candles.FetchResult{Pair: pair, Err: err}
	}
	metrics.WindowsCaptured.WithLabelValues(pair).Inc()

	return candles.FetchResult{Pair: pair, Candles: cs}
}
