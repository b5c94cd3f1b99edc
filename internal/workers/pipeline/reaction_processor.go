package pipeline

import (
	"context"
	"time"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/internal/metrics"
	reactionsvc "eventpulse/internal/services/reaction"
	"eventpulse/internal/workers"
	"eventpulse/pkg/errors"
)

// ReactionProcessor computes reactions for events whose windows are complete.
// Calculator failures are permanent for a given window (the candles will not
// change), so a failed pair still counts toward the event's completion and
// the reactions_calculated flag flips exactly once.
type ReactionProcessor struct {
	*workers.BaseWorker
	events     event.Repository
	windows    candle.WindowRepository
	reactions  reaction.Repository
	cursors    CursorStore
	batchSize  int
	maxBatches int
}

// NewReactionProcessor creates a new reaction processor worker
func NewReactionProcessor(
	events event.Repository,
	windows candle.WindowRepository,
	reactions reaction.Repository,
	cursors CursorStore,
	batchSize, maxBatches int,
	interval time.Duration,
	enabled bool,
) *ReactionProcessor {
	return &ReactionProcessor{
		BaseWorker: workers.NewBaseWorker("reaction_processor", interval, enabled),
		events:     events,
		windows:    windows,
		reactions:  reactions,
		cursors:    cursors,
		batchSize:  batchSize,
		maxBatches: maxBatches,
	}
}

// Run executes one sweep of reaction processing
func (p *ReactionProcessor) Run(ctx context.Context) error {
	return runSweep(ctx, p.cursors, p.Name(), p.maxBatches, p.Log(), p.processBatch)
}

func (p *ReactionProcessor) processBatch(ctx context.Context, cursor string) (batchOutcome, error) {
	after := parseTimestampCursor(cursor)

	pending, err := p.events.ListReactionPending(ctx, after, p.batchSize)
	if err != nil {
		return batchOutcome{}, err
	}
	if len(pending) == 0 {
		return batchOutcome{}, nil
	}

	var out batchOutcome
	for i := range pending {
		e := &pending[i]

		done, err := p.processEvent(ctx, e)
		if err != nil {
			p.Log().Errorw("Reaction processing failed", "event_id", e.EventID, "error", err)
			out.failed++
			continue
		}
		if !done {
			out.skipped++
			continue
		}
		if err := p.events.SetReactionsCalculated(ctx, e.EventID); err != nil {
			out.failed++
			continue
		}
		out.processed++
	}

	if len(pending) == p.batchSize {
		out.cursor = formatTimestampCursor(pending[len(pending)-1].Timestamp)
	}
	return out, nil
}

// processEvent computes reactions for every pair window of one event and
// reports whether the event is fully handled. Transient store errors abort;
// calculator rejections are terminal per pair and do not.
func (p *ReactionProcessor) processEvent(ctx context.Context, e *event.Event) (bool, error) {
	pairs, err := p.windows.PairsWithWindows(ctx, e.EventID)
	if err != nil {
		return false, err
	}

	// windows_complete with no windows means a closed-market day; nothing
	// to compute. A reaction count matching the window count means an
	// earlier pass already finished the event.
	count, err := p.reactions.CountByEvent(ctx, e.EventID)
	if err != nil {
		return false, err
	}
	if count >= len(pairs) {
		return true, nil
	}

	for _, pair := range pairs {
		if _, err := p.reactions.Get(ctx, e.EventID, pair); err == nil {
			continue
		} else if !errors.Is(err, errors.ErrNotFound) {
			return false, err
		}

		w, err := p.windows.Get(ctx, e.EventID, pair)
		if err != nil {
			return false, err
		}

		rec, err := reactionsvc.Compute(w, w.EventTimestamp, reaction.PipSize(pair))
		if err != nil {
			if errors.Is(err, errors.ErrInsufficientData) ||
				errors.Is(err, errors.ErrMissingEventCandle) ||
				errors.Is(err, errors.ErrNoSpikeCandles) {
				p.Log().Warnw("Window not computable",
					"event_id", e.EventID, "pair", pair, "reason", err)
				continue
			}
			return false, err
		}

		rec.ComputedAt = time.Now().UnixMilli()
		if err := p.reactions.Upsert(ctx, rec); err != nil {
			return false, err
		}
		metrics.ReactionsComputed.WithLabelValues(string(rec.PatternType)).Inc()
	}

	return true, nil
}
