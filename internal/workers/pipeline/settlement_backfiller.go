package pipeline

import (
	"context"
	"time"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/reaction"
	reactionsvc "eventpulse/internal/services/reaction"
	"eventpulse/internal/workers"
	"eventpulse/pkg/errors"
)

// SettlementBackfiller fills the +3h settlement price on reactions once the
// hourly bar covering event+3h exists. Reactions whose bar is genuinely
// missing (weekend boundary, feed outage) are skipped and retried on later
// sweeps until the bar appears.
type SettlementBackfiller struct {
	*workers.BaseWorker
	reactions  reaction.Repository
	hourly     candle.HourlyRepository
	cursors    CursorStore
	batchSize  int
	maxBatches int
}

// NewSettlementBackfiller creates a new settlement backfiller worker
func NewSettlementBackfiller(
	reactions reaction.Repository,
	hourly candle.HourlyRepository,
	cursors CursorStore,
	batchSize, maxBatches int,
	interval time.Duration,
	enabled bool,
) *SettlementBackfiller {
	return &SettlementBackfiller{
		BaseWorker: workers.NewBaseWorker("settlement_backfiller", interval, enabled),
		reactions:  reactions,
		hourly:     hourly,
		cursors:    cursors,
		batchSize:  batchSize,
		maxBatches: maxBatches,
	}
}

// Run executes one sweep of settlement backfilling
func (b *SettlementBackfiller) Run(ctx context.Context) error {
	return runSweep(ctx, b.cursors, b.Name(), b.maxBatches, b.Log(), b.processBatch)
}

func (b *SettlementBackfiller) processBatch(ctx context.Context, cursor string) (batchOutcome, error) {
	after := parseTimestampCursor(cursor)
	nowMs := time.Now().UnixMilli()

	pending, err := b.reactions.ListSettlementPending(ctx, after, settlementCutoff(nowMs), b.batchSize)
	if err != nil {
		return batchOutcome{}, err
	}
	if len(pending) == 0 {
		return batchOutcome{}, nil
	}

	var out batchOutcome
	for i := range pending {
		r := &pending[i]

		price, err := reactionsvc.ResolvePlus3hr(ctx, b.hourly, r.Pair, r.EventTimestamp)
		if errors.Is(err, errors.ErrNotFound) {
			out.skipped++
			continue
		}
		if err != nil {
			b.Log().Errorw("Settlement lookup failed",
				"event_id", r.EventID, "pair", r.Pair, "error", err)
			out.failed++
			continue
		}

		if err := b.reactions.SetPlus3hr(ctx, r.EventID, r.Pair, price); err != nil {
			out.failed++
			continue
		}
		out.processed++
	}

	if len(pending) == b.batchSize {
		out.cursor = formatTimestampCursor(pending[len(pending)-1].EventTimestamp)
	}
	return out, nil
}

// settlementCutoff bounds the sweep to events old enough for the +3h hourly
// bar to have closed and replicated
func settlementCutoff(nowMs int64) int64 {
	return nowMs - (4 * time.Hour).Milliseconds()
}
