package pipeline

import (
	"context"
	"time"

	"eventpulse/internal/domain/event"
	"eventpulse/internal/services/window"
	"eventpulse/internal/workers"
)

// WindowFetcher walks released events without complete windows and captures
// their per-pair candle windows. The windows_complete flag flips only when
// every tracked pair is covered, so partially captured events are revisited
// until they finish.
type WindowFetcher struct {
	*workers.BaseWorker
	events     event.Repository
	capture    *window.Service
	cursors    CursorStore
	batchSize  int
	maxBatches int
}

// NewWindowFetcher creates a new window fetcher worker
func NewWindowFetcher(
	events event.Repository,
	capture *window.Service,
	cursors CursorStore,
	batchSize, maxBatches int,
	interval time.Duration,
	enabled bool,
) *WindowFetcher {
	return &WindowFetcher{
		BaseWorker: workers.NewBaseWorker("window_fetcher", interval, enabled),
		events:     events,
		capture:    capture,
		cursors:    cursors,
		batchSize:  batchSize,
		maxBatches: maxBatches,
	}
}

// Run executes one sweep of window fetching
func (w *WindowFetcher) Run(ctx context.Context) error {
	return runSweep(ctx, w.cursors, w.Name(), w.maxBatches, w.Log(), w.processBatch)
}

func (w *WindowFetcher) processBatch(ctx context.Context, cursor string) (batchOutcome, error) {
	after := parseTimestampCursor(cursor)

	pending, err := w.events.ListWindowPending(ctx, after, w.batchSize)
	if err != nil {
		return batchOutcome{}, err
	}
	if len(pending) == 0 {
		return batchOutcome{}, nil
	}

	var out batchOutcome
	for i := range pending {
		e := &pending[i]

		complete, err := w.capture.CaptureEvent(ctx, e)
		if err != nil {
			w.Log().Errorw("Window capture failed", "event_id", e.EventID, "error", err)
			out.failed++
			continue
		}
		if !complete {
			// some pairs are still missing; the event stays pending and the
			// next sweep picks it up again
			out.skipped++
			continue
		}

		if err := w.events.SetWindowsComplete(ctx, e.EventID); err != nil {
			out.failed++
			continue
		}
		out.processed++
	}

	if len(pending) == w.batchSize {
		out.cursor = formatTimestampCursor(pending[len(pending)-1].Timestamp)
	}
	return out, nil
}
