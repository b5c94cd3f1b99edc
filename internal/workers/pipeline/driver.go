package pipeline

import (
	"context"
	"strconv"

	"eventpulse/internal/metrics"
	"eventpulse/pkg/logger"
)

// batchOutcome reports one batch of a sweep. An empty cursor means the sweep
// drained the backlog and can start over next run.
type batchOutcome struct {
	processed int
	skipped   int
	failed    int
	cursor    string
}

// batchFunc handles one batch of items strictly after the cursor
type batchFunc func(ctx context.Context, cursor string) (batchOutcome, error)

// runSweep drives up to maxBatches batches from the persisted cursor,
// checkpointing after every batch. Ordering matters: the cursor is saved only
// after the batch's writes landed, so a crash between batches re-runs at most
// one batch, and every write in it is an idempotent upsert or a monotonic
// flag flip.
func runSweep(ctx context.Context, cursors CursorStore, name string, maxBatches int, log *logger.Logger, fn batchFunc) error {
	cursor, err := cursors.Load(ctx, name)
	if err != nil {
		return err
	}

	for i := 0; i < maxBatches; i++ {
		out, err := fn(ctx, cursor)
		if err != nil {
			return err
		}

		metrics.BatchItems.WithLabelValues(name, "processed").Add(float64(out.processed))
		metrics.BatchItems.WithLabelValues(name, "skipped").Add(float64(out.skipped))
		metrics.BatchItems.WithLabelValues(name, "failed").Add(float64(out.failed))

		if out.processed+out.skipped+out.failed > 0 {
			log.Infow("Pipeline batch finished",
				"pipeline", name,
				"processed", out.processed,
				"skipped", out.skipped,
				"failed", out.failed,
			)
		}

		if out.cursor == "" {
			return cursors.Clear(ctx, name)
		}
		if err := cursors.Save(ctx, name, out.cursor); err != nil {
			return err
		}
		cursor = out.cursor
	}
	return nil
}

// parseTimestampCursor decodes a millisecond cursor; empty or malformed
// cursors restart the sweep from zero
func parseTimestampCursor(cursor string) int64 {
	if cursor == "" {
		return 0
	}
	ms, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil {
		return 0
	}
	return ms
}

func formatTimestampCursor(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
