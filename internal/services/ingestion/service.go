package ingestion

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"eventpulse/internal/domain/event"
	"eventpulse/pkg/logger"
)

// Service normalizes raw calendar rows and lands them through the recency
// upsert. Replays and overlapping scrapes are harmless: stale payloads
// no-op at the store.
type Service struct {
	events event.Repository
	log    *logger.Logger
}

// NewService creates a new ingestion service
func NewService(events event.Repository, log *logger.Logger) *Service {
	return &Service{
		events: events,
		log:    log,
	}
}

// RowError records why one row of a batch was rejected
type RowError struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// BatchResult summarizes one ingestion batch
type BatchResult struct {
	BatchID  string     `json:"batchId"`
	Total    int        `json:"total"`
	Ingested int        `json:"ingested"`
	Rejected int        `json:"rejected"`
	Errors   []RowError `json:"errors,omitempty"`
}

// IngestBatch normalizes and upserts a batch of rows. Row-level failures are
// collected, not fatal: one malformed row never sinks the rest of the batch.
func (s *Service) IngestBatch(ctx context.Context, rows []RawCalendarRow) (*BatchResult, error) {
	result := &BatchResult{
		BatchID: uuid.New().String(),
		Total:   len(rows),
	}
	nowMs := time.Now().UnixMilli()

	for i := range rows {
		e, err := Normalize(&rows[i], nowMs)
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, RowError{Index: i, Name: rows[i].Name, Error: err.Error()})
			continue
		}

		if err := s.events.Upsert(ctx, e); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, RowError{Index: i, Name: rows[i].Name, Error: err.Error()})
			s.log.Errorw("Failed to upsert event", "event_id", e.EventID, "error", err)
			continue
		}
		result.Ingested++
	}

	s.log.Infow("Ingested calendar batch",
		"batch_id", result.BatchID,
		"total", humanize.Comma(int64(result.Total)),
		"ingested", humanize.Comma(int64(result.Ingested)),
		"rejected", result.Rejected,
	)

	return result, nil
}

// IngestOne normalizes and upserts a single row
func (s *Service) IngestOne(ctx context.Context, row *RawCalendarRow) (*event.Event, error) {
	e, err := Normalize(row, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if err := s.events.Upsert(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
