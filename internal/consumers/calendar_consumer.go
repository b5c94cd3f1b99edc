package consumers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"eventpulse/internal/adapters/kafka"
	"eventpulse/internal/metrics"
	"eventpulse/internal/services/ingestion"
	"eventpulse/pkg/errors"
	"eventpulse/pkg/logger"
)

const (
	calendarBatchSize     = 100
	calendarFlushInterval = 5 * time.Second
)

// messageSource is the slice of the Kafka adapter the calendar consumer
// needs: an uncommitted fetch loop plus explicit offset commits.
type messageSource interface {
	Consume(ctx context.Context, handler kafka.MessageHandler) error
	Commit(ctx context.Context, msgs ...kafkago.Message) error
}

type batchIngestor interface {
	IngestBatch(ctx context.Context, rows []ingestion.RawCalendarRow) (*ingestion.BatchResult, error)
}

// CalendarConsumer drains scraped calendar rows from Kafka into the event
// store. Rows accumulate into batches and flush on size or interval; offsets
// commit only after a batch lands, so a crash mid-batch redelivers the rows
// and the recency upsert downstream absorbs the duplicates.
type CalendarConsumer struct {
	consumer messageSource
	ingest   batchIngestor
	log      *logger.Logger

	mu      sync.Mutex
	batch   []ingestion.RawCalendarRow
	pending []kafkago.Message
}

// NewCalendarConsumer creates a new calendar consumer
func NewCalendarConsumer(
	consumer messageSource,
	ingest batchIngestor,
	log *logger.Logger,
) *CalendarConsumer {
	return &CalendarConsumer{
		consumer: consumer,
		ingest:   ingest,
		log:      log,
	}
}

// Start consumes until the context is cancelled, then flushes what remains
func (c *CalendarConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting calendar consumer...")

	flushCtx, cancelFlusher := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.flushLoop(flushCtx)
	}()

	err := c.consumer.Consume(ctx, c.handleMessage)

	cancelFlusher()
	wg.Wait()

	// flush stragglers with a fresh context; the consume context is done
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c.flush(shutdownCtx)

	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *CalendarConsumer) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(calendarFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

// handleMessage decodes one Kafka message: either a single row object or an
// array of rows from a scraper that batches its own output. The message joins
// the pending set either way; a poison message's offset is absorbed by the
// next successful commit rather than refetched forever.
func (c *CalendarConsumer) handleMessage(_ context.Context, msg kafkago.Message) error {
	rows, err := decodeRows(msg.Value)
	if err != nil {
		metrics.KafkaMessages.WithLabelValues(kafka.TopicCalendarRows, "error").Inc()
	} else {
		metrics.KafkaMessages.WithLabelValues(kafka.TopicCalendarRows, "success").Inc()
	}

	c.mu.Lock()
	c.batch = append(c.batch, rows...)
	c.pending = append(c.pending, msg)
	full := len(c.batch) >= calendarBatchSize
	c.mu.Unlock()

	if full {
		c.flush(context.Background())
	}
	return err
}

// flush stores the accumulated rows, then commits their offsets. A failed
// store puts everything back so the next flush retries it.
func (c *CalendarConsumer) flush(ctx context.Context) {
	c.mu.Lock()
	rows, pending := c.batch, c.pending
	c.batch, c.pending = nil, nil
	c.mu.Unlock()

	if len(rows) > 0 {
		result, err := c.ingest.IngestBatch(ctx, rows)
		if err != nil {
			c.log.Errorw("Calendar batch ingestion failed", "rows", len(rows), "error", err)
			c.mu.Lock()
			c.batch = append(rows, c.batch...)
			c.pending = append(pending, c.pending...)
			c.mu.Unlock()
			return
		}

		metrics.EventsIngested.WithLabelValues("kafka", "ingested").Add(float64(result.Ingested))
		metrics.EventsIngested.WithLabelValues("kafka", "rejected").Add(float64(result.Rejected))
	}

	if len(pending) > 0 {
		if err := c.consumer.Commit(ctx, pending...); err != nil {
			c.log.Errorw("Calendar offset commit failed", "messages", len(pending), "error", err)
		}
	}
}

func decodeRows(data []byte) ([]ingestion.RawCalendarRow, error) {
	trimmed := firstNonSpace(data)
	if trimmed == '[' {
		var rows []ingestion.RawCalendarRow
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, errors.Wrap(err, "unmarshal calendar row array")
		}
		return rows, nil
	}

	var row ingestion.RawCalendarRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, errors.Wrap(err, "unmarshal calendar row")
	}
	return []ingestion.RawCalendarRow{row}, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
