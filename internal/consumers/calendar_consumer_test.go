package consumers

import (
	"context"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpulse/internal/adapters/kafka"
	"eventpulse/internal/services/ingestion"
	"eventpulse/pkg/logger"
)

type fakeSource struct {
	committed []kafkago.Message
}

func (f *fakeSource) Consume(context.Context, kafka.MessageHandler) error { return nil }

func (f *fakeSource) Commit(_ context.Context, msgs ...kafkago.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

type fakeIngestor struct {
	fail    bool
	batches [][]ingestion.RawCalendarRow
}

func (f *fakeIngestor) IngestBatch(_ context.Context, rows []ingestion.RawCalendarRow) (*ingestion.BatchResult, error) {
	if f.fail {
		return nil, assert.AnError
	}
	f.batches = append(f.batches, rows)
	return &ingestion.BatchResult{Total: len(rows), Ingested: len(rows)}, nil
}

func calendarMsg(offset int64, body string) kafkago.Message {
	return kafkago.Message{Topic: kafka.TopicCalendarRows, Offset: offset, Value: []byte(body)}
}

func TestCalendarConsumerCommitsAfterFlush(t *testing.T) {
	src := &fakeSource{}
	ing := &fakeIngestor{}
	c := NewCalendarConsumer(src, ing, logger.Get())

	ctx := context.Background()
	require.NoError(t, c.handleMessage(ctx, calendarMsg(1,
		`{"name":"CPI y/y","currency":"USD","timestamp":1709904600000}`)))
	require.NoError(t, c.handleMessage(ctx, calendarMsg(2,
		`{"name":"Retail Sales m/m","currency":"GBP","timestamp":1709904600000}`)))

	// nothing committed until the rows are stored
	assert.Empty(t, src.committed)

	c.flush(ctx)
	require.Len(t, ing.batches, 1)
	assert.Len(t, ing.batches[0], 2)
	require.Len(t, src.committed, 2)
	assert.Equal(t, int64(2), src.committed[1].Offset)
}

func TestCalendarConsumerRetainsBatchOnStoreFailure(t *testing.T) {
	src := &fakeSource{}
	ing := &fakeIngestor{fail: true}
	c := NewCalendarConsumer(src, ing, logger.Get())

	ctx := context.Background()
	require.NoError(t, c.handleMessage(ctx, calendarMsg(7,
		`{"name":"CPI y/y","currency":"USD","timestamp":1709904600000}`)))

	// a failed store keeps the rows and their offsets for the next flush
	c.flush(ctx)
	assert.Empty(t, src.committed)
	assert.Empty(t, ing.batches)

	ing.fail = false
	c.flush(ctx)
	require.Len(t, ing.batches, 1)
	require.Len(t, src.committed, 1)
	assert.Equal(t, int64(7), src.committed[0].Offset)
}

func TestDecodeRowsSingleObject(t *testing.T) {
	data := []byte(`{"name":"CPI y/y","currency":"USD","timestamp":1709904600000,"impact":"high","actual":"3.2%"}`)

	rows, err := decodeRows(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CPI y/y", rows[0].Name)
	assert.Equal(t, "3.2%", rows[0].Actual)
}

func TestDecodeRowsArray(t *testing.T) {
	data := []byte(` [
		{"name":"CPI y/y","currency":"USD","timestamp":1709904600000},
		{"name":"Retail Sales m/m","currency":"GBP","timestamp":1709904600000}
	]`)

	rows, err := decodeRows(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Retail Sales m/m", rows[1].Name)
}

func TestDecodeRowsMalformed(t *testing.T) {
	_, err := decodeRows([]byte(`{"name":`))
	require.Error(t, err)

	_, err = decodeRows([]byte(`[{"name"]`))
	require.Error(t, err)
}
