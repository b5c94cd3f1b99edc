package clickhouse

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"eventpulse/internal/domain/candle"
	"eventpulse/pkg/errors"
)

// Compile-time check
var _ candle.HourlyRepository = (*HourlyCandleRepository)(nil)

// HourlyCandleRepository implements candle.HourlyRepository using ClickHouse.
// The hourly series backs +3h settlement lookups; the table is append-only
// and keyed by (pair, timestamp).
type HourlyCandleRepository struct {
	conn driver.Conn
}

// NewHourlyCandleRepository creates a new hourly candle repository
func NewHourlyCandleRepository(conn driver.Conn) *HourlyCandleRepository {
	return &HourlyCandleRepository{conn: conn}
}

// Insert writes a batch of hourly candles for a pair
func (r *HourlyCandleRepository) Insert(ctx context.Context, pair string, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO hourly_candles (pair, timestamp, open, high, low, close, volume)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, c := range candles {
		err := batch.Append(pair, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return errors.Wrap(err, "failed to append candle")
		}
	}

	return batch.Send()
}

// GetHour returns the candle whose bar-open equals hourStartMs exactly.
// A missing bar is normal for weekends and holidays and surfaces as
// ErrNotFound for the caller to skip.
func (r *HourlyCandleRepository) GetHour(ctx context.Context, pair string, hourStartMs int64) (*candle.Candle, error) {
	var rows []candle.Candle

	sql := `
		SELECT timestamp, open, high, low, close, volume
		FROM hourly_candles
		WHERE pair = $1 AND timestamp = $2
		LIMIT 1`

	if err := r.conn.Select(ctx, &rows, sql, pair, hourStartMs); err != nil {
		return nil, errors.Wrapf(err, "get hourly candle %s@%d", pair, hourStartMs)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "hourly candle %s@%d", pair, hourStartMs)
	}
	return &rows[0], nil
}
