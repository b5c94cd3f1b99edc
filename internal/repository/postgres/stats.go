package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"eventpulse/internal/domain/stats"
	"eventpulse/pkg/errors"
)

// Compile-time check that we implement the interface
var _ stats.Repository = (*StatsRepository)(nil)

const statsColumns = `
	event_type, pair, sample_size, date_range_start, date_range_end, last_updated,
	historical_std_dev,
	avg_spike_pips, median_spike_pips, max_spike_pips, min_spike_pips, std_dev_spike_pips,
	spike_up_count, spike_down_count, spike_up_pct,
	reversal_within_30min_count, reversal_within_30min_pct,
	reversal_within_1hr_count, reversal_within_1hr_pct,
	final_matches_spike_count, has_forecast_data,
	pattern_counts, beat_stats, miss_stats, inline_stats`

// StatsRepository implements stats.Repository using sqlx. The pattern
// histogram and conditional blocks are JSONB: they are written and read
// whole, and absent conditionals stay NULL rather than zero-filled.
type StatsRepository struct {
	db DBTX
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// Replace swaps in a freshly recomputed record for (event_type, pair)
func (r *StatsRepository) Replace(ctx context.Context, s *stats.EventTypeStats) error {
	patternsJSON, err := json.Marshal(s.PatternCounts)
	if err != nil {
		return errors.Wrap(err, "failed to marshal pattern counts")
	}
	beatJSON, err := marshalConditional(s.BeatStats)
	if err != nil {
		return err
	}
	missJSON, err := marshalConditional(s.MissStats)
	if err != nil {
		return err
	}
	inlineJSON, err := marshalConditional(s.InlineStats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO event_type_stats (` + statsColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7,
			$8, $9, $10, $11, $12,
			$13, $14, $15,
			$16, $17,
			$18, $19,
			$20, $21,
			$22, $23, $24, $25
		)
		ON CONFLICT (event_type, pair) DO UPDATE SET
			sample_size = EXCLUDED.sample_size,
			date_range_start = EXCLUDED.date_range_start,
			date_range_end = EXCLUDED.date_range_end,
			last_updated = EXCLUDED.last_updated,
			historical_std_dev = EXCLUDED.historical_std_dev,
			avg_spike_pips = EXCLUDED.avg_spike_pips,
			median_spike_pips = EXCLUDED.median_spike_pips,
			max_spike_pips = EXCLUDED.max_spike_pips,
			min_spike_pips = EXCLUDED.min_spike_pips,
			std_dev_spike_pips = EXCLUDED.std_dev_spike_pips,
			spike_up_count = EXCLUDED.spike_up_count,
			spike_down_count = EXCLUDED.spike_down_count,
			spike_up_pct = EXCLUDED.spike_up_pct,
			reversal_within_30min_count = EXCLUDED.reversal_within_30min_count,
			reversal_within_30min_pct = EXCLUDED.reversal_within_30min_pct,
			reversal_within_1hr_count = EXCLUDED.reversal_within_1hr_count,
			reversal_within_1hr_pct = EXCLUDED.reversal_within_1hr_pct,
			final_matches_spike_count = EXCLUDED.final_matches_spike_count,
			has_forecast_data = EXCLUDED.has_forecast_data,
			pattern_counts = EXCLUDED.pattern_counts,
			beat_stats = EXCLUDED.beat_stats,
			miss_stats = EXCLUDED.miss_stats,
			inline_stats = EXCLUDED.inline_stats`

	_, err = r.db.ExecContext(ctx, query,
		s.EventType, s.Pair, s.SampleSize, s.DateRangeStart, s.DateRangeEnd, s.LastUpdated,
		s.HistoricalStdDev,
		s.AvgSpikePips, s.MedianSpikePips, s.MaxSpikePips, s.MinSpikePips, s.StdDevSpikePips,
		s.SpikeUpCount, s.SpikeDownCount, s.SpikeUpPct,
		s.ReversalWithin30minCount, s.ReversalWithin30minPct,
		s.ReversalWithin1hrCount, s.ReversalWithin1hrPct,
		s.FinalMatchesSpikeCount, s.HasForecastData,
		patternsJSON, beatJSON, missJSON, inlineJSON,
	)
	if err != nil {
		return errors.Wrapf(err, "replace stats %s/%s", s.EventType, s.Pair)
	}
	return nil
}

// Get retrieves the statistics record for (event_type, pair)
func (r *StatsRepository) Get(ctx context.Context, eventType, pair string) (*stats.EventTypeStats, error) {
	query := `SELECT ` + statsColumns + ` FROM event_type_stats WHERE event_type = $1 AND pair = $2`

	row := r.db.QueryRowContext(ctx, query, eventType, pair)
	s, err := scanStats(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "stats %s/%s", eventType, pair)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByPair returns all statistics records for one pair, largest samples first
func (r *StatsRepository) ListByPair(ctx context.Context, pair string, limit int) ([]stats.EventTypeStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM event_type_stats
		WHERE pair = $1
		ORDER BY sample_size DESC, event_type ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, pair, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list stats for pair %s", pair)
	}
	defer rows.Close()

	var out []stats.EventTypeStats
	for rows.Next() {
		s, err := scanStats(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func marshalConditional(c *stats.ConditionalStats) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal conditional stats")
	}
	return b, nil
}

func unmarshalConditional(b []byte) (*stats.ConditionalStats, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var c stats.ConditionalStats
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal conditional stats")
	}
	return &c, nil
}

func scanStats(scan func(dest ...interface{}) error) (*stats.EventTypeStats, error) {
	var s stats.EventTypeStats
	var patternsJSON, beatJSON, missJSON, inlineJSON []byte

	err := scan(
		&s.EventType, &s.Pair, &s.SampleSize, &s.DateRangeStart, &s.DateRangeEnd, &s.LastUpdated,
		&s.HistoricalStdDev,
		&s.AvgSpikePips, &s.MedianSpikePips, &s.MaxSpikePips, &s.MinSpikePips, &s.StdDevSpikePips,
		&s.SpikeUpCount, &s.SpikeDownCount, &s.SpikeUpPct,
		&s.ReversalWithin30minCount, &s.ReversalWithin30minPct,
		&s.ReversalWithin1hrCount, &s.ReversalWithin1hrPct,
		&s.FinalMatchesSpikeCount, &s.HasForecastData,
		&patternsJSON, &beatJSON, &missJSON, &inlineJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(patternsJSON) > 0 {
		if err := json.Unmarshal(patternsJSON, &s.PatternCounts); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal pattern counts")
		}
	}
	if s.BeatStats, err = unmarshalConditional(beatJSON); err != nil {
		return nil, err
	}
	if s.MissStats, err = unmarshalConditional(missJSON); err != nil {
		return nil, err
	}
	if s.InlineStats, err = unmarshalConditional(inlineJSON); err != nil {
		return nil, err
	}
	return &s, nil
}
