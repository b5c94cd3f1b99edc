package testsupport

import (
	"testing"

	"github.com/jmoiron/sqlx"
)

// pgSchema creates the Postgres tables the repositories read and write.
// Applied inside the test transaction so it rolls back with everything else.
var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		name TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		timestamp_ms BIGINT NOT NULL,
		scraped_at BIGINT NOT NULL,
		status TEXT NOT NULL,
		impact TEXT NOT NULL,
		day_of_week TEXT NOT NULL DEFAULT '',
		trading_session TEXT NOT NULL DEFAULT '',
		actual_raw TEXT,
		forecast_raw TEXT,
		previous_raw TEXT,
		actual NUMERIC,
		forecast NUMERIC,
		previous NUMERIC,
		deviation NUMERIC,
		deviation_pct NUMERIC,
		raw_outcome TEXT,
		surprise_z_score DOUBLE PRECISION,
		related_event_id TEXT,
		is_follow_up BOOLEAN NOT NULL DEFAULT false,
		windows_complete BOOLEAN NOT NULL DEFAULT false,
		reactions_calculated BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_events_pending ON events (timestamp_ms) WHERE status = 'released' AND windows_complete = false`,

	`CREATE TABLE IF NOT EXISTS event_windows (
		event_id TEXT NOT NULL,
		pair TEXT NOT NULL,
		event_timestamp BIGINT NOT NULL,
		window_start BIGINT NOT NULL,
		window_end BIGINT NOT NULL,
		candles JSONB NOT NULL,
		PRIMARY KEY (event_id, pair)
	)`,

	`CREATE TABLE IF NOT EXISTS reactions (
		event_id TEXT NOT NULL,
		pair TEXT NOT NULL,
		event_timestamp BIGINT NOT NULL,
		price_at_minus_15m DOUBLE PRECISION NOT NULL,
		price_at_minus_5m DOUBLE PRECISION NOT NULL,
		price_at_minus_1m DOUBLE PRECISION NOT NULL,
		price_at_event DOUBLE PRECISION NOT NULL,
		spike_high DOUBLE PRECISION NOT NULL,
		spike_low DOUBLE PRECISION NOT NULL,
		spike_direction TEXT NOT NULL,
		spike_magnitude_pips DOUBLE PRECISION NOT NULL,
		time_to_spike_sec BIGINT,
		price_at_plus_5m DOUBLE PRECISION,
		price_at_plus_15m DOUBLE PRECISION,
		price_at_plus_30m DOUBLE PRECISION,
		price_at_plus_1hr DOUBLE PRECISION,
		price_at_plus_3hr DOUBLE PRECISION,
		pattern_type TEXT NOT NULL,
		did_reverse BOOLEAN NOT NULL,
		reversal_magnitude_pips DOUBLE PRECISION,
		final_direction_matches_spike BOOLEAN NOT NULL,
		computed_at BIGINT NOT NULL,
		PRIMARY KEY (event_id, pair)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reactions_settlement ON reactions (event_timestamp) WHERE price_at_plus_3hr IS NULL`,

	`CREATE TABLE IF NOT EXISTS event_type_stats (
		event_type TEXT NOT NULL,
		pair TEXT NOT NULL,
		sample_size INT NOT NULL,
		date_range_start BIGINT NOT NULL,
		date_range_end BIGINT NOT NULL,
		last_updated BIGINT NOT NULL,
		historical_std_dev DOUBLE PRECISION NOT NULL,
		avg_spike_pips DOUBLE PRECISION NOT NULL,
		median_spike_pips DOUBLE PRECISION NOT NULL,
		max_spike_pips DOUBLE PRECISION NOT NULL,
		min_spike_pips DOUBLE PRECISION NOT NULL,
		std_dev_spike_pips DOUBLE PRECISION NOT NULL,
		spike_up_count INT NOT NULL,
		spike_down_count INT NOT NULL,
		spike_up_pct DOUBLE PRECISION NOT NULL,
		reversal_within_30min_count INT NOT NULL,
		reversal_within_30min_pct DOUBLE PRECISION NOT NULL,
		reversal_within_1hr_count INT NOT NULL,
		reversal_within_1hr_pct DOUBLE PRECISION NOT NULL,
		final_matches_spike_count INT NOT NULL,
		has_forecast_data BOOLEAN NOT NULL,
		pattern_counts JSONB NOT NULL,
		beat_stats JSONB,
		miss_stats JSONB,
		inline_stats JSONB,
		PRIMARY KEY (event_type, pair)
	)`,
}

// ApplySchema creates all Postgres tables inside the given transaction
func ApplySchema(t *testing.T, tx *sqlx.Tx) {
	t.Helper()
	for _, stmt := range pgSchema {
		if _, err := tx.Exec(stmt); err != nil {
			t.Fatalf("failed to apply schema: %v", err)
		}
	}
}
