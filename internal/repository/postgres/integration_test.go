package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/internal/domain/stats"
	"eventpulse/internal/testsupport"
	"eventpulse/pkg/errors"
)

func setupTx(t *testing.T) DBTX {
	t.Helper()
	configs := testsupport.LoadDatabaseConfigsFromEnv(t)
	helper := testsupport.NewPostgresTestHelper(t, configs.Postgres)
	testsupport.ApplySchema(t, helper.Tx())
	return helper.Tx()
}

func sampleEvent(id string, tsMs int64) *event.Event {
	return &event.Event{
		EventID:        id,
		EventType:      "NFP",
		Name:           "Non-Farm Employment Change",
		Country:        "US",
		Currency:       "USD",
		Source:         "forex_factory",
		Timestamp:      tsMs,
		ScrapedAt:      tsMs + 60_000,
		Status:         event.StatusReleased,
		Impact:         event.ImpactHigh,
		DayOfWeek:      "Fri",
		TradingSession: "london_ny_overlap",
	}
}

func TestEventUpsertRecency(t *testing.T) {
	tx := setupTx(t)
	repo := NewEventRepository(tx)
	ctx := context.Background()

	ts := time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC).UnixMilli()
	e := sampleEvent("ev1", ts)
	require.NoError(t, repo.Upsert(ctx, e))

	// Stale payload (older scrape) must not replace the stored row
	stale := sampleEvent("ev1", ts)
	stale.ScrapedAt = e.ScrapedAt - 10_000
	stale.Name = "stale name"
	require.NoError(t, repo.Upsert(ctx, stale))

	got, err := repo.GetByID(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "Non-Farm Employment Change", got.Name)

	// Fresher payload wins
	fresh := sampleEvent("ev1", ts)
	fresh.ScrapedAt = e.ScrapedAt + 10_000
	fresh.Name = "revised name"
	require.NoError(t, repo.Upsert(ctx, fresh))

	got, err = repo.GetByID(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "revised name", got.Name)
}

func TestEventUpsertPreservesFlags(t *testing.T) {
	tx := setupTx(t)
	repo := NewEventRepository(tx)
	ctx := context.Background()

	ts := time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC).UnixMilli()
	e := sampleEvent("ev1", ts)
	require.NoError(t, repo.Upsert(ctx, e))
	require.NoError(t, repo.SetWindowsComplete(ctx, "ev1"))

	update := sampleEvent("ev1", ts)
	update.ScrapedAt = e.ScrapedAt + 5_000
	require.NoError(t, repo.Upsert(ctx, update))

	got, err := repo.GetByID(ctx, "ev1")
	require.NoError(t, err)
	assert.True(t, got.WindowsComplete, "re-ingest must not clear pipeline flags")
	assert.False(t, got.ReactionsCalculated)
}

func TestEventPendingFlow(t *testing.T) {
	tx := setupTx(t)
	repo := NewEventRepository(tx)
	ctx := context.Background()

	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC).UnixMilli()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Upsert(ctx, sampleEvent(id, base+int64(i)*60_000)))
	}

	pending, err := repo.ListWindowPending(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "a", pending[0].EventID)

	// Strictly-after cursor excludes the boundary event
	pending, err = repo.ListWindowPending(ctx, base, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].EventID)

	require.NoError(t, repo.SetWindowsComplete(ctx, "a"))
	pending, err = repo.ListWindowPending(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	reactionPending, err := repo.ListReactionPending(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, reactionPending, 1)
	assert.Equal(t, "a", reactionPending[0].EventID)

	require.NoError(t, repo.SetReactionsCalculated(ctx, "a"))
	reactionPending, err = repo.ListReactionPending(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, reactionPending)

	require.NoError(t, repo.ResetFlags(ctx, "a"))
	pending, err = repo.ListWindowPending(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	assert.True(t, errors.Is(repo.ResetFlags(ctx, "missing"), errors.ErrNotFound))
}

func TestEventListRangeCorrectsLegacySkew(t *testing.T) {
	tx := setupTx(t)
	repo := NewEventRepository(tx)
	ctx := context.Background()

	trueTs := time.Date(2023, 5, 3, 14, 0, 0, 0, time.UTC).UnixMilli()
	legacy := sampleEvent("legacy", trueTs+2*60*60*1000)
	legacy.Source = event.SourceLegacyScraper
	require.NoError(t, repo.Upsert(ctx, legacy))

	modern := sampleEvent("modern", trueTs)
	require.NoError(t, repo.Upsert(ctx, modern))

	// Query the narrow true-UTC range; both events correct into it
	from := trueTs - 60_000
	to := trueTs + 60_000
	events, err := repo.ListRange(ctx, from, to, "", 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// A range just above the raw legacy timestamp must not double-count it
	events, err = repo.ListRange(ctx, legacy.Timestamp-60_000, legacy.Timestamp+60_000, "", 10)
	require.NoError(t, err)
	require.Len(t, events, 0)
}

func TestWindowRoundtrip(t *testing.T) {
	tx := setupTx(t)
	repo := NewWindowRepository(tx)
	ctx := context.Background()

	ts := time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC).UnixMilli()
	w := &candle.Window{
		EventID:        "ev1",
		Pair:           "EURUSD",
		EventTimestamp: ts,
		WindowStart:    ts - 16*60_000,
		WindowEnd:      ts + 61*60_000,
		Candles: []candle.Candle{
			{Timestamp: ts + 60_000, Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15},
			{Timestamp: ts, Open: 1.0, High: 1.1, Low: 0.9, Close: 1.05},
			{Timestamp: ts, Open: 9.9, High: 9.9, Low: 9.9, Close: 9.9},
		},
	}
	require.NoError(t, repo.Upsert(ctx, w))

	got, err := repo.Get(ctx, "ev1", "EURUSD")
	require.NoError(t, err)
	require.Len(t, got.Candles, 2, "duplicates dropped on write")
	assert.Equal(t, ts, got.Candles[0].Timestamp)
	assert.Equal(t, 1.0, got.Candles[0].Open)

	pairs, err := repo.PairsWithWindows(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, []string{"EURUSD"}, pairs)

	_, err = repo.Get(ctx, "ev1", "USDJPY")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestReactionUpsertPreservesSettlement(t *testing.T) {
	tx := setupTx(t)
	repo := NewReactionRepository(tx)
	ctx := context.Background()

	ts := time.Date(2024, 3, 8, 13, 30, 0, 0, time.UTC).UnixMilli()
	rec := &reaction.Reaction{
		EventID:            "ev1",
		Pair:               "EURUSD",
		EventTimestamp:     ts,
		PriceAtEvent:       1.1,
		SpikeHigh:          1.105,
		SpikeLow:           1.099,
		SpikeDirection:     reaction.DirectionUp,
		SpikeMagnitudePips: 50,
		PatternType:        reaction.PatternFade,
		ComputedAt:         ts + 60*60_000,
	}
	require.NoError(t, repo.Upsert(ctx, rec))
	require.NoError(t, repo.SetPlus3hr(ctx, "ev1", "EURUSD", 1.1042))

	// Recompute without the settlement price; the stored value survives
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, "ev1", "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, got.PriceAtPlus3hr)
	assert.Equal(t, 1.1042, *got.PriceAtPlus3hr)

	count, err := repo.CountByEvent(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatsReplaceAndGet(t *testing.T) {
	tx := setupTx(t)
	repo := NewStatsRepository(tx)
	ctx := context.Background()

	rec := &stats.EventTypeStats{
		EventType:        "NFP",
		Pair:             "EURUSD",
		SampleSize:       12,
		DateRangeStart:   1000,
		DateRangeEnd:     2000,
		LastUpdated:      3000,
		HistoricalStdDev: 1,
		AvgSpikePips:     42.5,
		PatternCounts:    stats.PatternCounts{Continuation: 8, Fade: 4},
		BeatStats:        &stats.ConditionalStats{SampleSize: 6, AvgSpikePips: 55},
	}
	require.NoError(t, repo.Replace(ctx, rec))

	got, err := repo.Get(ctx, "NFP", "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 12, got.SampleSize)
	assert.Equal(t, 8, got.PatternCounts.Continuation)
	require.NotNil(t, got.BeatStats)
	assert.Equal(t, 6, got.BeatStats.SampleSize)
	assert.Nil(t, got.MissStats, "absent conditional stays nil")

	// Replace is wholesale
	rec.SampleSize = 13
	rec.BeatStats = nil
	require.NoError(t, repo.Replace(ctx, rec))

	got, err = repo.Get(ctx, "NFP", "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 13, got.SampleSize)
	assert.Nil(t, got.BeatStats)

	list, err := repo.ListByPair(ctx, "EURUSD", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.Get(ctx, "CPI_YOY", "EURUSD")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
