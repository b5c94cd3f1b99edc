package main

// Backfills hourly candles from the provider into ClickHouse. The settlement
// backfiller needs an hourly bar at event+3h, so reactions computed for
// historical events stay unpriced until this has run over their range.
//
// Usage:
//   go run scripts/backfill_hourly_candles.go --pairs EURUSD,GBPUSD --start 2023-01-01 --end 2024-12-31

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"eventpulse/internal/adapters/clickhouse"
	"eventpulse/internal/adapters/config"
	"eventpulse/internal/providers/candles"
	chrepo "eventpulse/internal/repository/clickhouse"
	"eventpulse/pkg/logger"
)

// chunk keeps each provider request small enough to stay under response caps
const chunk = 7 * 24 * time.Hour

func main() {
	pairsFlag := flag.String("pairs", "EURUSD,GBPUSD,USDJPY,AUDUSD,USDCAD", "Comma-separated pairs")
	startFlag := flag.String("start", "", "Start date (YYYY-MM-DD)")
	endFlag := flag.String("end", "", "End date (YYYY-MM-DD)")
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		fmt.Printf("Invalid start date (use YYYY-MM-DD): %v\n", err)
		os.Exit(1)
	}
	end, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		fmt.Printf("Invalid end date (use YYYY-MM-DD): %v\n", err)
		os.Exit(1)
	}
	if !end.After(start) {
		fmt.Println("End date must be after start date")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get().With("component", "hourly_backfill")

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer chClient.Close()

	provider := candles.NewHTTPProvider(cfg.Provider)
	repo := chrepo.NewHourlyCandleRepository(chClient.Conn())

	ctx := context.Background()
	pairs := strings.Split(*pairsFlag, ",")

	for _, pair := range pairs {
		pair = strings.ToUpper(strings.TrimSpace(pair))
		if pair == "" {
			continue
		}

		total := 0
		for from := start; from.Before(end); from = from.Add(chunk) {
			to := from.Add(chunk)
			if to.After(end) {
				to = end
			}

			bars, err := provider.FetchHourly(ctx, pair, from.UnixMilli(), to.UnixMilli())
			if err != nil {
				log.Errorw("Fetch failed, skipping chunk", "pair", pair, "from", from, "error", err)
				continue
			}
			if len(bars) == 0 {
				continue
			}

			if err := repo.Insert(ctx, pair, bars); err != nil {
				log.Fatalf("Insert failed for %s: %v", pair, err)
			}
			total += len(bars)
		}
		log.Infow("Pair backfilled", "pair", pair, "bars", total)
	}

	log.Info("Backfill complete")
}
