package metrics

import (
	"context"
	"strconv"
	"strings"
	"time"

	"eventpulse/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// CustomCollector scrapes pipeline backlog gauges straight from the stores
// on each Prometheus scrape
type CustomCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB
	redis    *redis.Client

	totalEvents      *prometheus.Desc
	pendingWindows   *prometheus.Desc
	pendingReactions *prometheus.Desc
	statsGroups      *prometheus.Desc
	redisMemory      *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, rdb *redis.Client) *CustomCollector {
	return &CustomCollector{
		log:      log,
		postgres: postgres,
		redis:    rdb,

		totalEvents: prometheus.NewDesc(
			"eventpulse_events_total",
			"Total stored calendar events by status",
			[]string{"status"}, nil,
		),
		pendingWindows: prometheus.NewDesc(
			"eventpulse_pending_window_events",
			"Released events still waiting for window capture",
			nil, nil,
		),
		pendingReactions: prometheus.NewDesc(
			"eventpulse_pending_reaction_events",
			"Events with captured windows and uncalculated reactions",
			nil, nil,
		),
		statsGroups: prometheus.NewDesc(
			"eventpulse_stats_groups_total",
			"Number of (event type, pair) statistics records",
			nil, nil,
		),
		redisMemory: prometheus.NewDesc(
			"eventpulse_redis_memory_bytes",
			"Redis memory usage in bytes",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalEvents
	ch <- c.pendingWindows
	ch <- c.pendingReactions
	ch <- c.statsGroups
	ch <- c.redisMemory
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectEventCounts(ctx, ch)
	c.collectBacklogs(ctx, ch)
	c.collectStatsGroups(ctx, ch)
	c.collectRedisMemory(ctx, ch)
}

func (c *CustomCollector) collectEventCounts(ctx context.Context, ch chan<- prometheus.Metric) {
	rows, err := c.postgres.QueryContext(ctx, `SELECT status, COUNT(*) FROM events GROUP BY status`)
	if err != nil {
		c.log.Debugw("Failed to collect event counts", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count float64
		if err := rows.Scan(&status, &count); err != nil {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.totalEvents, prometheus.GaugeValue, count, status)
	}
}

func (c *CustomCollector) collectBacklogs(ctx context.Context, ch chan<- prometheus.Metric) {
	var pendingWindows float64
	err := c.postgres.GetContext(ctx, &pendingWindows,
		`SELECT COUNT(*) FROM events WHERE status = 'released' AND windows_complete = false`)
	if err == nil {
		ch <- prometheus.MustNewConstMetric(c.pendingWindows, prometheus.GaugeValue, pendingWindows)
	}

	var pendingReactions float64
	err = c.postgres.GetContext(ctx, &pendingReactions,
		`SELECT COUNT(*) FROM events WHERE windows_complete = true AND reactions_calculated = false`)
	if err == nil {
		ch <- prometheus.MustNewConstMetric(c.pendingReactions, prometheus.GaugeValue, pendingReactions)
	}
}

func (c *CustomCollector) collectStatsGroups(ctx context.Context, ch chan<- prometheus.Metric) {
	var groups float64
	err := c.postgres.GetContext(ctx, &groups, `SELECT COUNT(*) FROM event_type_stats`)
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.statsGroups, prometheus.GaugeValue, groups)
}

func (c *CustomCollector) collectRedisMemory(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.redis == nil {
		return
	}
	info, err := c.redis.Info(ctx, "memory").Result()
	if err != nil {
		return
	}

	var used float64
	for _, line := range splitLines(info) {
		if n, ok := parseInfoValue(line, "used_memory:"); ok {
			used = n
			break
		}
	}
	if used > 0 {
		ch <- prometheus.MustNewConstMetric(c.redisMemory, prometheus.GaugeValue, used)
	}
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// parseInfoValue extracts the numeric value from a "key:value" INFO line
func parseInfoValue(line, prefix string) (float64, bool) {
	if !strings.HasPrefix(line, prefix) {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimPrefix(line, prefix), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// RegisterCustomCollector registers the collector with the default registry
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
