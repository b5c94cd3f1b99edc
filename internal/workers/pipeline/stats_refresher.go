package pipeline

import (
	"context"
	"strings"
	"time"

	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/internal/domain/stats"
	"eventpulse/internal/metrics"
	statssvc "eventpulse/internal/services/stats"
	"eventpulse/internal/workers"
	"eventpulse/pkg/errors"
)

// statsPageSize bounds each read while collecting a group's reactions
const statsPageSize = 500

// StatsRefresher recomputes statistics for (event type, pair) groups whose
// reactions are newer than their stored record. Each group is rebuilt from
// scratch and replaced wholesale; the keyset cursor makes a large backlog
// survivable across runs.
type StatsRefresher struct {
	*workers.BaseWorker
	events     event.Repository
	reactions  reaction.Repository
	stats      stats.Repository
	cursors    CursorStore
	batchSize  int
	maxBatches int
}

// NewStatsRefresher creates a new stats refresher worker
func NewStatsRefresher(
	events event.Repository,
	reactions reaction.Repository,
	statsRepo stats.Repository,
	cursors CursorStore,
	batchSize, maxBatches int,
	interval time.Duration,
	enabled bool,
) *StatsRefresher {
	return &StatsRefresher{
		BaseWorker: workers.NewBaseWorker("stats_refresher", interval, enabled),
		events:     events,
		reactions:  reactions,
		stats:      statsRepo,
		cursors:    cursors,
		batchSize:  batchSize,
		maxBatches: maxBatches,
	}
}

// Run executes one sweep of statistics refreshing
func (s *StatsRefresher) Run(ctx context.Context) error {
	return runSweep(ctx, s.cursors, s.Name(), s.maxBatches, s.Log(), s.processBatch)
}

func (s *StatsRefresher) processBatch(ctx context.Context, cursor string) (batchOutcome, error) {
	afterType, afterPair := parseGroupCursor(cursor)

	groups, err := s.reactions.ListStaleGroups(ctx, afterType, afterPair, statssvc.MinAggregateSample, s.batchSize)
	if err != nil {
		return batchOutcome{}, err
	}
	if len(groups) == 0 {
		return batchOutcome{}, nil
	}

	var out batchOutcome
	for _, g := range groups {
		if err := s.refreshGroup(ctx, g); err != nil {
			s.Log().Errorw("Stats refresh failed",
				"event_type", g.EventType, "pair", g.Pair, "error", err)
			metrics.StatsRefreshed.WithLabelValues("error").Inc()
			out.failed++
			continue
		}
		metrics.StatsRefreshed.WithLabelValues("success").Inc()
		out.processed++
	}

	if len(groups) == s.batchSize {
		last := groups[len(groups)-1]
		out.cursor = formatGroupCursor(last.EventType, last.Pair)
	}
	return out, nil
}

// refreshGroup rebuilds one group's record from all of its reactions and
// refreshes the surprise z-scores of the events behind it
func (s *StatsRefresher) refreshGroup(ctx context.Context, g reaction.Group) error {
	var all []reaction.Reaction
	for offset := 0; ; offset += statsPageSize {
		page, err := s.reactions.ListByTypeAndPair(ctx, g.EventType, g.Pair, statsPageSize, offset)
		if err != nil {
			return err
		}
		all = append(all, page...)
		if len(page) < statsPageSize {
			break
		}
	}

	// Bulk-load the type's released events with parsed values, then fill
	// the gaps (events without values still carry timestamps) one by one.
	withValues, err := s.events.ListByTypeWithValues(ctx, g.EventType, statsPageSize)
	if err != nil {
		return err
	}
	eventsByID := make(map[string]*event.Event, len(withValues))
	for i := range withValues {
		eventsByID[withValues[i].EventID] = &withValues[i]
	}
	for i := range all {
		id := all[i].EventID
		if _, ok := eventsByID[id]; ok {
			continue
		}
		ev, err := s.events.GetByID(ctx, id)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		eventsByID[id] = ev
	}

	record, err := statssvc.Aggregate(g.EventType, g.Pair, all, eventsByID, time.Now().UnixMilli())
	if err != nil {
		// the group shrank below the floor between listing and rebuild
		if errors.Is(err, errors.ErrInsufficientSampleSize) {
			return nil
		}
		return err
	}

	if err := s.stats.Replace(ctx, record); err != nil {
		return err
	}

	// Only events that contributed a reaction to this group get scored
	scored := make(map[string]struct{}, len(all))
	for i := range all {
		id := all[i].EventID
		if _, dup := scored[id]; dup {
			continue
		}
		scored[id] = struct{}{}

		ev, ok := eventsByID[id]
		if !ok {
			continue
		}
		surprise, ok := ev.Surprise()
		if !ok {
			continue
		}
		z := statssvc.SurpriseZScore(surprise, record.HistoricalStdDev)
		if err := s.events.SetSurpriseZScore(ctx, ev.EventID, z); err != nil {
			return err
		}
	}
	return nil
}

// Group cursors encode "eventType|pair"; pairs never contain the separator
func parseGroupCursor(cursor string) (string, string) {
	if cursor == "" {
		return "", ""
	}
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func formatGroupCursor(eventType, pair string) string {
	return eventType + "|" + pair
}
