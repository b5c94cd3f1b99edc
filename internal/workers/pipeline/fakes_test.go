package pipeline

import (
	"context"
	"sort"

	"eventpulse/internal/domain/candle"
	"eventpulse/internal/domain/event"
	"eventpulse/internal/domain/reaction"
	"eventpulse/internal/domain/stats"
	"eventpulse/pkg/errors"
)

// memCursorStore keeps cursors in memory and counts checkpoints
type memCursorStore struct {
	m      map[string]string
	saves  int
	clears int
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{m: make(map[string]string)}
}

func (s *memCursorStore) Load(_ context.Context, name string) (string, error) {
	return s.m[name], nil
}

func (s *memCursorStore) Save(_ context.Context, name, value string) error {
	s.m[name] = value
	s.saves++
	return nil
}

func (s *memCursorStore) Clear(_ context.Context, name string) error {
	delete(s.m, name)
	s.clears++
	return nil
}

// memEventRepo implements event.Repository over a map
type memEventRepo struct {
	events  map[string]*event.Event
	zscores map[string]float64
}

func newMemEventRepo(events ...*event.Event) *memEventRepo {
	r := &memEventRepo{
		events:  make(map[string]*event.Event),
		zscores: make(map[string]float64),
	}
	for _, e := range events {
		cp := *e
		r.events[e.EventID] = &cp
	}
	return r
}

func (r *memEventRepo) Upsert(_ context.Context, e *event.Event) error {
	cp := *e
	r.events[e.EventID] = &cp
	return nil
}

func (r *memEventRepo) GetByID(_ context.Context, id string) (*event.Event, error) {
	if e, ok := r.events[id]; ok {
		return e, nil
	}
	return nil, errors.ErrNotFound
}

func (r *memEventRepo) ListRange(context.Context, int64, int64, string, int) ([]event.Event, error) {
	return nil, nil
}

func (r *memEventRepo) ListHighImpactRange(context.Context, int64, int64, int) ([]event.Event, error) {
	return nil, nil
}

func (r *memEventRepo) ListWindowPending(_ context.Context, afterMs int64, limit int) ([]event.Event, error) {
	return r.pending(afterMs, limit, func(e *event.Event) bool {
		return e.Status == event.StatusReleased && !e.WindowsComplete
	})
}

func (r *memEventRepo) ListReactionPending(_ context.Context, afterMs int64, limit int) ([]event.Event, error) {
	return r.pending(afterMs, limit, func(e *event.Event) bool {
		return e.WindowsComplete && !e.ReactionsCalculated
	})
}

func (r *memEventRepo) pending(afterMs int64, limit int, match func(*event.Event) bool) ([]event.Event, error) {
	var out []event.Event
	for _, e := range r.events {
		if e.Timestamp > afterMs && match(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memEventRepo) SetWindowsComplete(_ context.Context, id string) error {
	if e, ok := r.events[id]; ok && !e.WindowsComplete {
		e.WindowsComplete = true
	}
	return nil
}

func (r *memEventRepo) SetReactionsCalculated(_ context.Context, id string) error {
	if e, ok := r.events[id]; ok && !e.ReactionsCalculated {
		e.ReactionsCalculated = true
	}
	return nil
}

func (r *memEventRepo) ResetFlags(_ context.Context, id string) error {
	e, ok := r.events[id]
	if !ok {
		return errors.ErrNotFound
	}
	e.WindowsComplete = false
	e.ReactionsCalculated = false
	return nil
}

func (r *memEventRepo) SetSurpriseZScore(_ context.Context, id string, z float64) error {
	r.zscores[id] = z
	return nil
}

func (r *memEventRepo) ListByTypeWithValues(_ context.Context, eventType string, limit int) ([]event.Event, error) {
	var out []event.Event
	for _, e := range r.events {
		if e.EventType == eventType && e.HasForecastPair() {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memWindowRepo implements candle.WindowRepository over a map
type memWindowRepo struct {
	windows map[string]*candle.Window
}

func newMemWindowRepo(windows ...*candle.Window) *memWindowRepo {
	r := &memWindowRepo{windows: make(map[string]*candle.Window)}
	for _, w := range windows {
		r.windows[w.EventID+"|"+w.Pair] = w
	}
	return r
}

func (r *memWindowRepo) Upsert(_ context.Context, w *candle.Window) error {
	r.windows[w.EventID+"|"+w.Pair] = w
	return nil
}

func (r *memWindowRepo) Get(_ context.Context, eventID, pair string) (*candle.Window, error) {
	if w, ok := r.windows[eventID+"|"+pair]; ok {
		return w, nil
	}
	return nil, errors.ErrNotFound
}

func (r *memWindowRepo) PairsWithWindows(_ context.Context, eventID string) ([]string, error) {
	var pairs []string
	for _, w := range r.windows {
		if w.EventID == eventID {
			pairs = append(pairs, w.Pair)
		}
	}
	sort.Strings(pairs)
	return pairs, nil
}

// memReactionRepo implements reaction.Repository over a map
type memReactionRepo struct {
	recs        map[string]*reaction.Reaction
	typeOf      map[string]string
	staleGroups []reaction.Group
}

func newMemReactionRepo() *memReactionRepo {
	return &memReactionRepo{
		recs:   make(map[string]*reaction.Reaction),
		typeOf: make(map[string]string),
	}
}

func (r *memReactionRepo) add(rec *reaction.Reaction, eventType string) {
	r.recs[rec.EventID+"|"+rec.Pair] = rec
	r.typeOf[rec.EventID] = eventType
}

func (r *memReactionRepo) Upsert(_ context.Context, rec *reaction.Reaction) error {
	cp := *rec
	r.recs[rec.EventID+"|"+rec.Pair] = &cp
	return nil
}

func (r *memReactionRepo) Get(_ context.Context, eventID, pair string) (*reaction.Reaction, error) {
	if rec, ok := r.recs[eventID+"|"+pair]; ok {
		return rec, nil
	}
	return nil, errors.ErrNotFound
}

func (r *memReactionRepo) ListByEvent(_ context.Context, eventID string) ([]reaction.Reaction, error) {
	var out []reaction.Reaction
	for _, rec := range r.recs {
		if rec.EventID == eventID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *memReactionRepo) CountByEvent(_ context.Context, eventID string) (int, error) {
	recs, _ := r.ListByEvent(context.Background(), eventID)
	return len(recs), nil
}

func (r *memReactionRepo) ListSettlementPending(_ context.Context, afterMs, notAfterMs int64, limit int) ([]reaction.Reaction, error) {
	var out []reaction.Reaction
	for _, rec := range r.recs {
		if rec.PriceAtPlus3hr == nil && rec.EventTimestamp > afterMs && rec.EventTimestamp <= notAfterMs {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventTimestamp != out[j].EventTimestamp {
			return out[i].EventTimestamp < out[j].EventTimestamp
		}
		return out[i].Pair < out[j].Pair
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memReactionRepo) SetPlus3hr(_ context.Context, eventID, pair string, price float64) error {
	rec, ok := r.recs[eventID+"|"+pair]
	if !ok {
		return errors.ErrNotFound
	}
	rec.PriceAtPlus3hr = &price
	return nil
}

func (r *memReactionRepo) ListByTypeAndPair(_ context.Context, eventType, pair string, limit, offset int) ([]reaction.Reaction, error) {
	var out []reaction.Reaction
	for _, rec := range r.recs {
		if r.typeOf[rec.EventID] == eventType && rec.Pair == pair {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventTimestamp < out[j].EventTimestamp })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memReactionRepo) ListStaleGroups(_ context.Context, afterType, afterPair string, _, limit int) ([]reaction.Group, error) {
	var out []reaction.Group
	for _, g := range r.staleGroups {
		if g.EventType > afterType || (g.EventType == afterType && g.Pair > afterPair) {
			out = append(out, g)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memStatsRepo implements stats.Repository over a map
type memStatsRepo struct {
	records map[string]*stats.EventTypeStats
}

func newMemStatsRepo() *memStatsRepo {
	return &memStatsRepo{records: make(map[string]*stats.EventTypeStats)}
}

func (r *memStatsRepo) Replace(_ context.Context, s *stats.EventTypeStats) error {
	cp := *s
	r.records[s.EventType+"|"+s.Pair] = &cp
	return nil
}

func (r *memStatsRepo) Get(_ context.Context, eventType, pair string) (*stats.EventTypeStats, error) {
	if s, ok := r.records[eventType+"|"+pair]; ok {
		return s, nil
	}
	return nil, errors.ErrNotFound
}

func (r *memStatsRepo) ListByPair(context.Context, string, int) ([]stats.EventTypeStats, error) {
	return nil, nil
}

// memHourlyRepo implements candle.HourlyRepository over nested maps
type memHourlyRepo struct {
	bars map[string]map[int64]candle.Candle
}

func newMemHourlyRepo() *memHourlyRepo {
	return &memHourlyRepo{bars: make(map[string]map[int64]candle.Candle)}
}

func (r *memHourlyRepo) Insert(_ context.Context, pair string, candles []candle.Candle) error {
	if r.bars[pair] == nil {
		r.bars[pair] = make(map[int64]candle.Candle)
	}
	for _, c := range candles {
		r.bars[pair][c.Timestamp] = c
	}
	return nil
}

func (r *memHourlyRepo) GetHour(_ context.Context, pair string, hourStartMs int64) (*candle.Candle, error) {
	if c, ok := r.bars[pair][hourStartMs]; ok {
		return &c, nil
	}
	return nil, errors.ErrNotFound
}
