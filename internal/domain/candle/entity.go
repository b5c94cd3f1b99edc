package candle

import "sort"

// Candle is a single OHLCV bar. Timestamp is the bar open in UTC milliseconds.
type Candle struct {
	Timestamp int64   `json:"timestamp" ch:"timestamp"`
	Open      float64 `json:"open" ch:"open"`
	High      float64 `json:"high" ch:"high"`
	Low       float64 `json:"low" ch:"low"`
	Close     float64 `json:"close" ch:"close"`
	Volume    float64 `json:"volume,omitempty" ch:"volume"`
}

// Window is the slice of candles captured around one event for one pair.
// Candles are ordered by timestamp ascending with no duplicate timestamps.
type Window struct {
	EventID        string   `db:"event_id" json:"eventId"`
	Pair           string   `db:"pair" json:"pair"`
	EventTimestamp int64    `db:"event_timestamp" json:"eventTimestamp"`
	WindowStart    int64    `db:"window_start" json:"windowStart"`
	WindowEnd      int64    `db:"window_end" json:"windowEnd"`
	Candles        []Candle `db:"-" json:"candles"`
}

// Normalize sorts candles ascending and drops duplicate timestamps,
// keeping the first occurrence.
func (w *Window) Normalize() {
	if len(w.Candles) < 2 {
		return
	}

	sort.SliceStable(w.Candles, func(i, j int) bool {
		return w.Candles[i].Timestamp < w.Candles[j].Timestamp
	})

	out := w.Candles[:1]
	for _, c := range w.Candles[1:] {
		if c.Timestamp != out[len(out)-1].Timestamp {
			out = append(out, c)
		}
	}
	w.Candles = out
}
