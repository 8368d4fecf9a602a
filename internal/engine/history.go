package engine

import (
	"math"
	"time"
)

type histPoint struct {
	ts    time.Time
	value float64
}

// historyBook holds the bounded per-strike time series of smoothed gamma.
// Entries older than the retention window are pruned on every append.
type historyBook struct {
	retention time.Duration
	points    map[float64][]histPoint
}

func newHistoryBook(retention time.Duration) *historyBook {
	return &historyBook{
		retention: retention,
		points:    make(map[float64][]histPoint),
	}
}

// append records (now, value) for a strike and prunes expired entries.
func (h *historyBook) append(strike float64, now time.Time, value float64) {
	pts := append(h.points[strike], histPoint{ts: now, value: value})

	cutoff := now.Add(-h.retention)
	start := 0
	for start < len(pts) && pts[start].ts.Before(cutoff) {
		start++
	}
	h.points[strike] = pts[start:]
}

// rocAt returns the percent change between current and the most recent
// history entry at or before now-horizon. Returns 0 when no such entry
// exists or the reference value is zero.
func (h *historyBook) rocAt(strike float64, now time.Time, horizon time.Duration, current float64) float64 {
	target := now.Add(-horizon)

	pts := h.points[strike]
	var ref *histPoint
	for i := range pts {
		if pts[i].ts.After(target) {
			break
		}
		ref = &pts[i]
	}

	if ref == nil || ref.value == 0 {
		return 0
	}
	return (current - ref.value) / math.Abs(ref.value) * 100
}

// firstAtOrAfter returns the earliest entry at or after t for a strike.
func (h *historyBook) firstAtOrAfter(strike float64, t time.Time) (float64, bool) {
	for _, p := range h.points[strike] {
		if !p.ts.Before(t) {
			return p.value, true
		}
	}
	return 0, false
}

// size returns the number of retained points for a strike.
func (h *historyBook) size(strike float64) int {
	return len(h.points[strike])
}
