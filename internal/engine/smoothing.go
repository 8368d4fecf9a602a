package engine

import (
	"math"
	"sort"
)

// spotMoveFloorPct: a gamma jump is only dampened when spot moved less than
// this between polls. A real price move legitimately reshuffles gamma.
const spotMoveFloorPct = 0.1

// Dampening blend weights for a suspect reading (stale Greeks on a quiet tape).
const (
	dampenPrevWeight = 0.7
	dampenRawWeight  = 0.3
)

// smoother owns the per-strike noise suppression state: the rolling raw-value
// windows and the open-session baseline buffers.
type smoother struct {
	cfg Config

	windows map[float64][]float64

	baselineSamples map[float64][]float64
	baseline        map[float64]float64
	baselineLocked  bool
}

func newSmoother(cfg Config) *smoother {
	return &smoother{
		cfg:             cfg,
		windows:         make(map[float64][]float64),
		baselineSamples: make(map[float64][]float64),
		baseline:        make(map[float64]float64),
	}
}

// smooth accepts one raw net-gamma reading for a strike and returns the
// noise-suppressed value. A reading that jumps more than MaxChangePct while
// spot barely moved is blended toward the previous reading before entering
// the window. The output is the window median once 3 samples exist, else the
// window mean.
func (s *smoother) smooth(strike, raw, spotMovePct float64) float64 {
	if !s.cfg.SmoothingEnabled {
		return raw
	}

	w := s.windows[strike]
	if len(w) > 0 {
		prev := w[len(w)-1]
		if prev != 0 {
			changePct := math.Abs(raw-prev) / math.Abs(prev) * 100
			if changePct > s.cfg.MaxChangePct && spotMovePct < spotMoveFloorPct {
				raw = dampenPrevWeight*prev + dampenRawWeight*raw
			}
		}
	}

	w = append(w, raw)
	if len(w) > s.cfg.SmoothingWindow {
		w = w[len(w)-s.cfg.SmoothingWindow:]
	}
	s.windows[strike] = w

	if len(w) >= 3 {
		return median(w)
	}
	return mean(w)
}

// observeBaseline collects a raw reading into the strike's open-baseline
// buffer. Callers gate this to the first minutes after session open.
func (s *smoother) observeBaseline(strike, raw float64) {
	if s.baselineLocked {
		return
	}
	s.baselineSamples[strike] = append(s.baselineSamples[strike], raw)
}

// lockBaseline freezes each strike's baseline as the median of its collected
// samples. It is a no-op after the first call.
func (s *smoother) lockBaseline() {
	if s.baselineLocked {
		return
	}
	for strike, samples := range s.baselineSamples {
		if len(samples) > 0 {
			s.baseline[strike] = median(samples)
		}
	}
	s.baselineLocked = true
}

// openBaseline returns the locked open baseline for a strike, if any.
func (s *smoother) openBaseline(strike float64) (float64, bool) {
	if !s.baselineLocked {
		return 0, false
	}
	v, ok := s.baseline[strike]
	return v, ok
}

// rankTable is the once-per-session locked GEX rank snapshot the signal
// generator compares against. Written at most once, read-only afterward.
type rankTable struct {
	locked bool
	ranks  map[float64]int     // strike -> 1-based rank by |gamma| at lock time
	values map[float64]float64 // strike -> |gamma| at lock time
	majors map[float64]bool    // top-5 strikes at lock time
}

func newRankTable() *rankTable {
	return &rankTable{
		ranks:  make(map[float64]int),
		values: make(map[float64]float64),
		majors: make(map[float64]bool),
	}
}

const majorStrikeCount = 5

// lock captures ranks from the current per-strike metrics. No-op once locked.
func (t *rankTable) lock(metrics []StrikeMetrics) {
	if t.locked || len(metrics) == 0 {
		return
	}

	ordered := make([]StrikeMetrics, len(metrics))
	copy(ordered, metrics)
	sort.SliceStable(ordered, func(i, j int) bool {
		return math.Abs(ordered[i].NetGamma) > math.Abs(ordered[j].NetGamma)
	})

	for i, m := range ordered {
		t.ranks[m.Strike] = i + 1
		t.values[m.Strike] = math.Abs(m.NetGamma)
		if i < majorStrikeCount {
			t.majors[m.Strike] = true
		}
	}
	t.locked = true
}

// rankOf returns the locked rank for a strike (0 if the strike was not seen
// at lock time).
func (t *rankTable) rankOf(strike float64) int {
	return t.ranks[strike]
}

func (t *rankTable) isMajor(strike float64) bool {
	return t.majors[strike]
}

// majorStrikes returns the locked top strikes in rank order.
func (t *rankTable) majorStrikes() []float64 {
	out := make([]float64, 0, len(t.majors))
	for strike := range t.majors {
		out = append(out, strike)
	}
	sort.Slice(out, func(i, j int) bool {
		return t.ranks[out[i]] < t.ranks[out[j]]
	})
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
