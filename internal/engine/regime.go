package engine

import (
	"math"
	"sort"
)

// Regime thresholds in GEX-dollar terms.
const regimeThresholdDollars = 1e9

// gexDollars converts aggregate net gamma into GEX-dollar units. Negative or
// zero spot is rejected at this boundary with a zeroed result.
func gexDollars(netGamma, spot float64) float64 {
	if spot <= 0 {
		return 0
	}
	return netGamma * spot * spot
}

// classifyRegime buckets GEX dollars into the three regimes.
func classifyRegime(dollars float64) Regime {
	switch {
	case dollars > regimeThresholdDollars:
		return RegimePositive
	case dollars < -regimeThresholdDollars:
		return RegimeNegative
	default:
		return RegimeNeutral
	}
}

// detectFlips finds per-strike net-gamma sign changes against the previous
// poll's values, tagging the affected metrics in place. Zero or missing
// previous values never trigger a flip.
func detectFlips(metrics []StrikeMetrics, prevGamma map[float64]float64) []FlipEvent {
	var events []FlipEvent
	for i := range metrics {
		m := &metrics[i]
		prev, ok := prevGamma[m.Strike]
		if !ok || prev == 0 || m.NetGamma == 0 {
			continue
		}

		var dir FlipDirection
		switch {
		case prev > 0 && m.NetGamma < 0:
			dir = FlipPosToNeg
		case prev < 0 && m.NetGamma > 0:
			dir = FlipNegToPos
		default:
			continue
		}

		m.Flip = dir
		events = append(events, FlipEvent{
			Strike:    m.Strike,
			Direction: dir,
			Previous:  prev,
			Current:   m.NetGamma,
		})
	}
	return events
}

// estimateFlipPoint locates the price level where cumulative net gamma
// changes sign, scanning strikes in ascending order and interpolating
// between the bracketing strikes. Returns 0 when there is no crossing.
func estimateFlipPoint(metrics []StrikeMetrics) float64 {
	if len(metrics) < 2 {
		return 0
	}

	ordered := make([]StrikeMetrics, len(metrics))
	copy(ordered, metrics)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Strike < ordered[j].Strike })

	cum := ordered[0].NetGamma
	for i := 1; i < len(ordered); i++ {
		next := cum + ordered[i].NetGamma
		if (cum < 0 && next >= 0) || (cum > 0 && next <= 0) {
			lo, hi := ordered[i-1].Strike, ordered[i].Strike
			span := math.Abs(cum) + math.Abs(next)
			if span == 0 {
				return lo
			}
			return lo + (hi-lo)*math.Abs(cum)/span
		}
		cum = next
	}
	return 0
}
