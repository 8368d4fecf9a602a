package engine

import (
	"math"
	"sort"
)

// Danger-zone thresholds (percent ROC) in priority order.
const (
	dangerBuildingROC5   = 25
	dangerCollapsingROC5 = -25
	dangerSpikeROC1      = 15
)

// Pinning condition thresholds.
const (
	pinZonePct     = 0.5 // spot within this % of the pin strike
	calmROCMeanPct = 5   // mean |ROC| below this counts as a quiet book
)

// Pin-score blend weights.
const (
	pinWeightProbability = 0.4
	pinWeightRank        = 0.3
	pinWeightDistance    = 0.3
)

// tagMagnets marks the top-N strikes by |net gamma| in place and returns
// their strike prices in rank order (rank 1 = largest).
func tagMagnets(metrics []StrikeMetrics, n int) []float64 {
	if len(metrics) == 0 || n < 1 {
		return nil
	}

	order := make([]int, len(metrics))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(metrics[order[a]].NetGamma) > math.Abs(metrics[order[b]].NetGamma)
	})

	if n > len(order) {
		n = len(order)
	}
	magnets := make([]float64, 0, n)
	for rank := 0; rank < n; rank++ {
		idx := order[rank]
		metrics[idx].IsMagnet = true
		metrics[idx].MagnetRank = rank + 1
		magnets = append(magnets, metrics[idx].Strike)
	}
	return magnets
}

// pickPin scores every strike and marks the winner in place. Score blends
// normalized probability, gamma rank, and distance from spot; ties resolve
// to the first strike seen. Returns the pin strike and its probability, or
// (0, 0) for an empty book.
func pickPin(metrics []StrikeMetrics, spot float64) (float64, float64) {
	if len(metrics) == 0 {
		return 0, 0
	}

	// Gamma rank across all strikes, 1 = largest |gamma|.
	order := make([]int, len(metrics))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(metrics[order[a]].NetGamma) > math.Abs(metrics[order[b]].NetGamma)
	})
	rank := make([]int, len(metrics))
	for r, idx := range order {
		rank[idx] = r + 1
	}

	maxDistance := 0.0
	for _, m := range metrics {
		if d := math.Abs(m.Strike - spot); d > maxDistance {
			maxDistance = d
		}
	}

	n := float64(len(metrics))
	bestIdx := -1
	bestScore := math.Inf(-1)
	for i, m := range metrics {
		distTerm := 1.0
		if maxDistance > 0 {
			distTerm = 1 - math.Abs(m.Strike-spot)/maxDistance
		}
		score := pinWeightProbability*(m.Probability/100) +
			pinWeightRank*(1-float64(rank[i])/n) +
			pinWeightDistance*distTerm
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	metrics[bestIdx].IsPin = true
	return metrics[bestIdx].Strike, metrics[bestIdx].Probability
}

// classifyDanger assigns at most one danger label per strike, evaluated in
// fixed priority order: BUILDING, then COLLAPSING, then SPIKE.
func classifyDanger(roc ROCSet) DangerKind {
	switch {
	case roc.Min5 >= dangerBuildingROC5:
		return DangerBuilding
	case roc.Min5 <= dangerCollapsingROC5:
		return DangerCollapsing
	case roc.Min1 >= dangerSpikeROC1:
		return DangerSpike
	default:
		return DangerNone
	}
}

// tagDangerZones classifies every strike in place and collects the tagged ones.
func tagDangerZones(metrics []StrikeMetrics) []DangerZone {
	var zones []DangerZone
	for i := range metrics {
		kind := classifyDanger(metrics[i].ROC)
		metrics[i].Danger = kind
		if kind != DangerNone {
			zones = append(zones, DangerZone{
				Strike: metrics[i].Strike,
				Kind:   kind,
				ROC1m:  metrics[i].ROC.Min1,
				ROC5m:  metrics[i].ROC.Min5,
			})
		}
	}
	return zones
}

// evaluatePinning checks the pinning condition: no danger zones, and either
// spot sits inside the pin zone or the book's short-horizon ROC is quiet.
func evaluatePinning(metrics []StrikeMetrics, zones []DangerZone, spot, pinStrike, pinProb float64) PinningResult {
	result := PinningResult{
		PinStrike:      pinStrike,
		Probability:    pinProb,
		DangerZoneFree: len(zones) == 0,
	}

	if pinStrike > 0 && spot > 0 {
		result.SpotInPinZone = math.Abs(spot-pinStrike)/pinStrike*100 <= pinZonePct
	}

	if len(metrics) > 0 {
		var sum float64
		for _, m := range metrics {
			sum += (math.Abs(m.ROC.Min1) + math.Abs(m.ROC.Min5)) / 2
		}
		result.MeanAbsROC = sum / float64(len(metrics))
	}

	result.Pinning = result.DangerZoneFree &&
		(result.SpotInPinZone || result.MeanAbsROC < calmROCMeanPct)
	return result
}
