package engine

import (
	"fmt"
	"math"
	"sort"
)

// Rank-change thresholds for the pattern matcher.
const (
	rankShiftThreshold = 3  // positions moved vs the locked rank
	majorDecayRank     = 10 // a major strike only decays once it falls this far
	pinProximityPoints = 1.0
)

type rankState int

const (
	rankStable rankState = iota
	rankBuilding
	rankDecaying
)

// classifyRankChange compares a strike's current rank to its locked rank.
func classifyRankChange(current, locked int, major bool) rankState {
	if locked == 0 || current == 0 {
		return rankStable
	}
	if locked-current >= rankShiftThreshold {
		return rankBuilding
	}
	if current-locked >= rankShiftThreshold {
		if major && current < majorDecayRank {
			return rankStable
		}
		return rankDecaying
	}
	return rankStable
}

// generateSignal pattern-matches rank changes against the locked session
// table and emits the discrete trade recommendation. Before ranks lock the
// generator reports NEUTRAL_WAIT at low confidence.
func (e *Engine) generateSignal(metrics []StrikeMetrics, spot, pinStrike float64, flow CombinedFlow) TradeSignal {
	if !e.ranks.locked {
		return TradeSignal{
			Kind:       SignalNeutralWait,
			Confidence: ConfidenceLow,
			Reason:     "session ranks not locked yet",
		}
	}

	// Current rank by |gamma|, 1-based.
	order := make([]int, len(metrics))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(metrics[order[a]].NetGamma) > math.Abs(metrics[order[b]].NetGamma)
	})

	var (
		building, decaying             int
		buildingAbove, buildingBelow   int
		loneBuildStrike, loneBuildSeen = 0.0, false
	)

	for currentRank, idx := range order {
		m := metrics[idx]
		state := classifyRankChange(currentRank+1, e.ranks.rankOf(m.Strike), e.ranks.isMajor(m.Strike))
		switch state {
		case rankBuilding:
			building++
			loneBuildStrike, loneBuildSeen = m.Strike, true
			if m.Strike > spot {
				buildingAbove++
			} else {
				buildingBelow++
			}
		case rankDecaying:
			decaying++
		}
	}

	sig := TradeSignal{
		Building:      building,
		BuildingAbove: buildingAbove,
		BuildingBelow: buildingBelow,
		Decaying:      decaying,
	}

	switch {
	case buildingAbove >= 2 && buildingBelow >= 2:
		sig.Kind = SignalSellPremium
		sig.Confidence = ConfidenceMedium
		sig.Reason = fmt.Sprintf("gamma building on both sides of spot (%d above, %d below)", buildingAbove, buildingBelow)

	case buildingAbove >= 2 && buildingBelow == 0:
		sig.Kind = SignalBullishBias
		sig.Confidence = ConfidenceMedium
		sig.Reason = fmt.Sprintf("%d strikes building above spot, none below", buildingAbove)

	case buildingBelow >= 2 && buildingAbove == 0:
		sig.Kind = SignalBearishBias
		sig.Confidence = ConfidenceMedium
		sig.Reason = fmt.Sprintf("%d strikes building below spot, none above", buildingBelow)

	case decaying >= 4 && building <= 1:
		sig.Kind = SignalBreakoutLikely
		sig.Confidence = ConfidenceMedium
		sig.Reason = fmt.Sprintf("%d strikes decaying with only %d building", decaying, building)

	case building == 1 && loneBuildSeen && math.Abs(loneBuildStrike-pinStrike) <= pinProximityPoints:
		sig.Kind = SignalStrongPin
		sig.Confidence = ConfidenceHigh
		sig.Reason = fmt.Sprintf("single building strike %.0f sits on the pin", loneBuildStrike)

	case building <= 1 && decaying <= 1:
		if flow.Direction != FlowNeutral && flow.Confidence != ConfidenceLow {
			sig.Kind = SignalFlowDriven
			sig.Confidence = ConfidenceMedium
			sig.Reason = fmt.Sprintf("quiet rank book, %s flow in control", flow.Signal)
		} else {
			sig.Kind = SignalNeutralWait
			sig.Confidence = ConfidenceLow
			sig.Reason = "quiet rank book, no flow edge"
		}

	default:
		sig.Kind = SignalMixed
		sig.Confidence = ConfidenceLow
		sig.Reason = fmt.Sprintf("no clean pattern (%d building, %d decaying)", building, decaying)
	}

	adjustForFlow(&sig, flow)
	return sig
}

// impliedDirection maps a signal kind to the direction its pattern implies.
// The bool is false for direction-agnostic kinds.
func impliedDirection(kind SignalKind) (FlowDirection, bool) {
	switch kind {
	case SignalBullishBias:
		return FlowBullish, true
	case SignalBearishBias:
		return FlowBearish, true
	case SignalSellPremium, SignalStrongPin, SignalNeutralWait:
		return FlowNeutral, true
	default:
		return FlowNeutral, false
	}
}

// adjustForFlow bumps the signal's confidence up when the combined flow
// agrees with the pattern's implied direction, and down when it contradicts.
func adjustForFlow(sig *TradeSignal, flow CombinedFlow) {
	implied, directional := impliedDirection(sig.Kind)
	if !directional {
		sig.FlowAgrees = flow.Direction == FlowNeutral
		return
	}

	switch {
	case flow.Direction == implied:
		sig.FlowAgrees = true
		sig.Confidence = raiseConfidence(sig.Confidence)
	case implied == FlowNeutral:
		// A range pattern is only contradicted by conviction flow.
		if flow.Confidence == ConfidenceHigh {
			sig.Confidence = lowerConfidence(sig.Confidence)
		} else {
			sig.FlowAgrees = true
		}
	default:
		sig.Confidence = lowerConfidence(sig.Confidence)
	}
}

func raiseConfidence(c Confidence) Confidence {
	switch c {
	case ConfidenceLow:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

func lowerConfidence(c Confidence) Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
