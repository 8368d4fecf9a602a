package engine

import "math"

// Order-flow classification breakpoints.
const (
	pressureNeutralBand  = 0.1
	pressureModerateBand = 0.2
	pressureStrongBand   = 0.4

	flowNeutralDollars = 1e6
	flowModerateRatio  = 0.15
	flowStrongRatio    = 0.30

	pressureBufferSize = 5
)

// calcBidAskPressure reads resting-size imbalance for strikes near the money.
// Below MinDepth the result is explicitly invalid and the caller must not
// update the smoothing buffer.
func calcBidAskPressure(metrics []StrikeMetrics, spot float64, atmWidthPct, minDepth float64) PressureResult {
	result := PressureResult{Direction: FlowNeutral, Strength: StrengthWeak}
	if spot <= 0 {
		return result
	}

	var depth float64
	var weighted, totalWeight float64

	for _, m := range metrics {
		if math.Abs(m.Strike-spot)/spot*100 > atmWidthPct {
			continue
		}

		depth += m.CallBidSize + m.CallAskSize + m.PutBidSize + m.PutAskSize

		var parts []float64
		if cd := m.CallBidSize + m.CallAskSize; cd > 0 {
			parts = append(parts, (m.CallBidSize-m.CallAskSize)/cd)
		}
		if pd := m.PutBidSize + m.PutAskSize; pd > 0 {
			parts = append(parts, (m.PutAskSize-m.PutBidSize)/pd)
		}
		if len(parts) == 0 {
			continue
		}

		weight := math.Abs(m.NetGamma)
		if weight == 0 {
			weight = 1
		}
		weighted += mean(parts) * weight
		totalWeight += weight
	}

	if depth < minDepth {
		return result
	}

	result.Valid = true
	result.Depth = depth
	if totalWeight > 0 {
		result.Raw = weighted / totalWeight
	}
	return result
}

// classifyPressure fills direction and strength from a smoothed reading.
func classifyPressure(r *PressureResult) {
	abs := math.Abs(r.Smoothed)
	switch {
	case abs < pressureNeutralBand:
		r.Direction = FlowNeutral
	case r.Smoothed > 0:
		r.Direction = FlowBullish
	default:
		r.Direction = FlowBearish
	}

	switch {
	case abs < pressureModerateBand:
		r.Strength = StrengthWeak
	case abs < pressureStrongBand:
		r.Strength = StrengthModerate
	default:
		r.Strength = StrengthStrong
	}
}

// calcFlowVolume computes volume-weighted GEX flow per side. Direction uses a
// dollar neutral band; strength uses imbalance-ratio breakpoints.
func calcFlowVolume(metrics []StrikeMetrics, spot float64) FlowVolumeResult {
	result := FlowVolumeResult{Direction: FlowNeutral, Strength: StrengthWeak}
	if spot <= 0 {
		return result
	}

	spotSq := spot * spot
	for _, m := range metrics {
		result.CallFlow += m.CallVolume * math.Abs(m.CallGamma) * 100 * spotSq
		result.PutFlow += m.PutVolume * math.Abs(m.PutGamma) * 100 * spotSq
	}
	result.NetFlow = result.CallFlow - result.PutFlow

	total := result.CallFlow + result.PutFlow
	if total > 0 {
		result.Imbalance = math.Abs(result.NetFlow) / total
	}

	if math.Abs(result.NetFlow) < flowNeutralDollars {
		return result
	}

	if result.NetFlow > 0 {
		result.Direction = FlowBullish
	} else {
		result.Direction = FlowBearish
	}

	switch {
	case result.Imbalance < flowModerateRatio:
		result.Strength = StrengthWeak
	case result.Imbalance < flowStrongRatio:
		result.Strength = StrengthModerate
	default:
		result.Strength = StrengthStrong
	}
	return result
}

// combineFlow merges the two order-flow reads. Agreement yields HIGH
// confidence (escalating to a STRONG_ label when either input is strong);
// one neutral input defers to the directional one at MEDIUM; disagreement is
// surfaced as a LOW-confidence divergence rather than silently picking a side.
func combineFlow(pressure PressureResult, volume FlowVolumeResult) CombinedFlow {
	pDir := pressure.Direction
	if !pressure.Valid {
		pDir = FlowNeutral
	}
	vDir := volume.Direction

	switch {
	case pDir == vDir:
		combined := CombinedFlow{
			Direction:  vDir,
			Confidence: ConfidenceHigh,
			Signal:     string(vDir),
		}
		if vDir != FlowNeutral && (pressure.Strength == StrengthStrong || volume.Strength == StrengthStrong) {
			combined.Signal = "STRONG_" + string(vDir)
		}
		return combined

	case pDir == FlowNeutral:
		return CombinedFlow{
			Direction:  vDir,
			Confidence: ConfidenceMedium,
			Signal:     string(vDir),
		}

	case vDir == FlowNeutral:
		return CombinedFlow{
			Direction:  pDir,
			Confidence: ConfidenceMedium,
			Signal:     string(pDir),
		}

	default:
		// Outright disagreement: name which side looks exhausted.
		signal := "BEARISH_EXHAUSTION"
		if vDir == FlowBullish {
			signal = "BULLISH_EXHAUSTION"
		}
		return CombinedFlow{
			Direction:  FlowNeutral,
			Confidence: ConfidenceLow,
			Signal:     signal,
			Divergence: true,
		}
	}
}

// analyzeOrderFlow runs the full order-flow pass, mutating the engine's
// pressure smoothing buffer only on a valid depth reading.
func (e *Engine) analyzeOrderFlow(metrics []StrikeMetrics, spot float64) OrderFlow {
	pressure := calcBidAskPressure(metrics, spot, e.cfg.ATMWidthPct, e.cfg.MinDepth)

	if pressure.Valid {
		e.pressureBuf = append(e.pressureBuf, pressure.Raw)
		if len(e.pressureBuf) > pressureBufferSize {
			e.pressureBuf = e.pressureBuf[len(e.pressureBuf)-pressureBufferSize:]
		}
		pressure.Smoothed = mean(e.pressureBuf)
		classifyPressure(&pressure)
	}

	volume := calcFlowVolume(metrics, spot)

	return OrderFlow{
		Pressure: pressure,
		Volume:   volume,
		Combined: combineFlow(pressure, volume),
	}
}
