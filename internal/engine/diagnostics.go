package engine

import "math"

// Moneyness bands for the diagnostics pass (percent of spot).
const (
	nearATMBandPct = 1.0
	farOTMBandPct  = 2.0
)

// Positioning labels for the call book.
const (
	PositioningHedging     = "HEDGING"
	PositioningOverwrite   = "OVERWRITE"
	PositioningSpeculation = "SPECULATION"
	PositioningBalanced    = "BALANCED"
)

// lottoOIFromGamma approximates open interest at a strike from gamma
// magnitude when true OI is absent. Known estimation, not ground truth.
func lottoOIFromGamma(callGamma float64) float64 {
	return math.Abs(callGamma) * 10000
}

// runDiagnostics computes the labeled flow/skew ratios, the call-positioning
// label, and the composite BULLISH/BEARISH/NEUTRAL rating for one snapshot.
func runDiagnostics(metrics []StrikeMetrics, spot, netGamma, flipPoint float64) Diagnostics {
	d := Diagnostics{
		Positioning: PositioningBalanced,
		Rating:      FlowNeutral,
	}
	if len(metrics) == 0 || spot <= 0 {
		d.RatingConfidence = ConfidenceLow
		return d
	}

	var (
		callVol, putVol        float64
		nearATMCallVol         float64
		farOTMCallVol          float64
		farOTMCallOI           float64
		callBid, callAsk       float64
		callIVSum, putIVSum    float64
		ivCount                int
		atmCallIVSum           float64
		atmIVCount             int
		farCallIVSum           float64
		farIVCount             int
		estimatedOIContributed bool
	)

	for _, m := range metrics {
		callVol += m.CallVolume
		putVol += m.PutVolume
		callBid += m.CallBidSize
		callAsk += m.CallAskSize

		distPct := (m.Strike - spot) / spot * 100

		if math.Abs(distPct) <= nearATMBandPct {
			nearATMCallVol += m.CallVolume
			if m.CallIV > 0 {
				atmCallIVSum += m.CallIV
				atmIVCount++
			}
		}

		if distPct > farOTMBandPct {
			farOTMCallVol += m.CallVolume
			if m.CallOI > 0 {
				farOTMCallOI += m.CallOI
			} else if m.CallVolume > 0 {
				farOTMCallOI += lottoOIFromGamma(m.CallGamma)
				estimatedOIContributed = true
			}
			if m.CallIV > 0 {
				farCallIVSum += m.CallIV
				farIVCount++
			}
		}

		if m.CallIV > 0 && m.PutIV > 0 {
			callIVSum += m.CallIV
			putIVSum += m.PutIV
			ivCount++
		}
	}

	totalVol := callVol + putVol

	if putVol > 0 {
		d.VolumePressure = callVol / putVol
	}
	if callVol > 0 {
		d.NearATMCallShare = nearATMCallVol / callVol
		d.LottoCallShare = farOTMCallVol / callVol
	}
	if totalVol > 0 {
		d.CallShare = callVol / totalVol
		d.FarOTMCallShare = farOTMCallVol / totalVol
	}
	if farOTMCallOI > 0 {
		d.LottoTurnover = farOTMCallVol / farOTMCallOI
		d.LottoOIEstimated = estimatedOIContributed
	}

	if ivCount > 0 && callIVSum > 0 {
		d.PutCallSkew = putIVSum / callIVSum
	}
	if atmIVCount > 0 && farIVCount > 0 {
		atmIV := atmCallIVSum / float64(atmIVCount)
		if atmIV > 0 {
			d.CallSkew = (farCallIVSum / float64(farIVCount)) / atmIV
		}
	}

	d.Positioning = classifyPositioning(callBid, callAsk, d.LottoCallShare)

	d.Score = ratingScore(d, netGamma, spot, flipPoint)
	switch {
	case d.Score >= 2:
		d.Rating = FlowBullish
	case d.Score <= -2:
		d.Rating = FlowBearish
	}
	switch abs := int(math.Abs(float64(d.Score))); {
	case abs >= 4:
		d.RatingConfidence = ConfidenceHigh
	case abs >= 2:
		d.RatingConfidence = ConfidenceMedium
	default:
		d.RatingConfidence = ConfidenceLow
	}

	return d
}

// classifyPositioning labels the call book from resting-size imbalance and
// how much of the call tape is far-OTM.
func classifyPositioning(callBid, callAsk, lottoShare float64) string {
	var imbalance float64
	if total := callBid + callAsk; total > 0 {
		imbalance = (callBid - callAsk) / total
	}

	switch {
	case lottoShare > 0.4:
		return PositioningSpeculation
	case imbalance < -0.2:
		return PositioningOverwrite
	case imbalance > 0.2:
		return PositioningHedging
	default:
		return PositioningBalanced
	}
}

// ratingScore totals the signed evidence behind the composite rating:
// volume pressure, call share, skew, net GEX sign, and spot versus the
// estimated flip point.
func ratingScore(d Diagnostics, netGamma, spot, flipPoint float64) int {
	score := 0

	switch {
	case d.VolumePressure > 1.2:
		score++
	case d.VolumePressure > 0 && d.VolumePressure < 0.8:
		score--
	}

	switch {
	case d.CallShare > 0.6:
		score++
	case d.CallShare > 0 && d.CallShare < 0.4:
		score--
	}

	// Rich puts signal fear; flat-to-inverted skew signals complacency.
	switch {
	case d.PutCallSkew > 1.1:
		score--
	case d.PutCallSkew > 0 && d.PutCallSkew < 0.95:
		score++
	}

	switch {
	case netGamma > 0:
		score++
	case netGamma < 0:
		score--
	}

	if flipPoint > 0 {
		if spot > flipPoint {
			score++
		} else if spot < flipPoint {
			score--
		}
	}

	return score
}
