package engine

import (
	"math"

	"go.uber.org/zap"
)

// Model is the optional external win-probability collaborator. The engine
// never assumes it is present or healthy: an absent, untrained, erroring, or
// panicking model degrades to the distance-only estimate.
type Model interface {
	// Trained reports whether the model has enough data to predict.
	Trained() bool

	// Predict returns a probability in [0,1] that the underlying settles at
	// the given strike.
	Predict(strike, spot float64, pctx PredictionContext) (float64, error)
}

// PredictionContext carries the book-level features a model may condition on.
type PredictionContext struct {
	NetGamma     float64   `json:"net_gamma"`
	TotalGamma   float64   `json:"total_gamma"`
	FlipPoint    float64   `json:"flip_point"`
	Magnets      []float64 `json:"magnets"`
	VIX          float64   `json:"vix"`
	Regime       Regime    `json:"regime"`
	ExpectedMove float64   `json:"expected_move"`
}

// Blend weights when a trained model estimate is available.
const (
	modelWeight    = 0.6
	distanceWeight = 0.4
)

// distanceProbability is the deterministic per-strike estimate: gamma share
// decayed by distance from spot in expected-move units, scaled to 0-100.
// With a zero expected move the component collapses to 100 at distance 0 and
// 0 everywhere else.
func distanceProbability(strike, spot, absGamma, totalAbsGamma, expectedMove float64) float64 {
	if totalAbsGamma <= 0 {
		return 0
	}
	share := absGamma / totalAbsGamma
	distance := math.Abs(strike - spot)

	if expectedMove <= 0 {
		if distance == 0 {
			return 100
		}
		return 0
	}
	return share * math.Exp(-distance/expectedMove) * 100
}

// scoreProbabilities fills each strike's probability, blending in the model
// when available, then rescales so the snapshot sums to 100. Rescaling is
// skipped when the total is zero.
func (e *Engine) scoreProbabilities(metrics []StrikeMetrics, spot float64, pctx PredictionContext) {
	var totalAbs float64
	for _, m := range metrics {
		totalAbs += math.Abs(m.NetGamma)
	}

	for i := range metrics {
		dist := distanceProbability(metrics[i].Strike, spot, math.Abs(metrics[i].NetGamma), totalAbs, pctx.ExpectedMove)

		if p, ok := e.modelProbability(metrics[i].Strike, spot, pctx); ok {
			metrics[i].Probability = modelWeight*(p*100) + distanceWeight*dist
		} else {
			metrics[i].Probability = dist
		}
	}

	var total float64
	for _, m := range metrics {
		total += m.Probability
	}
	if total == 0 {
		return
	}
	for i := range metrics {
		metrics[i].Probability = metrics[i].Probability / total * 100
	}
}

// modelProbability queries the collaborator defensively. Panics and errors
// are logged and reported as "no estimate"; the poll never fails here.
func (e *Engine) modelProbability(strike, spot float64, pctx PredictionContext) (p float64, ok bool) {
	if e.model == nil {
		return 0, false
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("probability model panicked, using distance estimate",
				zap.Float64("strike", strike),
				zap.Any("panic", r),
			)
			p, ok = 0, false
		}
	}()

	if !e.model.Trained() {
		return 0, false
	}

	pred, err := e.model.Predict(strike, spot, pctx)
	if err != nil {
		e.logger.Warn("probability model failed, using distance estimate",
			zap.Float64("strike", strike),
			zap.Error(err),
		)
		return 0, false
	}
	if pred < 0 || pred > 1 || math.IsNaN(pred) {
		e.logger.Warn("probability model returned out-of-range value",
			zap.Float64("strike", strike),
			zap.Float64("prediction", pred),
		)
		return 0, false
	}
	return pred, true
}
