package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/quantsight/gexflow/internal/session"
)

// stubModel scripts the collaborator's behavior for degradation tests.
type stubModel struct {
	trained bool
	p       float64
	err     error
	panics  bool
}

func (m *stubModel) Trained() bool { return m.trained }

func (m *stubModel) Predict(strike, spot float64, pctx PredictionContext) (float64, error) {
	if m.panics {
		panic("model blew up")
	}
	return m.p, m.err
}

func newProbEngine(t *testing.T, model Model) *Engine {
	t.Helper()
	clock := session.NewManualClock(time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC))
	e, err := New(DefaultConfig(), clock, model, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func probSum(metrics []StrikeMetrics) float64 {
	var sum float64
	for _, m := range metrics {
		sum += m.Probability
	}
	return sum
}

func TestDistanceProbability(t *testing.T) {
	// At spot with full gamma share the estimate is 100 before rescaling.
	if got := distanceProbability(5900, 5900, 10, 10, 30); !almostEqual(got, 100) {
		t.Fatalf("at-spot probability = %v, want 100", got)
	}
	// One expected move away decays by 1/e.
	got := distanceProbability(5930, 5900, 10, 10, 30)
	if math.Abs(got-100/math.E) > 1e-9 {
		t.Fatalf("one-EM probability = %v, want %v", got, 100/math.E)
	}
	// Zero total gamma yields zero everywhere.
	if got := distanceProbability(5900, 5900, 0, 0, 30); got != 0 {
		t.Fatalf("zero-gamma probability = %v, want 0", got)
	}
	// Zero expected move collapses to an indicator at spot.
	if got := distanceProbability(5900, 5900, 10, 10, 0); got != 100 {
		t.Fatalf("zero-EM at spot = %v, want 100", got)
	}
	if got := distanceProbability(5910, 5900, 10, 10, 0); got != 0 {
		t.Fatalf("zero-EM off spot = %v, want 0", got)
	}
}

func TestScoreProbabilitiesSumTo100(t *testing.T) {
	e := newProbEngine(t, nil)
	metrics := []StrikeMetrics{
		{Strike: 5850, NetGamma: 200},
		{Strike: 5900, NetGamma: 1000},
		{Strike: 5950, NetGamma: -400},
	}
	e.scoreProbabilities(metrics, 5900, PredictionContext{ExpectedMove: 40})

	if sum := probSum(metrics); math.Abs(sum-100) > 1e-6 {
		t.Fatalf("probability sum = %v, want 100", sum)
	}
	// The at-spot high-gamma strike should dominate.
	if metrics[1].Probability <= metrics[0].Probability ||
		metrics[1].Probability <= metrics[2].Probability {
		t.Fatalf("unexpected probability ordering: %+v", metrics)
	}
}

func TestScoreProbabilitiesAllZeroGamma(t *testing.T) {
	e := newProbEngine(t, nil)
	metrics := []StrikeMetrics{
		{Strike: 5900, NetGamma: 0},
		{Strike: 5910, NetGamma: 0},
	}
	e.scoreProbabilities(metrics, 5900, PredictionContext{ExpectedMove: 40})

	if sum := probSum(metrics); sum != 0 {
		t.Fatalf("zero-gamma book probability sum = %v, want 0 (no rescale)", sum)
	}
}

func TestScoreProbabilitiesBlendsTrainedModel(t *testing.T) {
	e := newProbEngine(t, &stubModel{trained: true, p: 0.9})
	metrics := []StrikeMetrics{
		{Strike: 5850, NetGamma: 200},
		{Strike: 5900, NetGamma: 1000},
	}
	e.scoreProbabilities(metrics, 5900, PredictionContext{ExpectedMove: 40})

	if sum := probSum(metrics); math.Abs(sum-100) > 1e-6 {
		t.Fatalf("blended probability sum = %v, want 100", sum)
	}

	// A flat 0.9 model estimate pulls the low-gamma strike up relative to
	// the distance-only ordering, but both must stay positive.
	for _, m := range metrics {
		if m.Probability <= 0 {
			t.Fatalf("non-positive blended probability: %+v", m)
		}
	}
}

func TestModelProbabilityDegradation(t *testing.T) {
	tests := []struct {
		name  string
		model Model
	}{
		{"untrained", &stubModel{trained: false, p: 0.5}},
		{"erroring", &stubModel{trained: true, err: errors.New("cold start")}},
		{"panicking", &stubModel{trained: true, panics: true}},
		{"out of range", &stubModel{trained: true, p: 1.5}},
		{"nan", &stubModel{trained: true, p: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newProbEngine(t, tt.model)
			if _, ok := e.modelProbability(5900, 5900, PredictionContext{}); ok {
				t.Fatal("expected degradation to distance-only estimate")
			}
		})
	}
}

func TestModelProbabilityHealthy(t *testing.T) {
	e := newProbEngine(t, &stubModel{trained: true, p: 0.42})
	p, ok := e.modelProbability(5900, 5900, PredictionContext{})
	if !ok || !almostEqual(p, 0.42) {
		t.Fatalf("modelProbability = (%v, %v), want (0.42, true)", p, ok)
	}
}
