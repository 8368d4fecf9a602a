package engine

import (
	"math"
	"testing"
)

func TestGexDollars(t *testing.T) {
	tests := []struct {
		name     string
		netGamma float64
		spot     float64
		want     float64
	}{
		{"positive", 500, 5900, 500 * 5900 * 5900},
		{"negative", -500, 5900, -500 * 5900 * 5900},
		{"zero spot", 500, 0, 0},
		{"negative spot", 500, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gexDollars(tt.netGamma, tt.spot); got != tt.want {
				t.Fatalf("gexDollars(%v, %v) = %v, want %v", tt.netGamma, tt.spot, got, tt.want)
			}
		})
	}
}

func TestClassifyRegime(t *testing.T) {
	tests := []struct {
		dollars float64
		want    Regime
	}{
		{2.5e9, RegimePositive},
		{1e9 + 1, RegimePositive},
		{1e9, RegimeNeutral},
		{0, RegimeNeutral},
		{-1e9, RegimeNeutral},
		{-1e9 - 1, RegimeNegative},
		{-3e9, RegimeNegative},
	}
	for _, tt := range tests {
		if got := classifyRegime(tt.dollars); got != tt.want {
			t.Errorf("classifyRegime(%v) = %v, want %v", tt.dollars, got, tt.want)
		}
	}
}

func TestDetectFlips(t *testing.T) {
	metrics := []StrikeMetrics{
		{Strike: 5900, NetGamma: -500}, // was +500: flips
		{Strike: 5910, NetGamma: 300},  // was -100: flips
		{Strike: 5920, NetGamma: 400},  // was +200: no flip
		{Strike: 5930, NetGamma: 100},  // was 0: never a flip
		{Strike: 5940, NetGamma: 100},  // unseen before: never a flip
	}
	prev := map[float64]float64{
		5900: 500,
		5910: -100,
		5920: 200,
		5930: 0,
	}

	events := detectFlips(metrics, prev)
	if len(events) != 2 {
		t.Fatalf("flip events = %d, want 2", len(events))
	}

	if events[0].Strike != 5900 || events[0].Direction != FlipPosToNeg {
		t.Fatalf("first event = %+v, want 5900 POS_TO_NEG", events[0])
	}
	if events[1].Strike != 5910 || events[1].Direction != FlipNegToPos {
		t.Fatalf("second event = %+v, want 5910 NEG_TO_POS", events[1])
	}

	// Flipped metrics are tagged in place, others left empty.
	if metrics[0].Flip != FlipPosToNeg {
		t.Fatalf("metric 5900 flip tag = %q, want POS_TO_NEG", metrics[0].Flip)
	}
	if metrics[2].Flip != "" {
		t.Fatalf("metric 5920 flip tag = %q, want empty", metrics[2].Flip)
	}
}

func TestEstimateFlipPoint(t *testing.T) {
	metrics := []StrikeMetrics{
		{Strike: 5900, NetGamma: -1000},
		{Strike: 5910, NetGamma: 500},
		{Strike: 5920, NetGamma: 1500},
	}
	// Cumulative: -1000 at 5900, -500 at 5910, +1000 at 5920.
	// Crossing between 5910 and 5920: 5910 + 10*500/1500.
	got := estimateFlipPoint(metrics)
	want := 5910 + 10*500.0/1500.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("flip point = %v, want %v", got, want)
	}
}

func TestEstimateFlipPointNoCrossing(t *testing.T) {
	metrics := []StrikeMetrics{
		{Strike: 5900, NetGamma: 100},
		{Strike: 5910, NetGamma: 200},
	}
	if got := estimateFlipPoint(metrics); got != 0 {
		t.Fatalf("flip point with no crossing = %v, want 0", got)
	}
	if got := estimateFlipPoint(metrics[:1]); got != 0 {
		t.Fatalf("flip point with one strike = %v, want 0", got)
	}
}
