package engine

import (
	"fmt"
	"time"
)

// Config holds the engine's tunable knobs. Zero values are invalid; start
// from DefaultConfig and override.
type Config struct {
	// SmoothingEnabled toggles the per-strike noise damper and median window.
	SmoothingEnabled bool

	// SmoothingWindow is how many raw readings the per-strike window keeps.
	SmoothingWindow int

	// MaxChangePct is the largest single-poll gamma change (percent) accepted
	// without a supporting spot move before the reading is dampened.
	MaxChangePct float64

	// ExpectedMoveEMA is the smoothing factor for the expected-move EMA,
	// valid range (0, 1].
	ExpectedMoveEMA float64

	// HistoryRetention bounds the per-strike rolling history window.
	HistoryRetention time.Duration

	// MagnetCount is how many top strikes are tagged as magnets.
	MagnetCount int

	// MinDepth is the minimum aggregate resting size (contracts) near the
	// money for a bid/ask pressure reading to be considered valid.
	MinDepth float64

	// ATMWidthPct restricts order-flow pressure to strikes within this
	// percentage of spot.
	ATMWidthPct float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		SmoothingEnabled: true,
		SmoothingWindow:  5,
		MaxChangePct:     50,
		ExpectedMoveEMA:  0.3,
		HistoryRetention: 420 * time.Minute,
		MagnetCount:      5,
		MinDepth:         100,
		ATMWidthPct:      3.0,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing window must be >= 1, got %d", c.SmoothingWindow)
	}
	if c.MaxChangePct <= 0 {
		return fmt.Errorf("max change pct must be > 0, got %v", c.MaxChangePct)
	}
	if c.ExpectedMoveEMA <= 0 || c.ExpectedMoveEMA > 1 {
		return fmt.Errorf("expected move EMA factor must be in (0,1], got %v", c.ExpectedMoveEMA)
	}
	if c.HistoryRetention <= 0 {
		return fmt.Errorf("history retention must be > 0, got %v", c.HistoryRetention)
	}
	if c.MagnetCount < 1 {
		return fmt.Errorf("magnet count must be >= 1, got %d", c.MagnetCount)
	}
	if c.MinDepth < 0 {
		return fmt.Errorf("min depth must be >= 0, got %v", c.MinDepth)
	}
	if c.ATMWidthPct <= 0 {
		return fmt.Errorf("ATM width pct must be > 0, got %v", c.ATMWidthPct)
	}
	return nil
}
