package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/quantsight/gexflow/internal/chain"
	"github.com/quantsight/gexflow/internal/session"
)

// testEngine returns an engine on a manual clock parked at the given
// session-relative offset from a 09:30 open.
func testEngine(t *testing.T, cfg Config, sinceOpen time.Duration) (*Engine, *session.ManualClock) {
	t.Helper()
	open := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	clock := session.NewManualClock(open.Add(sinceOpen))
	e, err := New(cfg, clock, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, clock
}

// quote builds a strike whose raw net gamma is exactly net, using the
// OI-scaled path: gamma 0.0001 per contract, one side only.
func quote(strike, net float64) chain.StrikeQuote {
	q := chain.StrikeQuote{Strike: strike}
	contracts := math.Abs(net) / (0.0001 * 100)
	if net >= 0 {
		q.CallGamma = 0.0001
		q.CallOI = contracts
	} else {
		q.PutGamma = 0.0001
		q.PutOI = contracts
	}
	return q
}

func testChain(spot float64, quotes ...chain.StrikeQuote) *chain.Chain {
	return &chain.Chain{
		Ticker:     "SPX",
		Expiration: "2026-08-20",
		Spot:       spot,
		VIX:        15,
		Strikes:    quotes,
	}
}

func TestProcessNilChain(t *testing.T) {
	e, _ := testEngine(t, DefaultConfig(), time.Hour)
	if _, _, err := e.Process(nil); !errors.Is(err, ErrNilChain) {
		t.Fatalf("Process(nil) err = %v, want ErrNilChain", err)
	}
}

func TestProcessNoDataLeavesStateUntouched(t *testing.T) {
	e, _ := testEngine(t, DefaultConfig(), time.Hour)

	snap, alerts, err := e.Process(testChain(0, quote(5900, 500)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !snap.NoData {
		t.Fatal("zero spot should yield a NoData snapshot")
	}
	if alerts != nil {
		t.Fatalf("NoData poll emitted alerts: %v", alerts)
	}
	if e.Previous() != nil {
		t.Fatal("NoData poll advanced the previous-snapshot state")
	}

	snap, _, err = e.Process(testChain(5900))
	if err != nil || !snap.NoData {
		t.Fatalf("empty strike list: snap=%+v err=%v, want NoData", snap, err)
	}
}

func TestProcessPositiveRegime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, _ := testEngine(t, cfg, time.Hour)

	snap, alerts, err := e.Process(testChain(5900,
		quote(5880, 400), quote(5900, 400), quote(5920, 400)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !almostEqual(snap.NetGamma, 1200) {
		t.Fatalf("net gamma = %v, want 1200", snap.NetGamma)
	}
	wantDollars := 1200 * 5900.0 * 5900.0
	if !almostEqual(snap.GexDollars, wantDollars) {
		t.Fatalf("GEX dollars = %v, want %v", snap.GexDollars, wantDollars)
	}
	if snap.Regime != RegimePositive {
		t.Fatalf("regime = %v, want POSITIVE", snap.Regime)
	}
	if snap.Session != SessionOpen {
		t.Fatalf("session = %v, want OPEN", snap.Session)
	}
	if alerts != nil {
		t.Fatalf("first poll emitted alerts: %v", alerts)
	}

	// Full snapshot invariant: strike probabilities sum to 100.
	var sum float64
	for _, m := range snap.Strikes {
		sum += m.Probability
	}
	if math.Abs(sum-100) > 1e-6 {
		t.Fatalf("probability sum = %v, want 100", sum)
	}
}

func TestProcessFlipEventAndAlert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, clock := testEngine(t, cfg, time.Hour)

	if _, _, err := e.Process(testChain(5900, quote(5900, 500), quote(5910, 300))); err != nil {
		t.Fatalf("first poll: %v", err)
	}

	clock.Advance(time.Minute)
	snap, alerts, err := e.Process(testChain(5900, quote(5900, -500), quote(5910, 300)))
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if len(snap.FlipEvents) != 1 {
		t.Fatalf("flip events = %v, want exactly one", snap.FlipEvents)
	}
	ev := snap.FlipEvents[0]
	if ev.Strike != 5900 || ev.Direction != FlipPosToNeg {
		t.Fatalf("flip event = %+v, want 5900 POS_TO_NEG", ev)
	}

	var tagged bool
	for _, m := range snap.Strikes {
		if m.Strike == 5900 && m.Flip == FlipPosToNeg {
			tagged = true
		}
	}
	if !tagged {
		t.Fatal("flipped strike not tagged in the snapshot")
	}
	if countAlerts(alerts, AlertGammaFlip) != 1 {
		t.Fatalf("gamma flip alerts = %d, want 1", countAlerts(alerts, AlertGammaFlip))
	}
}

func TestProcessRankLockIsOneShot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, clock := testEngine(t, cfg, time.Minute) // 09:31, inside the lock window

	if _, _, err := e.Process(testChain(5900,
		quote(5880, 100), quote(5900, 1000), quote(5920, 500))); err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if !e.ranks.locked {
		t.Fatal("ranks not locked on the first in-window poll")
	}
	if got := e.ranks.rankOf(5900); got != 1 {
		t.Fatalf("locked rank of 5900 = %d, want 1", got)
	}

	// A later poll with a reshuffled book must not move the table.
	clock.Advance(3 * time.Minute)
	if _, _, err := e.Process(testChain(5900,
		quote(5880, 9000), quote(5900, 10), quote(5920, 500))); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if got := e.ranks.rankOf(5900); got != 1 {
		t.Fatalf("rank of 5900 after replayed window poll = %d, want 1", got)
	}
	if got := e.ranks.rankOf(5880); got != 3 {
		t.Fatalf("rank of 5880 = %d, want locked 3", got)
	}
}

func TestProcessBuildingDangerZone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, clock := testEngine(t, cfg, time.Hour)

	if _, _, err := e.Process(testChain(5900, quote(5900, 1000))); err != nil {
		t.Fatalf("first poll: %v", err)
	}

	clock.Advance(5 * time.Minute)
	snap, _, err := e.Process(testChain(5900, quote(5900, 1300)))
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if len(snap.DangerZones) != 1 {
		t.Fatalf("danger zones = %v, want one", snap.DangerZones)
	}
	z := snap.DangerZones[0]
	// +30% over 5m also satisfies the 1m spike test; BUILDING must win.
	if z.Kind != DangerBuilding {
		t.Fatalf("danger kind = %v, want BUILDING", z.Kind)
	}
	if !almostEqual(z.ROC5m, 30) {
		t.Fatalf("5m ROC = %v, want 30", z.ROC5m)
	}
	if snap.Pinning.Pinning {
		t.Fatal("a danger zone must veto pinning")
	}
}

func TestProcessSinceOpenUsesLockedBaseline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, clock := testEngine(t, cfg, time.Minute) // 09:31, baseline window

	if _, _, err := e.Process(testChain(5900, quote(5900, 1000))); err != nil {
		t.Fatalf("baseline poll: %v", err)
	}

	clock.Advance(10 * time.Minute) // 09:41, baseline frozen at 1000
	snap, _, err := e.Process(testChain(5900, quote(5900, 1200)))
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}

	roc := snap.Strikes[0].ROC.SinceOpen
	if !almostEqual(roc, 20) {
		t.Fatalf("since-open ROC = %v, want 20 against the locked baseline", roc)
	}
}

func TestProcessPreMarketSinceOpenIsZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, _ := testEngine(t, cfg, -30*time.Minute) // 09:00

	snap, _, err := e.Process(testChain(5900, quote(5900, 1000)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if snap.Session != SessionPreMarket {
		t.Fatalf("session = %v, want PRE_MARKET", snap.Session)
	}
	if got := snap.Strikes[0].ROC.SinceOpen; got != 0 {
		t.Fatalf("pre-open since-open ROC = %v, want 0", got)
	}
}

func TestProcessChainTimestampOverridesClock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, _ := testEngine(t, cfg, time.Hour)

	ts := time.Date(2026, 8, 20, 11, 15, 0, 0, time.UTC)
	c := testChain(5900, quote(5900, 500))
	c.Timestamp = ts.Unix()

	snap, _, err := e.Process(c)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !snap.Timestamp.Equal(ts) {
		t.Fatalf("snapshot timestamp = %v, want %v from the chain", snap.Timestamp, ts)
	}
}

func TestProcessExpectedMoveEMA(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, clock := testEngine(t, cfg, time.Hour)

	snap, _, err := e.Process(testChain(5900, quote(5900, 500)))
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	seed := 5900 * 0.15 / math.Sqrt(252)
	if math.Abs(snap.ExpectedMove-seed) > 1e-9 {
		t.Fatalf("seeded expected move = %v, want %v", snap.ExpectedMove, seed)
	}

	// Doubling VIX moves the EMA by the configured alpha, not all the way.
	clock.Advance(time.Minute)
	c := testChain(5900, quote(5900, 500))
	c.VIX = 30
	snap, _, err = e.Process(c)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	raw := 5900 * 0.30 / math.Sqrt(252)
	want := cfg.ExpectedMoveEMA*raw + (1-cfg.ExpectedMoveEMA)*seed
	if math.Abs(snap.ExpectedMove-want) > 1e-9 {
		t.Fatalf("EMA expected move = %v, want %v", snap.ExpectedMove, want)
	}
}

func TestResetClearsSessionState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmoothingEnabled = false
	e, _ := testEngine(t, cfg, time.Minute)

	if _, _, err := e.Process(testChain(5900, quote(5900, 1000))); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !e.ranks.locked || e.Previous() == nil {
		t.Fatal("expected session state after a poll")
	}

	e.Reset()
	if e.ranks.locked {
		t.Fatal("Reset left the rank table locked")
	}
	if e.Previous() != nil {
		t.Fatal("Reset left a previous snapshot")
	}
	if len(e.prevGamma) != 0 || e.pressureBuf != nil {
		t.Fatal("Reset left per-strike state behind")
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	clock := session.NewManualClock(time.Now())

	if _, err := New(Config{}, clock, nil, nil); err == nil {
		t.Fatal("zero config must be rejected")
	}
	if _, err := New(DefaultConfig(), nil, nil, nil); err == nil {
		t.Fatal("nil clock must be rejected")
	}
}
