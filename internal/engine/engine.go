// Package engine derives dealer gamma positioning from periodic options-chain
// snapshots: per-strike exposure, multi-horizon rate of change, regime and
// flip detection, magnet/pin/danger classification, strike probabilities,
// order-flow pressure, trade signals, and snapshot-diff alerts.
//
// The engine is a stateful streaming component with a single logical writer:
// each Process call builds one immutable snapshot and then advances the
// session state for the next poll. Hosts sharing one instance across
// goroutines must serialize calls themselves.
package engine

import (
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/quantsight/gexflow/internal/chain"
	"github.com/quantsight/gexflow/internal/session"
)

// ErrNilChain is the only hard failure a poll can produce.
var ErrNilChain = errors.New("nil chain")

// Session-scoped capture windows after open.
const (
	baselineWindow = 5 * time.Minute
	rankLockWindow = 10 * time.Minute
)

const tradingDaysPerYear = 252

// contractMultiplier converts per-contract gamma into share-equivalent exposure.
const contractMultiplier = 100

// Engine owns all session state. Construct once per trading session and call
// Reset at session boundaries; failing to reset carries stale baselines into
// the next day.
type Engine struct {
	cfg    Config
	clock  session.Clock
	model  Model
	logger *zap.Logger

	smoother    *smoother
	history     *historyBook
	ranks       *rankTable
	pressureBuf []float64

	prevGamma    map[float64]float64
	lastSpot     float64
	expectedMove float64
	emSeeded     bool
	prev         *GammaSnapshot
}

// New builds an engine. The model may be nil; the clock may not.
func New(cfg Config, clock session.Clock, model Model, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		return nil, errors.New("session clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:    cfg,
		clock:  clock,
		model:  model,
		logger: logger,
	}
	e.Reset()
	return e, nil
}

// Reset clears all session-scoped state: history, smoothing windows, locked
// baselines and ranks, the pressure buffer, and the previous snapshot.
func (e *Engine) Reset() {
	e.smoother = newSmoother(e.cfg)
	e.history = newHistoryBook(e.cfg.HistoryRetention)
	e.ranks = newRankTable()
	e.pressureBuf = nil
	e.prevGamma = make(map[float64]float64)
	e.lastSpot = 0
	e.expectedMove = 0
	e.emSeeded = false
	e.prev = nil
	e.logger.Info("engine session state reset")
}

// Previous returns the last completed snapshot, if any.
func (e *Engine) Previous() *GammaSnapshot { return e.prev }

// Process ingests one raw chain poll and returns the derived snapshot plus
// snapshot-diff alerts. Missing spot or an empty strike list yields a NoData
// snapshot without touching session state; only a nil chain is an error.
func (e *Engine) Process(c *chain.Chain) (*GammaSnapshot, []Alert, error) {
	if c == nil {
		return nil, nil, ErrNilChain
	}

	now := e.clock.Now()
	if c.Timestamp > 0 {
		now = time.Unix(c.Timestamp, 0).In(now.Location())
	}

	open := e.clock.SessionOpen(now)
	sessionStatus := e.sessionStatus(now, open)

	if c.Spot <= 0 || len(c.Strikes) == 0 {
		e.logger.Warn("no usable chain data this poll",
			zap.String("ticker", c.Ticker),
			zap.Float64("spot", c.Spot),
			zap.Int("strikes", len(c.Strikes)),
		)
		return &GammaSnapshot{
			Ticker:     c.Ticker,
			Expiration: c.Expiration,
			Timestamp:  now,
			Session:    sessionStatus,
			Regime:     RegimeNeutral,
			PrevRegime: RegimeNeutral,
			NoData:     true,
		}, nil, nil
	}

	spotMovePct := 0.0
	if e.lastSpot > 0 {
		spotMovePct = math.Abs(c.Spot-e.lastSpot) / e.lastSpot * 100
	}

	em := e.smoothExpectedMove(c.Spot, c.VIX)

	// Freeze the open baseline once its capture window has elapsed.
	if !now.Before(open.Add(baselineWindow)) {
		e.smoother.lockBaseline()
	}
	inBaselineWindow := !now.Before(open) && now.Before(open.Add(baselineWindow))

	metrics := make([]StrikeMetrics, 0, len(c.Strikes))
	for _, q := range c.Strikes {
		if q.Strike <= 0 {
			continue
		}

		raw := rawNetGamma(q)
		if inBaselineWindow {
			e.smoother.observeBaseline(q.Strike, raw)
		}

		metrics = append(metrics, StrikeMetrics{
			Strike:      q.Strike,
			NetGamma:    e.smoother.smooth(q.Strike, raw, spotMovePct),
			CallGamma:   q.CallGamma,
			PutGamma:    q.PutGamma,
			CallOI:      q.CallOI,
			PutOI:       q.PutOI,
			CallVolume:  q.CallVolume,
			PutVolume:   q.PutVolume,
			CallBidSize: q.CallBidSize,
			CallAskSize: q.CallAskSize,
			PutBidSize:  q.PutBidSize,
			PutAskSize:  q.PutAskSize,
			CallIV:      q.CallIV,
			PutIV:       q.PutIV,
			Danger:      DangerNone,
		})
	}

	if len(metrics) == 0 {
		return &GammaSnapshot{
			Ticker:     c.Ticker,
			Expiration: c.Expiration,
			Timestamp:  now,
			Session:    sessionStatus,
			Spot:       c.Spot,
			VIX:        c.VIX,
			Regime:     RegimeNeutral,
			PrevRegime: RegimeNeutral,
			NoData:     true,
		}, nil, nil
	}

	// Time series and rate of change.
	for i := range metrics {
		m := &metrics[i]
		e.history.append(m.Strike, now, m.NetGamma)
		m.ROC = ROCSet{
			Min1:      e.history.rocAt(m.Strike, now, time.Minute, m.NetGamma),
			Min5:      e.history.rocAt(m.Strike, now, 5*time.Minute, m.NetGamma),
			Min30:     e.history.rocAt(m.Strike, now, 30*time.Minute, m.NetGamma),
			Hour1:     e.history.rocAt(m.Strike, now, time.Hour, m.NetGamma),
			Hour4:     e.history.rocAt(m.Strike, now, 4*time.Hour, m.NetGamma),
			SinceOpen: e.sinceOpenROC(m.Strike, now, open, m.NetGamma),
		}
	}

	// Lock session ranks on the first poll inside the capture window.
	if !e.ranks.locked && !now.Before(open) && now.Before(open.Add(rankLockWindow)) {
		e.ranks.lock(metrics)
		e.logger.Info("session GEX ranks locked",
			zap.Int("strikes", len(metrics)),
			zap.Float64s("majorStrikes", e.ranks.majorStrikes()),
		)
	}

	var netGamma, totalAbs float64
	for _, m := range metrics {
		netGamma += m.NetGamma
		totalAbs += math.Abs(m.NetGamma)
	}

	gexD := gexDollars(netGamma, c.Spot)
	regime := classifyRegime(gexD)

	prevRegime := regime
	regimeFlip := false
	if e.prev != nil {
		prevRegime = e.prev.Regime
		regimeFlip = regime != prevRegime
	}

	flips := detectFlips(metrics, e.prevGamma)
	flipPoint := estimateFlipPoint(metrics)
	magnets := tagMagnets(metrics, e.cfg.MagnetCount)

	e.scoreProbabilities(metrics, c.Spot, PredictionContext{
		NetGamma:     netGamma,
		TotalGamma:   totalAbs,
		FlipPoint:    flipPoint,
		Magnets:      magnets,
		VIX:          c.VIX,
		Regime:       regime,
		ExpectedMove: em,
	})

	pinStrike, pinProb := pickPin(metrics, c.Spot)
	zones := tagDangerZones(metrics)
	pinning := evaluatePinning(metrics, zones, c.Spot, pinStrike, pinProb)
	orderFlow := e.analyzeOrderFlow(metrics, c.Spot)
	signal := e.generateSignal(metrics, c.Spot, pinStrike, orderFlow.Combined)
	diagnostics := runDiagnostics(metrics, c.Spot, netGamma, flipPoint)

	snap := &GammaSnapshot{
		Ticker:         c.Ticker,
		Expiration:     c.Expiration,
		Timestamp:      now,
		Session:        sessionStatus,
		Spot:           c.Spot,
		VIX:            c.VIX,
		ExpectedMove:   em,
		NetGamma:       netGamma,
		GexDollars:     gexD,
		FlipPoint:      flipPoint,
		Regime:         regime,
		PrevRegime:     prevRegime,
		RegimeFlip:     regimeFlip,
		Strikes:        metrics,
		Magnets:        magnets,
		PinStrike:      pinStrike,
		PinProbability: pinProb,
		DangerZones:    zones,
		FlipEvents:     flips,
		Pinning:        pinning,
		OrderFlow:      orderFlow,
		Signal:         signal,
		Diagnostics:    diagnostics,
	}

	alerts := diffAlerts(e.prev, snap)

	// Advance session state for the next poll.
	for _, m := range metrics {
		e.prevGamma[m.Strike] = m.NetGamma
	}
	e.lastSpot = c.Spot
	e.prev = snap

	return snap, alerts, nil
}

// rawNetGamma computes raw net exposure at a strike: call gamma against put
// gamma scaled by open interest, falling back to per-contract gamma when
// open interest is absent on both sides.
func rawNetGamma(q chain.StrikeQuote) float64 {
	if q.CallOI > 0 || q.PutOI > 0 {
		return math.Abs(q.CallGamma)*q.CallOI*contractMultiplier -
			math.Abs(q.PutGamma)*q.PutOI*contractMultiplier
	}
	return math.Abs(q.CallGamma)*contractMultiplier - math.Abs(q.PutGamma)*contractMultiplier
}

// sinceOpenROC prefers the locked open baseline, falls back to the first
// history entry at or after the open, and reads 0 before the session opens.
func (e *Engine) sinceOpenROC(strike float64, now, open time.Time, current float64) float64 {
	if now.Before(open) {
		return 0
	}

	if base, ok := e.smoother.openBaseline(strike); ok && base != 0 {
		return (current - base) / math.Abs(base) * 100
	}

	if first, ok := e.history.firstAtOrAfter(strike, open); ok && first != 0 {
		return (current - first) / math.Abs(first) * 100
	}
	return 0
}

// smoothExpectedMove converts VIX into a daily one-sigma dollar move and
// EMA-smooths it across polls.
func (e *Engine) smoothExpectedMove(spot, vix float64) float64 {
	if spot <= 0 || vix <= 0 {
		return e.expectedMove
	}

	raw := spot * (vix / 100) / math.Sqrt(tradingDaysPerYear)
	if !e.emSeeded {
		e.expectedMove = raw
		e.emSeeded = true
	} else {
		alpha := e.cfg.ExpectedMoveEMA
		e.expectedMove = alpha*raw + (1-alpha)*e.expectedMove
	}
	return e.expectedMove
}

func (e *Engine) sessionStatus(now, open time.Time) SessionStatus {
	if !e.clock.IsTradingDay(now) {
		return SessionClosed
	}
	if now.Before(open) {
		return SessionPreMarket
	}
	if !now.Before(e.clock.SessionClose(now)) {
		return SessionClosed
	}
	return SessionOpen
}
