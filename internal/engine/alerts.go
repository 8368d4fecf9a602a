package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// gammaSurgePct is the per-strike net-gamma rise versus the prior snapshot
// that triggers a GAMMA_SURGE alert.
const gammaSurgePct = 50

func newAlert(t AlertType, sev AlertSeverity, strike float64, ts time.Time, format string, args ...any) Alert {
	return Alert{
		ID:       uuid.NewString(),
		Type:     t,
		Severity: sev,
		Strike:   strike,
		Message:  fmt.Sprintf(format, args...),
		Time:     ts,
	}
}

// diffAlerts compares the new snapshot against the previous one and emits
// change notifications. The first poll of a session produces no alerts.
func diffAlerts(prev, cur *GammaSnapshot) []Alert {
	if prev == nil || prev.NoData || cur == nil || cur.NoData {
		return nil
	}

	var alerts []Alert
	ts := cur.Timestamp

	for _, ev := range cur.FlipEvents {
		alerts = append(alerts, newAlert(AlertGammaFlip, SeverityInfo, ev.Strike, ts,
			"strike %.0f net gamma flipped %s (%.0f -> %.0f)", ev.Strike, ev.Direction, ev.Previous, ev.Current))
	}

	if cur.RegimeFlip {
		alerts = append(alerts, newAlert(AlertRegimeChange, SeverityHigh, 0, ts,
			"gamma regime changed %s -> %s (%.2fB GEX dollars)", cur.PrevRegime, cur.Regime, cur.GexDollars/1e9))
	}

	if len(prev.Magnets) > 0 && len(cur.Magnets) > 0 && prev.Magnets[0] != cur.Magnets[0] {
		alerts = append(alerts, newAlert(AlertMagnetChange, SeverityInfo, cur.Magnets[0], ts,
			"top magnet moved %.0f -> %.0f", prev.Magnets[0], cur.Magnets[0]))
	}

	prevDanger := make(map[float64]bool, len(prev.DangerZones))
	for _, z := range prev.DangerZones {
		prevDanger[z.Strike] = true
	}
	for _, z := range cur.DangerZones {
		if !prevDanger[z.Strike] {
			alerts = append(alerts, newAlert(AlertDangerZone, SeverityHigh, z.Strike, ts,
				"strike %.0f entered %s danger zone (1m %.1f%%, 5m %.1f%%)", z.Strike, z.Kind, z.ROC1m, z.ROC5m))
		}
	}

	if cur.Pinning.SpotInPinZone && !prev.Pinning.SpotInPinZone {
		alerts = append(alerts, newAlert(AlertPinZone, SeverityInfo, cur.PinStrike, ts,
			"spot %.2f entered the pin zone around %.0f (%.1f%% probability)", cur.Spot, cur.PinStrike, cur.PinProbability))
	}

	prevGamma := make(map[float64]float64, len(prev.Strikes))
	for _, m := range prev.Strikes {
		prevGamma[m.Strike] = m.NetGamma
	}
	for _, m := range cur.Strikes {
		old, ok := prevGamma[m.Strike]
		if !ok || old == 0 {
			continue
		}
		risePct := (m.NetGamma - old) / math.Abs(old) * 100
		if risePct >= gammaSurgePct {
			alerts = append(alerts, newAlert(AlertGammaSurge, SeverityInfo, m.Strike, ts,
				"strike %.0f net gamma rose %.0f%% since last poll", m.Strike, risePct))
		}
	}

	return alerts
}
