package engine

import "time"

// Regime classifies aggregate dealer gamma exposure in GEX-dollar terms.
type Regime string

const (
	RegimePositive Regime = "POSITIVE"
	RegimeNegative Regime = "NEGATIVE"
	RegimeNeutral  Regime = "NEUTRAL"
)

// SessionStatus places the poll relative to the trading session.
type SessionStatus string

const (
	SessionPreMarket SessionStatus = "PRE_MARKET"
	SessionOpen      SessionStatus = "OPEN"
	SessionClosed    SessionStatus = "CLOSED"
)

// FlipDirection is the sign transition of a strike's net gamma.
type FlipDirection string

const (
	FlipPosToNeg FlipDirection = "POS_TO_NEG"
	FlipNegToPos FlipDirection = "NEG_TO_POS"
)

// DangerKind tags a strike's danger-zone classification. The kinds are
// mutually exclusive; evaluation order is Building, Collapsing, Spike.
type DangerKind string

const (
	DangerNone       DangerKind = "NONE"
	DangerBuilding   DangerKind = "BUILDING"
	DangerCollapsing DangerKind = "COLLAPSING"
	DangerSpike      DangerKind = "SPIKE"
)

// FlowDirection classifies order-flow direction.
type FlowDirection string

const (
	FlowBullish FlowDirection = "BULLISH"
	FlowBearish FlowDirection = "BEARISH"
	FlowNeutral FlowDirection = "NEUTRAL"
)

// FlowStrength classifies order-flow magnitude.
type FlowStrength string

const (
	StrengthWeak     FlowStrength = "WEAK"
	StrengthModerate FlowStrength = "MODERATE"
	StrengthStrong   FlowStrength = "STRONG"
)

// Confidence grades how much weight downstream consumers should give a result.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// ROCSet holds rate-of-change readings for one strike across all horizons.
// Values are percentages; a horizon with no usable history reads 0.
type ROCSet struct {
	Min1      float64 `json:"roc_1m"`
	Min5      float64 `json:"roc_5m"`
	Min30     float64 `json:"roc_30m"`
	Hour1     float64 `json:"roc_1h"`
	Hour4     float64 `json:"roc_4h"`
	SinceOpen float64 `json:"roc_since_open"`
}

// StrikeMetrics is the fully derived picture of one strike for one poll.
// It is rebuilt from scratch every poll and never mutated afterward.
type StrikeMetrics struct {
	Strike      float64 `json:"strike"`
	NetGamma    float64 `json:"net_gamma"` // smoothed
	CallGamma   float64 `json:"call_gamma"`
	PutGamma    float64 `json:"put_gamma"`
	CallOI      float64 `json:"call_oi"`
	PutOI       float64 `json:"put_oi"`
	CallVolume  float64 `json:"call_volume"`
	PutVolume   float64 `json:"put_volume"`
	CallBidSize float64 `json:"call_bid_size"`
	CallAskSize float64 `json:"call_ask_size"`
	PutBidSize  float64 `json:"put_bid_size"`
	PutAskSize  float64 `json:"put_ask_size"`
	CallIV      float64 `json:"call_iv"`
	PutIV       float64 `json:"put_iv"`

	// Probability is normalized across the snapshot to sum to 100.
	Probability float64 `json:"probability"`

	ROC ROCSet `json:"roc"`

	IsMagnet   bool          `json:"is_magnet"`
	MagnetRank int           `json:"magnet_rank,omitempty"` // 1 = largest
	IsPin      bool          `json:"is_pin"`
	Danger     DangerKind    `json:"danger"`
	Flip       FlipDirection `json:"flip,omitempty"`
}

// FlipEvent records a per-strike net-gamma sign change between polls.
type FlipEvent struct {
	Strike    float64       `json:"strike"`
	Direction FlipDirection `json:"direction"`
	Previous  float64       `json:"previous"`
	Current   float64       `json:"current"`
}

// DangerZone records a strike tagged with a danger classification.
type DangerZone struct {
	Strike float64    `json:"strike"`
	Kind   DangerKind `json:"kind"`
	ROC1m  float64    `json:"roc_1m"`
	ROC5m  float64    `json:"roc_5m"`
}

// PinningResult reports whether pinning conditions currently hold.
type PinningResult struct {
	Pinning        bool    `json:"pinning"`
	PinStrike      float64 `json:"pin_strike"`
	Probability    float64 `json:"probability"`
	SpotInPinZone  bool    `json:"spot_in_pin_zone"`
	MeanAbsROC     float64 `json:"mean_abs_roc"`
	DangerZoneFree bool    `json:"danger_zone_free"`
}

// PressureResult is the bid/ask resting-size pressure reading near the money.
// Valid is false when aggregate depth is below the configured minimum; the
// remaining fields are then zero/neutral and the smoothing buffer is untouched.
type PressureResult struct {
	Valid     bool          `json:"valid"`
	Raw       float64       `json:"raw"`
	Smoothed  float64       `json:"smoothed"`
	Depth     float64       `json:"depth"`
	Direction FlowDirection `json:"direction"`
	Strength  FlowStrength  `json:"strength"`
}

// FlowVolumeResult is the volume-weighted GEX flow reading.
type FlowVolumeResult struct {
	CallFlow  float64       `json:"call_flow"`
	PutFlow   float64       `json:"put_flow"`
	NetFlow   float64       `json:"net_flow"`
	Imbalance float64       `json:"imbalance"` // |net| / (call+put)
	Direction FlowDirection `json:"direction"`
	Strength  FlowStrength  `json:"strength"`
}

// CombinedFlow merges pressure and volume flow into one signal.
type CombinedFlow struct {
	Signal     string        `json:"signal"`
	Direction  FlowDirection `json:"direction"`
	Confidence Confidence    `json:"confidence"`
	Divergence bool          `json:"divergence"`
}

// OrderFlow groups all order-flow outputs for one poll.
type OrderFlow struct {
	Pressure PressureResult   `json:"pressure"`
	Volume   FlowVolumeResult `json:"volume"`
	Combined CombinedFlow     `json:"combined"`
}

// SignalKind is the discrete trade recommendation.
type SignalKind string

const (
	SignalSellPremium    SignalKind = "SELL_PREMIUM"
	SignalBullishBias    SignalKind = "BULLISH_BIAS"
	SignalBearishBias    SignalKind = "BEARISH_BIAS"
	SignalBreakoutLikely SignalKind = "BREAKOUT_LIKELY"
	SignalStrongPin      SignalKind = "STRONG_PIN"
	SignalFlowDriven     SignalKind = "FLOW_DRIVEN"
	SignalNeutralWait    SignalKind = "NEUTRAL_WAIT"
	SignalMixed          SignalKind = "MIXED_SIGNALS"
)

// TradeSignal is the pattern-matched recommendation plus its evidence.
type TradeSignal struct {
	Kind          SignalKind `json:"kind"`
	Confidence    Confidence `json:"confidence"`
	Building      int        `json:"building"`
	BuildingAbove int        `json:"building_above"`
	BuildingBelow int        `json:"building_below"`
	Decaying      int        `json:"decaying"`
	FlowAgrees    bool       `json:"flow_agrees"`
	Reason        string     `json:"reason"`
}

// Diagnostics is the flow/skew diagnostic pass over one snapshot.
type Diagnostics struct {
	VolumePressure   float64 `json:"volume_pressure"`    // call vol / put vol
	NearATMCallShare float64 `json:"near_atm_call_share"`
	CallShare        float64 `json:"call_share"`
	LottoTurnover    float64 `json:"lotto_turnover"` // far-OTM call volume vs OI
	FarOTMCallShare  float64 `json:"far_otm_call_share"`
	LottoCallShare   float64 `json:"lotto_call_share"`

	// LottoOIEstimated marks the turnover denominator as approximated from
	// gamma magnitude because true open interest was absent. Treat as an
	// estimate, not ground truth.
	LottoOIEstimated bool `json:"lotto_oi_estimated"`

	Positioning string  `json:"positioning"` // HEDGING, OVERWRITE, SPECULATION, BALANCED
	PutCallSkew float64 `json:"put_call_skew"`
	CallSkew    float64 `json:"call_skew"`

	Rating           FlowDirection `json:"rating"`
	RatingConfidence Confidence    `json:"rating_confidence"`
	Score            int           `json:"score"`
}

// GammaSnapshot is the engine's complete output for one poll. It is immutable
// once built; callers must not modify it or anything it references.
type GammaSnapshot struct {
	Ticker     string        `json:"ticker"`
	Expiration string        `json:"expiration"`
	Timestamp  time.Time     `json:"timestamp"`
	Session    SessionStatus `json:"session"`

	Spot         float64 `json:"spot"`
	VIX          float64 `json:"vix"`
	ExpectedMove float64 `json:"expected_move"`

	NetGamma   float64 `json:"net_gamma"`
	GexDollars float64 `json:"gex_dollars"`
	FlipPoint  float64 `json:"flip_point"`

	Regime     Regime `json:"regime"`
	PrevRegime Regime `json:"prev_regime"`
	RegimeFlip bool   `json:"regime_flip"`

	Strikes        []StrikeMetrics `json:"strikes"`
	Magnets        []float64       `json:"magnets"` // strike prices, rank order
	PinStrike      float64         `json:"pin_strike"`
	PinProbability float64         `json:"pin_probability"`
	DangerZones    []DangerZone    `json:"danger_zones"`
	FlipEvents     []FlipEvent     `json:"flip_events"`
	Pinning        PinningResult   `json:"pinning"`
	OrderFlow      OrderFlow       `json:"order_flow"`
	Signal         TradeSignal     `json:"signal"`
	Diagnostics    Diagnostics     `json:"diagnostics"`

	// NoData marks a poll that carried no usable input (missing spot or an
	// empty strike list). All derived fields are zero/neutral.
	NoData bool `json:"no_data,omitempty"`
}

// AlertType enumerates snapshot-diff alert categories.
type AlertType string

const (
	AlertGammaFlip    AlertType = "GAMMA_FLIP"
	AlertRegimeChange AlertType = "REGIME_CHANGE"
	AlertMagnetChange AlertType = "MAGNET_CHANGE"
	AlertDangerZone   AlertType = "DANGER_ZONE"
	AlertPinZone      AlertType = "PIN_ZONE"
	AlertGammaSurge   AlertType = "GAMMA_SURGE"
)

// AlertSeverity grades alert urgency.
type AlertSeverity string

const (
	SeverityInfo AlertSeverity = "INFO"
	SeverityHigh AlertSeverity = "HIGH"
)

// Alert is one snapshot-to-snapshot change notification.
type Alert struct {
	ID       string        `json:"id"`
	Type     AlertType     `json:"type"`
	Severity AlertSeverity `json:"severity"`
	Strike   float64       `json:"strike,omitempty"`
	Message  string        `json:"message"`
	Time     time.Time     `json:"time"`
}
