package chain

// StrikeQuote is one row of the raw options chain for a single strike.
// Fields missing on the wire decode to zero; the engine treats zero as absent.
type StrikeQuote struct {
	Strike      float64 `json:"strike"`
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
}

// Chain is one poll's worth of raw chain data for a single underlying.
type Chain struct {
	Ticker     string        `json:"ticker"`
	Expiration string        `json:"expiration"`
	Timestamp  int64         `json:"timestamp"` // unix seconds; 0 means "use wall clock"
	Spot       float64       `json:"spot"`
	VIX        float64       `json:"vix"`
	Strikes    []StrikeQuote `json:"strikes"`
}
