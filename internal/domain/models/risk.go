package models

// RiskTier buckets a stop-loss recommendation by how tight it is.
type RiskTier string

const (
	TierLow    RiskTier = "low"
	TierMedium RiskTier = "medium"
	TierHigh   RiskTier = "high"
)

// RiskAssessment is an empirical tail-risk estimate over a return series.
// Ok distinguishes a genuine zero from the empty-tail fallback.
type RiskAssessment struct {
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
	MaxLossPct float64 `json:"max_loss_pct"`
	Confidence float64 `json:"confidence"`
	Ok         bool    `json:"ok"`
}

// StopLossRecommendation is an ATR-derived stop level with a confidence
// adjustment applied on top of the raw stop.
type StopLossRecommendation struct {
	Symbol       string   `json:"symbol"`
	RawStop      float64  `json:"raw_stop"`
	AdjustedStop float64  `json:"adjusted_stop"`
	ATR          float64  `json:"atr"`
	Tier         RiskTier `json:"risk_tier"`
}

// HedgeRecommendation suggests an offsetting instrument for concentrated
// exposure. Ratio is scaled by the excess over the configured threshold.
type HedgeRecommendation struct {
	Symbol     string  `json:"symbol"`
	Instrument string  `json:"instrument"`
	Ratio      float64 `json:"ratio"`
	Rationale  string  `json:"rationale"`
}

// GateDecision is the outcome of the order-level risk gate. A rejection is a
// normal control-flow result, not an error. Code is a stable low-cardinality
// label for metrics; Reason carries the human-readable detail.
type GateDecision struct {
	Allowed bool   `json:"allowed"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
