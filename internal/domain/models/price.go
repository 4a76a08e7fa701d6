package models

import "time"

// OrderFlow labels the direction of aggressor pressure inferred for a tick.
type OrderFlow string

const (
	FlowBuy     OrderFlow = "buy"
	FlowSell    OrderFlow = "sell"
	FlowNeutral OrderFlow = "neutral"
)

// PricePoint is a single per-symbol market observation. It is immutable once
// created; derived fields are filled in by the collector before the point is
// appended to history.
type PricePoint struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`

	// Derived at ingestion time.
	Volatility float64   `json:"volatility"`
	Momentum   float64   `json:"momentum"`
	Flow       OrderFlow `json:"flow"`
}

// Mid returns the quote midpoint, falling back to last price when a side is missing.
func (p PricePoint) Mid() float64 {
	if p.Bid > 0 && p.Ask > 0 {
		return (p.Bid + p.Ask) / 2
	}
	return p.Price
}

// Spread returns the absolute bid-ask spread, zero when quotes are missing.
func (p PricePoint) Spread() float64 {
	if p.Bid > 0 && p.Ask > p.Bid {
		return p.Ask - p.Bid
	}
	return 0
}

// SpreadFraction returns the spread as a fraction of the midpoint.
func (p PricePoint) SpreadFraction() float64 {
	mid := p.Mid()
	if mid <= 0 {
		return 0
	}
	return p.Spread() / mid
}
