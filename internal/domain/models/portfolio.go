package models

import "time"

// PortfolioWeights is the output of one optimizer invocation. Weights are
// non-negative and sum to 1 within floating tolerance whenever Converged is
// true; a failed solve is surfaced through Converged=false and must not be
// used for sizing.
type PortfolioWeights struct {
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	Sharpe         float64            `json:"sharpe"`
	Objective      string             `json:"objective"`
	Converged      bool               `json:"converged"`
	ComputedAt     time.Time          `json:"computed_at"`
}

// FrontierPoint is one converged point on the efficient frontier sweep.
type FrontierPoint struct {
	Risk    float64            `json:"risk"`
	Return  float64            `json:"return"`
	Sharpe  float64            `json:"sharpe"`
	Weights map[string]float64 `json:"weights"`
}

// TaxAwareAllocation is a max-Sharpe allocation on withholding-adjusted
// returns, reporting both gross and net portfolio return.
type TaxAwareAllocation struct {
	PortfolioWeights
	GrossReturn   float64 `json:"gross_return"`
	NetReturn     float64 `json:"net_return"`
	TaxDrag       float64 `json:"tax_drag"`
	EffectiveRate float64 `json:"effective_rate"`
}
