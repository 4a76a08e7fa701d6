package portfolio

import (
	"QuantCore/internal/domain/models"
)

// TaxAware discounts each expected return by the withholding estimate and
// runs max-Sharpe on the net figures. Positions held past a year pay half the
// configured rate. Per-symbol holding periods may be supplied; symbols absent
// from the map use the configured default.
func (o *Optimizer) TaxAware(in Inputs, holdingDays map[string]int) models.TaxAwareAllocation {
	rates := make([]float64, len(in.Symbols))
	netMu := make([]float64, len(in.Mu))
	for i, sym := range in.Symbols {
		days := o.cfg.HoldingPeriodDays
		if d, ok := holdingDays[sym]; ok {
			days = d
		}
		rate := o.cfg.TaxRate
		if days > 365 {
			rate /= 2
		}
		rates[i] = rate
		netMu[i] = in.Mu[i] * (1 - rate)
	}

	netIn := Inputs{Symbols: in.Symbols, Mu: netMu, Sigma: in.Sigma}
	weights := o.MaxSharpe(netIn)
	weights.Objective = ObjectiveTaxAware

	out := models.TaxAwareAllocation{PortfolioWeights: weights}
	if !weights.Converged {
		return out
	}

	gross := 0.0
	weightedRate := 0.0
	for i, sym := range in.Symbols {
		w := weights.Weights[sym]
		gross += w * in.Mu[i]
		weightedRate += w * rates[i]
	}
	out.GrossReturn = gross
	out.NetReturn = weights.ExpectedReturn
	out.TaxDrag = gross - weights.ExpectedReturn
	out.EffectiveRate = weightedRate
	return out
}
