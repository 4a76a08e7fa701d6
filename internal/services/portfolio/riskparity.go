package portfolio

import (
	"math"
	"time"

	"QuantCore/internal/domain/models"
)

// RiskParity allocates proportionally to inverse volatility. Closed form, no
// solver involved, so it converges whenever at least one symbol has usable
// variance.
func (o *Optimizer) RiskParity(in Inputs) models.PortfolioWeights {
	if in.Sigma == nil {
		return models.PortfolioWeights{Objective: ObjectiveRiskParity, ComputedAt: time.Now()}
	}
	n := len(in.Symbols)
	vols := make([]float64, n)
	for i := 0; i < n; i++ {
		vols[i] = math.Sqrt(in.Sigma.At(i, i))
	}
	return o.inverseVolWeights(in, vols, ObjectiveRiskParity)
}

// AdaptiveRiskParity is risk parity with externally supplied forecast
// volatilities substituted for the historical ones. Symbols missing from the
// forecast map fall back to historical volatility.
func (o *Optimizer) AdaptiveRiskParity(in Inputs, forecast map[string]float64) models.PortfolioWeights {
	if in.Sigma == nil {
		return models.PortfolioWeights{Objective: ObjectiveAdaptiveRiskParity, ComputedAt: time.Now()}
	}
	n := len(in.Symbols)
	vols := make([]float64, n)
	for i, sym := range in.Symbols {
		if v, ok := forecast[sym]; ok && v > 0 {
			vols[i] = v
			continue
		}
		vols[i] = math.Sqrt(in.Sigma.At(i, i))
	}
	return o.inverseVolWeights(in, vols, ObjectiveAdaptiveRiskParity)
}

func (o *Optimizer) inverseVolWeights(in Inputs, vols []float64, objective string) models.PortfolioWeights {
	out := models.PortfolioWeights{Objective: objective, ComputedAt: time.Now()}
	n := len(in.Symbols)
	if n == 0 || in.Sigma == nil || len(in.Mu) != n {
		return out
	}

	inv := make([]float64, n)
	sum := 0.0
	for i, v := range vols {
		if v < o.cfg.VolFloor {
			v = o.cfg.VolFloor
		}
		inv[i] = 1 / v
		sum += inv[i]
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return out
	}
	for i := range inv {
		inv[i] /= sum
	}

	ret, vol := portfolioMoments(inv, in.Mu, in.Sigma)
	out.Weights = weightMap(in.Symbols, inv)
	out.ExpectedReturn = ret
	out.Volatility = vol
	out.Sharpe = sharpe(ret, vol, o.cfg.RiskFreeRate)
	out.Converged = true
	return out
}
