package portfolio

import (
	"math"

	"QuantCore/internal/domain/models"
)

// EfficientFrontier sweeps target-return levels between the lowest and
// highest per-symbol expected return, minimizing variance at each level.
// Targets where the solve fails to converge are skipped rather than
// zero-filled, so the returned slice may be shorter than the configured
// point count.
func (o *Optimizer) EfficientFrontier(in Inputs) []models.FrontierPoint {
	n := len(in.Symbols)
	if n == 0 || len(in.Mu) != n || in.Sigma == nil {
		return nil
	}

	lo, hi := in.Mu[0], in.Mu[0]
	for _, m := range in.Mu[1:] {
		lo = math.Min(lo, m)
		hi = math.Max(hi, m)
	}
	if hi-lo < 1e-12 {
		// Flat return surface collapses the sweep to a single
		// minimum-variance point.
		if p, ok := o.frontierPoint(in, lo); ok {
			return []models.FrontierPoint{p}
		}
		return nil
	}

	points := make([]models.FrontierPoint, 0, o.cfg.FrontierPoints)
	step := (hi - lo) / float64(o.cfg.FrontierPoints-1)
	for i := 0; i < o.cfg.FrontierPoints; i++ {
		target := lo + step*float64(i)
		if p, ok := o.frontierPoint(in, target); ok {
			points = append(points, p)
		}
	}
	return points
}

// frontierPoint minimizes variance with a quadratic penalty pulling the
// portfolio return onto the target.
func (o *Optimizer) frontierPoint(in Inputs, target float64) (models.FrontierPoint, bool) {
	const returnPenalty = 1e4

	objective := func(x []float64) float64 {
		w := softmax(x)
		ret, vol := portfolioMoments(w, in.Mu, in.Sigma)
		miss := ret - target
		return vol*vol + returnPenalty*miss*miss
	}

	x, ok := o.solve(objective, len(in.Symbols))
	if !ok {
		return models.FrontierPoint{}, false
	}

	w := softmax(x)
	ret, vol := portfolioMoments(w, in.Mu, in.Sigma)
	return models.FrontierPoint{
		Risk:    vol,
		Return:  ret,
		Sharpe:  sharpe(ret, vol, o.cfg.RiskFreeRate),
		Weights: weightMap(in.Symbols, w),
	}, true
}
