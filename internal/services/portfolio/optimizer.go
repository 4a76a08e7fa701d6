package portfolio

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"QuantCore/internal/domain/models"
	"QuantCore/pkg/logger"
)

// Objective names for the Optimize dispatch and snapshot reporting.
const (
	ObjectiveMaxSharpe          = "max_sharpe"
	ObjectiveRiskParity         = "risk_parity"
	ObjectiveAdaptiveRiskParity = "adaptive_risk_parity"
	ObjectiveTaxAware           = "tax_aware"
)

// degeneratePenalty is returned by the objective when portfolio volatility
// collapses, steering the solver away instead of dividing by near-zero.
const degeneratePenalty = 1e6

// Config holds the optimizer parameters.
type Config struct {
	Objective         string
	RiskFreeRate      float64
	FrontierPoints    int
	TaxRate           float64
	HoldingPeriodDays int
	MinObservations   int
	VolFloor          float64
}

// Inputs is an immutable return/covariance snapshot. Symbols fixes the
// ordering of Mu and Sigma rows; callers build it once and the optimizer
// never mutates it, so concurrent solves on one snapshot are safe.
type Inputs struct {
	Symbols []string
	Mu      []float64     // expected return per symbol
	Sigma   *mat.SymDense // covariance matrix in Symbols order

	// ForecastVols carries short-horizon volatility estimates for the
	// adaptive risk-parity objective. Optional; missing symbols fall back
	// to the historical volatility on Sigma's diagonal.
	ForecastVols map[string]float64
}

// Optimizer computes allocation weights under several objectives. Every mode
// returns fresh PortfolioWeights with an explicit Converged flag; failed
// solves never leak partial weights.
type Optimizer struct {
	cfg Config
	log *logger.Logger
}

// New creates an optimizer.
func New(cfg Config, log *logger.Logger) *Optimizer {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.FrontierPoints < 2 {
		cfg.FrontierPoints = 20
	}
	if cfg.VolFloor <= 0 {
		cfg.VolFloor = 1e-4
	}
	return &Optimizer{cfg: cfg, log: log}
}

// Optimize dispatches on the configured objective.
func (o *Optimizer) Optimize(in Inputs) models.PortfolioWeights {
	switch o.cfg.Objective {
	case ObjectiveRiskParity:
		return o.RiskParity(in)
	case ObjectiveAdaptiveRiskParity:
		return o.AdaptiveRiskParity(in, in.ForecastVols)
	case ObjectiveTaxAware:
		return o.TaxAware(in, nil).PortfolioWeights
	default:
		return o.MaxSharpe(in)
	}
}

// MaxSharpe finds long-only weights summing to one that maximize
// (return − risk-free) / volatility. The weight simplex is enforced by
// construction: the solver works in an unconstrained space that is mapped
// through a softmax, so every candidate is a valid allocation.
func (o *Optimizer) MaxSharpe(in Inputs) models.PortfolioWeights {
	out := models.PortfolioWeights{Objective: ObjectiveMaxSharpe, ComputedAt: time.Now()}
	n := len(in.Symbols)
	if n == 0 || len(in.Mu) != n || in.Sigma == nil {
		return out
	}
	if n == 1 {
		out.Weights = map[string]float64{in.Symbols[0]: 1}
		out.ExpectedReturn = in.Mu[0]
		out.Volatility = math.Sqrt(in.Sigma.At(0, 0))
		out.Sharpe = sharpe(out.ExpectedReturn, out.Volatility, o.cfg.RiskFreeRate)
		out.Converged = true
		return out
	}

	objective := func(x []float64) float64 {
		w := softmax(x)
		ret, vol := portfolioMoments(w, in.Mu, in.Sigma)
		if vol < 1e-9 {
			return degeneratePenalty
		}
		return -(ret - o.cfg.RiskFreeRate) / vol
	}

	x, ok := o.solve(objective, n)
	if !ok {
		return out
	}

	w := softmax(x)
	ret, vol := portfolioMoments(w, in.Mu, in.Sigma)
	out.Weights = weightMap(in.Symbols, w)
	out.ExpectedReturn = ret
	out.Volatility = vol
	out.Sharpe = sharpe(ret, vol, o.cfg.RiskFreeRate)
	out.Converged = true
	return out
}

// solve runs Nelder-Mead from a flat start and reports whether the result is
// usable. The caller maps the unconstrained point back to the simplex.
func (o *Optimizer) solve(fn func([]float64) float64, n int) ([]float64, bool) {
	problem := optimize.Problem{Func: fn}
	init := make([]float64, n)

	result, err := optimize.Minimize(problem, init, &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 100,
		},
		MajorIterations: 2000,
	}, &optimize.NelderMead{})
	if err != nil {
		o.log.Warn("optimizer solve failed", logger.Error(err))
		return nil, false
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) || result.F >= degeneratePenalty {
		return nil, false
	}
	return result.X, true
}

// softmax maps an unconstrained vector onto the probability simplex.
func softmax(x []float64) []float64 {
	maxv := x[0]
	for _, v := range x[1:] {
		if v > maxv {
			maxv = v
		}
	}
	out := make([]float64, len(x))
	sum := 0.0
	for i, v := range x {
		out[i] = math.Exp(v - maxv)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// portfolioMoments returns (wᵀμ, sqrt(wᵀΣw)).
func portfolioMoments(w, mu []float64, sigma *mat.SymDense) (ret, vol float64) {
	n := len(w)
	for i := 0; i < n; i++ {
		ret += w[i] * mu[i]
		for j := 0; j < n; j++ {
			vol += w[i] * w[j] * sigma.At(i, j)
		}
	}
	if vol < 0 {
		vol = 0
	}
	return ret, math.Sqrt(vol)
}

func sharpe(ret, vol, riskFree float64) float64 {
	if vol < 1e-12 {
		return 0
	}
	return (ret - riskFree) / vol
}

func weightMap(symbols []string, w []float64) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		out[sym] = w[i]
	}
	return out
}

// sortedSymbols gives Inputs builders a stable ordering.
func sortedSymbols(m map[string][]float64) []string {
	out := make([]string, 0, len(m))
	for sym := range m {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
