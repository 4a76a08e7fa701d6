package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func diagInputs(symbols []string, mu, vols []float64) Inputs {
	n := len(symbols)
	sigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sigma.SetSym(i, i, vols[i]*vols[i])
	}
	return Inputs{Symbols: symbols, Mu: mu, Sigma: sigma}
}

func assertValidWeights(t *testing.T, weights map[string]float64) {
	t.Helper()
	sum := 0.0
	for sym, w := range weights {
		assert.GreaterOrEqual(t, w, 0.0, "weight for %s must be non-negative", sym)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6, "weights must sum to one")
}

func TestRiskParityInverseVolatility(t *testing.T) {
	o := New(Config{}, nil)
	in := diagInputs(
		[]string{"A", "B", "C"},
		[]float64{0.05, 0.05, 0.05},
		[]float64{0.1, 0.2, 0.4})

	out := o.RiskParity(in)
	require.True(t, out.Converged)
	assertValidWeights(t, out.Weights)
	assert.InDelta(t, 0.571, out.Weights["A"], 0.001)
	assert.InDelta(t, 0.286, out.Weights["B"], 0.001)
	assert.InDelta(t, 0.143, out.Weights["C"], 0.001)
}

func TestAdaptiveRiskParityUsesForecastVols(t *testing.T) {
	o := New(Config{}, nil)
	in := diagInputs(
		[]string{"A", "B"},
		[]float64{0.05, 0.05},
		[]float64{0.1, 0.1})

	// Equal historical vols, but the forecast doubles B's risk.
	out := o.AdaptiveRiskParity(in, map[string]float64{"B": 0.2})
	require.True(t, out.Converged)
	assert.Equal(t, ObjectiveAdaptiveRiskParity, out.Objective)
	assertValidWeights(t, out.Weights)
	assert.InDelta(t, 2.0/3.0, out.Weights["A"], 1e-9)
	assert.InDelta(t, 1.0/3.0, out.Weights["B"], 1e-9)
}

func TestOptimizeDispatchesEveryConfigurableObjective(t *testing.T) {
	in := diagInputs(
		[]string{"A", "B"},
		[]float64{0.05, 0.08},
		[]float64{0.1, 0.2})
	in.ForecastVols = map[string]float64{"B": 0.4}

	cases := []struct {
		objective string
	}{
		{ObjectiveMaxSharpe},
		{ObjectiveRiskParity},
		{ObjectiveAdaptiveRiskParity},
		{ObjectiveTaxAware},
	}
	for _, tc := range cases {
		t.Run(tc.objective, func(t *testing.T) {
			o := New(Config{Objective: tc.objective, TaxRate: 0.15, HoldingPeriodDays: 100}, nil)
			out := o.Optimize(in)
			require.True(t, out.Converged)
			assert.Equal(t, tc.objective, out.Objective)
			assertValidWeights(t, out.Weights)
		})
	}
}

func TestOptimizeAdaptiveUsesForecastVols(t *testing.T) {
	o := New(Config{Objective: ObjectiveAdaptiveRiskParity}, nil)
	in := diagInputs(
		[]string{"A", "B"},
		[]float64{0.05, 0.05},
		[]float64{0.1, 0.1})
	in.ForecastVols = map[string]float64{"B": 0.2}

	out := o.Optimize(in)
	require.True(t, out.Converged)
	assert.Equal(t, ObjectiveAdaptiveRiskParity, out.Objective)
	assert.InDelta(t, 2.0/3.0, out.Weights["A"], 1e-9)
}

func TestMaxSharpeTiltsTowardBetterAsset(t *testing.T) {
	o := New(Config{RiskFreeRate: 0}, nil)
	in := diagInputs(
		[]string{"GOOD", "POOR"},
		[]float64{0.10, 0.02},
		[]float64{0.1, 0.1})

	out := o.MaxSharpe(in)
	require.True(t, out.Converged)
	assertValidWeights(t, out.Weights)
	assert.Greater(t, out.Weights["GOOD"], out.Weights["POOR"])
	assert.Positive(t, out.Sharpe)
}

func TestMaxSharpeSingleAssetClosedForm(t *testing.T) {
	o := New(Config{RiskFreeRate: 0.02}, nil)
	in := diagInputs([]string{"ONLY"}, []float64{0.08}, []float64{0.2})

	out := o.MaxSharpe(in)
	require.True(t, out.Converged)
	assert.InDelta(t, 1.0, out.Weights["ONLY"], 1e-9)
	assert.InDelta(t, 0.08, out.ExpectedReturn, 1e-9)
	assert.InDelta(t, 0.3, out.Sharpe, 1e-9)
}

func TestSharpeZeroWhenReturnEqualsRiskFree(t *testing.T) {
	o := New(Config{RiskFreeRate: 0.08}, nil)
	in := diagInputs([]string{"ONLY"}, []float64{0.08}, []float64{0.2})

	out := o.MaxSharpe(in)
	require.True(t, out.Converged)
	assert.Zero(t, out.Sharpe)
}

func TestMaxSharpeDegenerateCovarianceDoesNotConverge(t *testing.T) {
	o := New(Config{}, nil)
	in := diagInputs(
		[]string{"A", "B"},
		[]float64{0.05, 0.05},
		[]float64{0, 0}) // zero variance everywhere

	out := o.MaxSharpe(in)
	assert.False(t, out.Converged)
	assert.Nil(t, out.Weights, "a failed solve must not leak weights")
}

func TestMaxSharpeEmptyInputs(t *testing.T) {
	o := New(Config{}, nil)
	out := o.MaxSharpe(Inputs{})
	assert.False(t, out.Converged)
}

func TestEfficientFrontierPointsAreValid(t *testing.T) {
	o := New(Config{FrontierPoints: 8}, nil)
	in := diagInputs(
		[]string{"A", "B"},
		[]float64{0.02, 0.10},
		[]float64{0.1, 0.3})

	points := o.EfficientFrontier(in)
	require.NotEmpty(t, points)
	assert.LessOrEqual(t, len(points), 8)
	for _, p := range points {
		assertValidWeights(t, p.Weights)
		assert.GreaterOrEqual(t, p.Return, 0.02-1e-3)
		assert.LessOrEqual(t, p.Return, 0.10+1e-3)
		assert.Positive(t, p.Risk)
	}
}

func TestEfficientFrontierFlatReturnsCollapse(t *testing.T) {
	o := New(Config{FrontierPoints: 8}, nil)
	in := diagInputs(
		[]string{"A", "B"},
		[]float64{0.05, 0.05},
		[]float64{0.1, 0.3})

	points := o.EfficientFrontier(in)
	assert.LessOrEqual(t, len(points), 1)
}

func TestTaxAwareShortHoldingPaysFullRate(t *testing.T) {
	o := New(Config{TaxRate: 0.15, HoldingPeriodDays: 100}, nil)
	in := diagInputs([]string{"ONLY"}, []float64{0.10}, []float64{0.2})

	out := o.TaxAware(in, nil)
	require.True(t, out.Converged)
	assert.InDelta(t, 0.10, out.GrossReturn, 1e-9)
	assert.InDelta(t, 0.085, out.NetReturn, 1e-9) // 0.10 × (1 − 0.15)
	assert.InDelta(t, 0.015, out.TaxDrag, 1e-9)
	assert.InDelta(t, 0.15, out.EffectiveRate, 1e-9)
}

func TestTaxAwareLongHoldingPaysHalfRate(t *testing.T) {
	o := New(Config{TaxRate: 0.15, HoldingPeriodDays: 400}, nil)
	in := diagInputs([]string{"ONLY"}, []float64{0.10}, []float64{0.2})

	out := o.TaxAware(in, nil)
	require.True(t, out.Converged)
	assert.InDelta(t, 0.0925, out.NetReturn, 1e-9) // 0.10 × (1 − 0.075)
	assert.InDelta(t, 0.075, out.EffectiveRate, 1e-9)
}

func TestTaxAwarePerSymbolHoldingOverride(t *testing.T) {
	o := New(Config{TaxRate: 0.20, HoldingPeriodDays: 100}, nil)
	in := diagInputs([]string{"ONLY"}, []float64{0.10}, []float64{0.2})

	out := o.TaxAware(in, map[string]int{"ONLY": 500})
	require.True(t, out.Converged)
	assert.InDelta(t, 0.10, out.EffectiveRate, 1e-9)
}

func TestEstimateInputsAlignsAndFilters(t *testing.T) {
	o := New(Config{MinObservations: 3}, nil)
	in, err := o.EstimateInputs(map[string][]float64{
		"A":     {0.01, 0.02, 0.03, 0.04},
		"B":     {0.02, 0.02, 0.02},
		"SHORT": {0.01},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, in.Symbols)
	// A is trimmed to its last three returns: mean of 0.02, 0.03, 0.04.
	assert.InDelta(t, 0.03, in.Mu[0], 1e-9)
	assert.InDelta(t, 0.02, in.Mu[1], 1e-9)
	r, c := in.Sigma.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
}

func TestEstimateInputsBuildsForecastVols(t *testing.T) {
	o := New(Config{MinObservations: 8}, nil)
	quiet := make([]float64, 20)
	noisy := make([]float64, 20)
	for i := range quiet {
		quiet[i] = 0.01
		noisy[i] = 0.01
	}
	// The last five NOISY returns whipsaw; QUIET stays flat.
	for i := 15; i < 20; i++ {
		if i%2 == 0 {
			noisy[i] = 0.05
		} else {
			noisy[i] = -0.05
		}
	}

	in, err := o.EstimateInputs(map[string][]float64{"QUIET": quiet, "NOISY": noisy})
	require.NoError(t, err)
	assert.Greater(t, in.ForecastVols["NOISY"], 0.0)
	assert.NotContains(t, in.ForecastVols, "QUIET", "flat recent window carries no forecast")
}

func TestEstimateInputsErrsWithNoUsableSeries(t *testing.T) {
	o := New(Config{MinObservations: 5}, nil)
	_, err := o.EstimateInputs(map[string][]float64{"A": {0.01}})
	assert.Error(t, err)
}
