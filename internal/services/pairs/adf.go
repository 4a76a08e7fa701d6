package pairs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// adfTestStat runs an augmented Dickey-Fuller regression with a constant term
// on the series and returns the t-statistic of the lagged-level coefficient:
//
//	Δy_t = c + γ·y_{t-1} + Σ φ_i·Δy_{t-i} + ε_t
//
// A strongly negative statistic rejects the unit-root hypothesis, i.e. the
// series is stationary.
func adfTestStat(y []float64, lags int) (float64, error) {
	if lags < 0 {
		lags = 0
	}
	n := len(y)
	m := n - 1 - lags // usable rows
	p := 2 + lags     // constant, lagged level, lagged diffs
	if m <= p+1 {
		return 0, fmt.Errorf("adf: series too short (%d obs, %d lags)", n, lags)
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = y[i] - y[i-1]
	}

	X := mat.NewDense(m, p, nil)
	b := mat.NewVecDense(m, nil)
	for row := 0; row < m; row++ {
		t := row + lags // index into diff for the dependent observation
		b.SetVec(row, diff[t])
		X.Set(row, 0, 1)
		X.Set(row, 1, y[t]) // y_{t-1} relative to diff[t]
		for i := 1; i <= lags; i++ {
			X.Set(row, 1+i, diff[t-i])
		}
	}

	var qr mat.QR
	qr.Factorize(X)
	beta := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(beta, false, b); err != nil {
		return 0, fmt.Errorf("adf: solve: %w", err)
	}

	// Residual variance and the standard error of gamma.
	fitted := mat.NewVecDense(m, nil)
	fitted.MulVec(X, beta)
	rss := 0.0
	for i := 0; i < m; i++ {
		r := b.AtVec(i) - fitted.AtVec(i)
		rss += r * r
	}
	s2 := rss / float64(m-p)

	var xtx, xtxInv mat.Dense
	xtx.Mul(X.T(), X)
	if err := xtxInv.Inverse(&xtx); err != nil {
		return 0, fmt.Errorf("adf: singular design matrix: %w", err)
	}
	se := math.Sqrt(s2 * xtxInv.At(1, 1))
	if se <= 0 || math.IsNaN(se) || math.IsInf(se, 0) {
		return 0, fmt.Errorf("adf: degenerate standard error")
	}

	tau := beta.AtVec(1) / se
	if math.IsNaN(tau) || math.IsInf(tau, 0) {
		return 0, fmt.Errorf("adf: non-finite statistic")
	}
	return tau, nil
}

// dfQuantiles maps Dickey-Fuller t-statistics (constant, no trend) to
// cumulative probabilities; p-values in between are linearly interpolated.
var dfQuantiles = []struct {
	stat float64
	p    float64
}{
	{-3.96, 0.001},
	{-3.43, 0.01},
	{-3.12, 0.025},
	{-2.86, 0.05},
	{-2.57, 0.10},
	{-2.18, 0.25},
	{-1.57, 0.50},
	{-0.44, 0.90},
	{-0.07, 0.95},
	{0.60, 0.99},
}

// adfPValue converts an ADF t-statistic into an approximate p-value.
func adfPValue(stat float64) float64 {
	qs := dfQuantiles
	if stat <= qs[0].stat {
		return qs[0].p
	}
	last := qs[len(qs)-1]
	if stat >= last.stat {
		return last.p
	}
	for i := 1; i < len(qs); i++ {
		if stat <= qs[i].stat {
			lo, hi := qs[i-1], qs[i]
			frac := (stat - lo.stat) / (hi.stat - lo.stat)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return last.p
}
