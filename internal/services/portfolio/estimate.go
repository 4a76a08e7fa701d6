package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EstimateInputs builds an optimizer snapshot from per-symbol return series.
// Series are right-aligned to the shortest one; symbols shorter than the
// configured minimum are dropped. Short-horizon volatilities over the most
// recent quarter of the window feed the adaptive risk-parity objective.
// Returns an error only when nothing usable remains.
func (o *Optimizer) EstimateInputs(returns map[string][]float64) (Inputs, error) {
	minObs := o.cfg.MinObservations
	if minObs < 2 {
		minObs = 2
	}

	symbols := make([]string, 0, len(returns))
	for _, sym := range sortedSymbols(returns) {
		if len(returns[sym]) >= minObs {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) == 0 {
		return Inputs{}, fmt.Errorf("portfolio: no symbol has %d return observations", minObs)
	}

	rows := len(returns[symbols[0]])
	for _, sym := range symbols[1:] {
		if n := len(returns[sym]); n < rows {
			rows = n
		}
	}

	data := mat.NewDense(rows, len(symbols), nil)
	mu := make([]float64, len(symbols))
	for col, sym := range symbols {
		series := returns[sym]
		series = series[len(series)-rows:]
		sum := 0.0
		for row, r := range series {
			data.Set(row, col, r)
			sum += r
		}
		mu[col] = sum / float64(rows)
	}

	sigma := mat.NewSymDense(len(symbols), nil)
	stat.CovarianceMatrix(sigma, data, nil)

	recent := rows / 4
	if recent < 5 {
		recent = 5
	}
	if recent > rows {
		recent = rows
	}
	forecast := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		series := returns[sym]
		if v := stat.StdDev(series[len(series)-recent:], nil); v > 0 {
			forecast[sym] = v
		}
	}

	return Inputs{Symbols: symbols, Mu: mu, Sigma: sigma, ForecastVols: forecast}, nil
}
