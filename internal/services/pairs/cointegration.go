package pairs

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"QuantCore/internal/domain/models"
	"QuantCore/pkg/logger"
)

// testCointegration runs an Engle-Granger two-step test: OLS of A on B for
// the hedge ratio, then an ADF test on the regression residuals. The pair is
// accepted when the residuals are stationary at the configured significance
// level. Numerical failure means "not cointegrated", never an error.
func (t *Tracker) testCointegration(symA, symB string, pa, pb []float64) (models.RelationshipPair, bool) {
	if len(pa) < t.cfg.MinObservations {
		return models.RelationshipPair{}, false
	}

	alpha, beta := stat.LinearRegression(pb, pa, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return models.RelationshipPair{}, false
	}

	resid := make([]float64, len(pa))
	for i := range pa {
		resid[i] = pa[i] - alpha - beta*pb[i]
	}

	tau, err := adfTestStat(resid, t.cfg.ADFLags)
	if err != nil {
		t.log.Debug("cointegration test failed numerically",
			logger.String("a", symA), logger.String("b", symB), logger.Error(err))
		return models.RelationshipPair{}, false
	}

	p := adfPValue(tau)
	if p >= t.cfg.PValueThreshold {
		return models.RelationshipPair{}, false
	}

	return models.RelationshipPair{
		SymbolA:    symA,
		SymbolB:    symB,
		Type:       models.RelCointegrated,
		Strength:   p,
		HedgeRatio: beta,
	}, true
}
