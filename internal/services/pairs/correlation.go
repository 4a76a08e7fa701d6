package pairs

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"QuantCore/internal/domain/models"
)

// testCorrelation computes the Pearson correlation over the most recent
// window of observations and accepts the pair when |ρ| clears the threshold.
func (t *Tracker) testCorrelation(symA, symB string, pa, pb []float64) (models.RelationshipPair, bool) {
	w := t.cfg.CorrelationWindow
	if w <= 0 || w > len(pa) {
		w = len(pa)
	}
	if w < 2 {
		return models.RelationshipPair{}, false
	}
	xa := pa[len(pa)-w:]
	xb := pb[len(pb)-w:]

	rho := stat.Correlation(xa, xb, nil)
	if math.IsNaN(rho) || math.Abs(rho) <= t.cfg.CorrelationThreshold {
		return models.RelationshipPair{}, false
	}

	return models.RelationshipPair{
		SymbolA:    symA,
		SymbolB:    symB,
		Type:       models.RelCorrelated,
		Strength:   math.Abs(rho),
		HedgeRatio: 1,
	}, true
}
