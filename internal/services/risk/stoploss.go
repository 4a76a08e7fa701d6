package risk

import (
	"math"

	"QuantCore/internal/domain/models"
)

// trueRange is max(high−low, |high−prevClose|, |low−prevClose|). Points
// without quotes fall back to the trade price on both sides.
func trueRange(cur, prev models.PricePoint) float64 {
	high, low := cur.Ask, cur.Bid
	if high <= 0 {
		high = cur.Price
	}
	if low <= 0 {
		low = cur.Price
	}
	tr := high - low
	if v := math.Abs(high - prev.Price); v > tr {
		tr = v
	}
	if v := math.Abs(low - prev.Price); v > tr {
		tr = v
	}
	return tr
}

// ATR computes the average true range over the trailing period using a
// Wilder-style smoothing: a simple average over the first period, then an
// exponential carry-forward for the remainder.
func (e *Engine) ATR(series []models.PricePoint) float64 {
	period := e.cfg.ATRPeriod
	if len(series) < 2 {
		return 0
	}

	trs := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		trs = append(trs, trueRange(series[i], series[i-1]))
	}
	if len(trs) <= period {
		sum := 0.0
		for _, tr := range trs {
			sum += tr
		}
		return sum / float64(len(trs))
	}

	atr := 0.0
	for _, tr := range trs[:period] {
		atr += tr
	}
	atr /= float64(period)
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

// StopLoss recommends a volatility-scaled stop for a long position, tightened
// or loosened by signal confidence. High-confidence entries keep the stop
// close; low-confidence ones get extra room and a high risk tier.
func (e *Engine) StopLoss(symbol string, series []models.PricePoint, confidence float64) models.StopLossRecommendation {
	rec := models.StopLossRecommendation{Symbol: symbol}
	if len(series) == 0 {
		return rec
	}

	price := series[len(series)-1].Price
	atr := e.ATR(series)
	rec.ATR = atr
	rec.RawStop = price - atr*e.cfg.ATRMultiplier

	switch {
	case confidence > 0.85:
		rec.AdjustedStop = rec.RawStop * 0.99
		rec.Tier = models.TierLow
	case confidence <= 0.70:
		rec.AdjustedStop = rec.RawStop * 0.97
		rec.Tier = models.TierHigh
	default:
		rec.AdjustedStop = rec.RawStop * 0.98
		rec.Tier = models.TierMedium
	}
	return rec
}
