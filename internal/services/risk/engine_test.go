package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
)

func testConfig() Config {
	return Config{
		InitialEquity:        100_000,
		CVaRConfidence:       0.05,
		ATRPeriod:            14,
		ATRMultiplier:        2.0,
		MaxPositionFraction:  0.10,
		MaxDailyLossFraction: 0.03,
		MaxDrawdownFraction:  0.15,
		SectorExposureLimit:  0.30,
		SingleWeightLimit:    0.35,
		HedgeRatioCap:        0.40,
		Sectors: map[string]string{
			"AAPL": "tech",
			"MSFT": "tech",
			"XOM":  "energy",
		},
		HedgeInstruments: map[string]string{
			"tech": "PSQ",
			"AAPL": "PSQ",
		},
	}
}

func TestGateRejectsOversizedPosition(t *testing.T) {
	e := NewEngine(testConfig(), nil)

	// 150 × 100 = 15,000 notional is 15% of 100,000 equity against a 10% cap.
	d := e.CheckOrderRisk("AAPL", models.ActionBuy, 150, 100, 0)
	require.False(t, d.Allowed)
	assert.Equal(t, "position_size", d.Code)
	assert.Contains(t, d.Reason, "position size")
}

func TestGateAllowsWithinLimits(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	d := e.CheckOrderRisk("AAPL", models.ActionBuy, 50, 100, 0)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

func TestGateRejectsWhenResultingPositionExceedsCap(t *testing.T) {
	e := NewEngine(testConfig(), nil)

	// Holding 80 shares (8% of equity), a further 5% order would leave the
	// position at 13% against the 10% cap.
	d := e.CheckOrderRisk("AAPL", models.ActionBuy, 50, 100, 80)
	require.False(t, d.Allowed)
	assert.Equal(t, "position_size", d.Code)
	assert.Contains(t, d.Reason, "position size")
}

func TestGateAllowsExposureReducingOrder(t *testing.T) {
	e := NewEngine(testConfig(), nil)

	// Selling 100 against a 150-share long leaves 5% of equity; the sell's
	// own notional (10%) is irrelevant.
	d := e.CheckOrderRisk("AAPL", models.ActionSell, 100, 100, 150)
	assert.True(t, d.Allowed)
}

func TestGateCapsShortSideToo(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	d := e.CheckOrderRisk("AAPL", models.ActionSell, 120, 100, 0)
	require.False(t, d.Allowed)
	assert.Equal(t, "position_size", d.Code)
}

func TestGateRejectsAfterDailyLossLimit(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	e.RecordFill(-4000) // beyond 3% of 100k

	d := e.CheckOrderRisk("AAPL", models.ActionBuy, 10, 100, 0)
	require.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "daily loss")
}

func TestDailyLossResetsAtRollover(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	e.RecordFill(-4000)
	e.ResetDay()
	e.UpdateEquity(100_000)

	d := e.CheckOrderRisk("AAPL", models.ActionBuy, 10, 100, 0)
	assert.True(t, d.Allowed)
}

func TestGateRejectsInDeepDrawdown(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	e.UpdateEquity(120_000) // new peak
	e.UpdateEquity(95_000)  // ~20.8% drawdown against a 15% limit

	d := e.CheckOrderRisk("AAPL", models.ActionBuy, 10, 100, 0)
	require.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "drawdown")
}

func TestTailRiskEmptySeries(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	a := e.AssessTailRisk(nil)
	assert.False(t, a.Ok)
	assert.Zero(t, a.CVaR)
	assert.Zero(t, a.VaR)
}

func TestTailRiskCVaRBelowVaR(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	returns := []float64{
		-0.08, -0.05, -0.02, -0.01, 0.0, 0.0, 0.01,
		0.01, 0.02, 0.02, 0.03, 0.03, 0.04, 0.05,
	}
	a := e.AssessTailRisk(returns)
	require.True(t, a.Ok)
	assert.LessOrEqual(t, a.CVaR, a.VaR, "expected shortfall averages the tail beyond VaR")
	assert.InDelta(t, 0.08, a.MaxLossPct, 1e-9)
}

func TestTailRiskMonotoneInTailSeverity(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	mild := []float64{-0.02, -0.01, 0, 0.01, 0.01, 0.02, 0.02, 0.03}
	severe := []float64{-0.20, -0.01, 0, 0.01, 0.01, 0.02, 0.02, 0.03}

	assert.Less(t, e.AssessTailRisk(severe).CVaR, e.AssessTailRisk(mild).CVaR)
}

func quoteSeries(prices []float64, spread float64) []models.PricePoint {
	base := time.Now().Add(-time.Hour)
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{
			Symbol:    "AAPL",
			Price:     p,
			Bid:       p - spread/2,
			Ask:       p + spread/2,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestATRConstantRange(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	// Constant price with a fixed 1.0 quote spread: every true range is 1.
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	atr := e.ATR(quoteSeries(prices, 1.0))
	assert.InDelta(t, 1.0, atr, 1e-9)
}

func TestStopLossConfidenceTiers(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100
	}
	series := quoteSeries(prices, 1.0)

	high := e.StopLoss("AAPL", series, 0.9)
	mid := e.StopLoss("AAPL", series, 0.75)
	low := e.StopLoss("AAPL", series, 0.5)

	// raw stop = 100 − 1×2 = 98 for all three
	assert.InDelta(t, 98.0, high.RawStop, 1e-9)
	assert.Equal(t, models.TierLow, high.Tier)
	assert.Equal(t, models.TierMedium, mid.Tier)
	assert.Equal(t, models.TierHigh, low.Tier)

	// Higher confidence keeps the stop tighter (closer to price).
	assert.Greater(t, high.AdjustedStop, mid.AdjustedStop)
	assert.Greater(t, mid.AdjustedStop, low.AdjustedStop)
}

func TestStopLossEmptySeries(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	rec := e.StopLoss("AAPL", nil, 0.9)
	assert.Zero(t, rec.RawStop)
	assert.Zero(t, rec.ATR)
}

func TestHedgeSuggestionsOnSectorConcentration(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	recs := e.SuggestHedges(map[string]float64{
		"AAPL": 0.25,
		"MSFT": 0.20, // tech total 0.45 > 0.30
		"XOM":  0.20,
	})
	require.Len(t, recs, 1)
	assert.Equal(t, "tech", recs[0].Symbol)
	assert.Equal(t, "PSQ", recs[0].Instrument)
	assert.InDelta(t, 0.30, recs[0].Ratio, 1e-9) // 2 × 0.15 excess
}

func TestHedgeSuggestionsOnSingleNameConcentration(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	recs := e.SuggestHedges(map[string]float64{
		"AAPL": 0.40, // above 0.35 single-name limit, also tech > 0.30
		"XOM":  0.30,
	})
	require.Len(t, recs, 2)

	bySubject := map[string]models.HedgeRecommendation{}
	for _, r := range recs {
		bySubject[r.Symbol] = r
	}
	require.Contains(t, bySubject, "AAPL")
	require.Contains(t, bySubject, "tech")
	assert.InDelta(t, 0.10, bySubject["AAPL"].Ratio, 1e-9)
}

func TestHedgeRatioCapped(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	recs := e.SuggestHedges(map[string]float64{"AAPL": 0.90})
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.LessOrEqual(t, r.Ratio, 0.40)
	}
}

func TestNoHedgesForBalancedBook(t *testing.T) {
	e := NewEngine(testConfig(), nil)
	recs := e.SuggestHedges(map[string]float64{
		"AAPL": 0.20,
		"XOM":  0.25,
	})
	assert.Empty(t, recs)
}
