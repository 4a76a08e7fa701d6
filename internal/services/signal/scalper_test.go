package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
)

func scalperFixture() (*Scalper, time.Time) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := NewScalper(ScalperConfig{
		MomentumThreshold: 0.002,
		MaxQuoteAge:       200 * time.Millisecond,
		MaxSpreadFraction: 0.001,
		BaseQuantity:      5,
		Symbols:           []string{"X"},
	})
	s.now = func() time.Time { return now }
	return s, now
}

func freshQuote(now time.Time, momentum float64, flow models.OrderFlow) models.PricePoint {
	return models.PricePoint{
		Symbol:    "X",
		Price:     100,
		Bid:       99.98,
		Ask:       100.02,
		Timestamp: now.Add(-50 * time.Millisecond),
		Momentum:  momentum,
		Flow:      flow,
	}
}

func TestScalperBuysMomentumWithFlow(t *testing.T) {
	s, now := scalperFixture()
	sig := s.GenerateSignal(freshQuote(now, 0.003, models.FlowBuy))
	require.NotNil(t, sig)
	assert.Equal(t, models.ActionBuy, sig.Action)
	assert.InDelta(t, 0.5, sig.Confidence, 1e-9)
}

func TestScalperSellsNegativeMomentumWithFlow(t *testing.T) {
	s, now := scalperFixture()
	sig := s.GenerateSignal(freshQuote(now, -0.004, models.FlowSell))
	require.NotNil(t, sig)
	assert.Equal(t, models.ActionSell, sig.Action)
}

func TestScalperRejectsStaleQuote(t *testing.T) {
	s, now := scalperFixture()
	obs := freshQuote(now, 0.003, models.FlowBuy)
	obs.Timestamp = now.Add(-300 * time.Millisecond)
	assert.Nil(t, s.GenerateSignal(obs))
}

func TestScalperRejectsWideSpread(t *testing.T) {
	s, now := scalperFixture()
	obs := freshQuote(now, 0.003, models.FlowBuy)
	obs.Bid, obs.Ask = 99.5, 100.5 // 1% spread against a 0.1% bound
	assert.Nil(t, s.GenerateSignal(obs))
}

func TestScalperNeedsFlowConfirmation(t *testing.T) {
	s, now := scalperFixture()
	assert.Nil(t, s.GenerateSignal(freshQuote(now, 0.003, models.FlowSell)))
	assert.Nil(t, s.GenerateSignal(freshQuote(now, 0.003, models.FlowNeutral)))
	assert.Nil(t, s.GenerateSignal(freshQuote(now, 0.001, models.FlowBuy)))
}
