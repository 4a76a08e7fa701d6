package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/services/risk"
)

type stubStrategy struct {
	name    string
	symbols []string
	next    *models.TradingSignal

	inventory map[string]float64
}

func (s *stubStrategy) Name() string      { return s.name }
func (s *stubStrategy) Symbols() []string { return s.symbols }
func (s *stubStrategy) GenerateSignal(models.PricePoint) *models.TradingSignal {
	return s.next
}
func (s *stubStrategy) SetInventory(symbol string, qty float64) {
	if s.inventory == nil {
		s.inventory = make(map[string]float64)
	}
	s.inventory[symbol] = qty
}

type capturePublisher struct {
	published []*models.TradingSignal
}

func (p *capturePublisher) Publish(_ context.Context, s *models.TradingSignal) error {
	p.published = append(p.published, s)
	return nil
}
func (p *capturePublisher) Close() error { return nil }

func riskEngine() *risk.Engine {
	return risk.NewEngine(risk.Config{
		InitialEquity:        100_000,
		MaxPositionFraction:  0.10,
		MaxDailyLossFraction: 0.03,
		MaxDrawdownFraction:  0.15,
	}, nil)
}

func buySignal(qty float64) *models.TradingSignal {
	return &models.TradingSignal{
		Symbol:      "AAPL",
		Action:      models.ActionBuy,
		Confidence:  0.8,
		Price:       100,
		Quantity:    qty,
		Strategy:    "stub",
		GeneratedAt: time.Now(),
	}
}

func TestInactiveStrategyReceivesNothing(t *testing.T) {
	pub := &capturePublisher{}
	m := NewStrategyManager(riskEngine(), pub, nil, nil)
	st := &stubStrategy{name: "stub", symbols: []string{"AAPL"}, next: buySignal(10)}
	require.NoError(t, m.Register(st))

	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})
	assert.Empty(t, pub.published)
	assert.Zero(t, m.Position("stub", "AAPL"))
}

func TestAcceptedSignalUpdatesPositionAndPublishes(t *testing.T) {
	pub := &capturePublisher{}
	m := NewStrategyManager(riskEngine(), pub, nil, nil)
	st := &stubStrategy{name: "stub", symbols: []string{"AAPL"}, next: buySignal(10)}
	require.NoError(t, m.Register(st))
	require.NoError(t, m.Start("stub"))

	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})

	require.Len(t, pub.published, 1)
	assert.Equal(t, 10.0, m.Position("stub", "AAPL"))
	assert.Equal(t, 10.0, st.inventory["AAPL"])

	stats := m.Metrics()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Signals)
	assert.Equal(t, int64(1), stats[0].Trades)
	assert.Zero(t, stats[0].Rejected)
}

func TestGateRejectionDiscardsSignal(t *testing.T) {
	pub := &capturePublisher{}
	m := NewStrategyManager(riskEngine(), pub, nil, nil)
	// 150 × 100 notional is 15% of equity against the 10% cap.
	st := &stubStrategy{name: "stub", symbols: []string{"AAPL"}, next: buySignal(150)}
	require.NoError(t, m.Register(st))
	require.NoError(t, m.Start("stub"))

	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})

	assert.Empty(t, pub.published)
	assert.Zero(t, m.Position("stub", "AAPL"))
	stats := m.Metrics()
	assert.Equal(t, int64(1), stats[0].Rejected)
}

func TestGateCountsExistingStrategyPosition(t *testing.T) {
	pub := &capturePublisher{}
	m := NewStrategyManager(riskEngine(), pub, nil, nil)
	st := &stubStrategy{name: "stub", symbols: []string{"AAPL"}, next: buySignal(60)}
	require.NoError(t, m.Register(st))
	require.NoError(t, m.Start("stub"))

	// The first 6% buy fills; a second would leave the position at 12% of
	// equity against the 10% cap, so it is rejected.
	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})
	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})

	require.Len(t, pub.published, 1)
	assert.Equal(t, 60.0, m.Position("stub", "AAPL"))
	assert.Equal(t, int64(1), m.Metrics()[0].Rejected)
}

func TestStopHaltsDispatchImmediately(t *testing.T) {
	pub := &capturePublisher{}
	m := NewStrategyManager(riskEngine(), pub, nil, nil)
	st := &stubStrategy{name: "stub", symbols: []string{"AAPL"}, next: buySignal(10)}
	require.NoError(t, m.Register(st))
	require.NoError(t, m.Start("stub"))
	require.NoError(t, m.Stop("stub"))

	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})
	assert.Empty(t, pub.published)
}

func TestSellSignalGoesShort(t *testing.T) {
	m := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)
	sig := buySignal(10)
	sig.Action = models.ActionSell
	st := &stubStrategy{name: "stub", symbols: []string{"AAPL"}, next: sig}
	require.NoError(t, m.Register(st))
	require.NoError(t, m.Start("stub"))

	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})
	assert.Equal(t, -10.0, m.Position("stub", "AAPL"))
}

func TestStrategiesDoNotNetPositions(t *testing.T) {
	m := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)
	long := &stubStrategy{name: "long", symbols: []string{"AAPL"}, next: buySignal(10)}
	sell := buySignal(10)
	sell.Action = models.ActionSell
	short := &stubStrategy{name: "short", symbols: []string{"AAPL"}, next: sell}
	require.NoError(t, m.Register(long))
	require.NoError(t, m.Register(short))
	require.NoError(t, m.Start("long"))
	require.NoError(t, m.Start("short"))

	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})

	assert.Equal(t, 10.0, m.Position("long", "AAPL"))
	assert.Equal(t, -10.0, m.Position("short", "AAPL"))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	m := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)
	require.NoError(t, m.Register(&stubStrategy{name: "stub"}))
	assert.Error(t, m.Register(&stubStrategy{name: "stub"}))
}

func TestRecordOutcomeTracksWinRate(t *testing.T) {
	m := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)
	require.NoError(t, m.Register(&stubStrategy{name: "stub"}))

	require.NoError(t, m.RecordOutcome("stub", 500))
	require.NoError(t, m.RecordOutcome("stub", -200))
	require.NoError(t, m.RecordOutcome("stub", 300))

	stats := m.Metrics()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].Wins)
	assert.Equal(t, int64(1), stats[0].Losses)
	assert.InDelta(t, 2.0/3.0, stats[0].WinRate, 1e-9)
	assert.InDelta(t, 600.0, stats[0].RealizedPnL, 1e-9)

	assert.Error(t, m.RecordOutcome("ghost", 100))
}

func TestSetWeightsIgnoresNonConverged(t *testing.T) {
	m := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)

	good := models.PortfolioWeights{
		Weights:   map[string]float64{"AAPL": 0.6, "MSFT": 0.4},
		Converged: true,
	}
	m.SetWeights(good)
	require.True(t, m.Weights().Converged)

	m.SetWeights(models.PortfolioWeights{Converged: false})
	assert.Equal(t, good.Weights, m.Weights().Weights, "failed solve must keep previous targets")
}

func TestWeightScalingAdjustsQuantity(t *testing.T) {
	m := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)
	st := &stubStrategy{name: "stub", symbols: []string{"AAPL"}, next: buySignal(10)}
	require.NoError(t, m.Register(st))
	require.NoError(t, m.Start("stub"))

	m.SetWeights(models.PortfolioWeights{
		Weights:   map[string]float64{"AAPL": 0.25, "MSFT": 0.75},
		Converged: true,
	})
	m.OnObservation(context.Background(), models.PricePoint{Symbol: "AAPL", Price: 100})

	// 10 × 0.25 × 2 symbols = 5
	assert.Equal(t, 5.0, m.Position("stub", "AAPL"))
}
