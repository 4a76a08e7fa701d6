package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/history"
)

func makerFixture(t *testing.T, prices []float64) *MarketMaker {
	t.Helper()
	store := history.NewStore(len(prices), nil)
	base := time.Now().Add(-time.Minute)
	for i, p := range prices {
		require.True(t, store.Append(models.PricePoint{
			Symbol: "X", Price: p, Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	return NewMarketMaker(store, MarketMakerConfig{
		Window:           len(prices),
		SpreadMultiplier: 1.5,
		InventoryLimit:   100,
		BaseQuantity:     5,
		Symbols:          []string{"X"},
	})
}

func TestMarketMakerSellsAboveFairBand(t *testing.T) {
	// mean 100, sample stddev 1, half-spread 1.5
	m := makerFixture(t, []float64{100, 101, 99})

	sig := m.GenerateSignal(models.PricePoint{Symbol: "X", Price: 102})
	require.NotNil(t, sig)
	assert.Equal(t, models.ActionSell, sig.Action)
	assert.InDelta(t, 100.0, sig.Metadata["fair_value"], 1e-9)
	assert.InDelta(t, 2.0/3.0, sig.Confidence, 1e-9)
}

func TestMarketMakerBuysBelowFairBand(t *testing.T) {
	m := makerFixture(t, []float64{100, 101, 99})

	sig := m.GenerateSignal(models.PricePoint{Symbol: "X", Price: 98})
	require.NotNil(t, sig)
	assert.Equal(t, models.ActionBuy, sig.Action)
}

func TestMarketMakerQuietInsideBand(t *testing.T) {
	m := makerFixture(t, []float64{100, 101, 99})
	assert.Nil(t, m.GenerateSignal(models.PricePoint{Symbol: "X", Price: 100.5}))
}

func TestMarketMakerUnwindsLongInventory(t *testing.T) {
	m := makerFixture(t, []float64{100, 101, 99})
	m.SetInventory("X", 60)

	sig := m.GenerateSignal(models.PricePoint{Symbol: "X", Price: 100})
	require.NotNil(t, sig)
	assert.Equal(t, models.ActionSell, sig.Action)
	assert.Contains(t, sig.Rationale, "inventory")
}

func TestMarketMakerUnwindsShortInventory(t *testing.T) {
	m := makerFixture(t, []float64{100, 101, 99})
	m.SetInventory("X", -60)

	sig := m.GenerateSignal(models.PricePoint{Symbol: "X", Price: 100})
	require.NotNil(t, sig)
	assert.Equal(t, models.ActionBuy, sig.Action)
}

func TestMarketMakerToleratesInventoryInsideHalfLimit(t *testing.T) {
	m := makerFixture(t, []float64{100, 101, 99})
	m.SetInventory("X", 40)
	assert.Nil(t, m.GenerateSignal(models.PricePoint{Symbol: "X", Price: 100.5}))
}

func TestMarketMakerNotReadyBelowWindow(t *testing.T) {
	store := history.NewStore(10, nil)
	require.True(t, store.Append(models.PricePoint{Symbol: "X", Price: 100, Timestamp: time.Now()}))
	m := NewMarketMaker(store, MarketMakerConfig{Window: 5, SpreadMultiplier: 1.5, InventoryLimit: 100})
	assert.Nil(t, m.GenerateSignal(models.PricePoint{Symbol: "X", Price: 100}))
}
