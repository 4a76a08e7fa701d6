package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
	"QuantCore/pkg/logger"
)

func point(symbol string, price float64) models.PricePoint {
	return models.PricePoint{Symbol: symbol, Price: price, Timestamp: time.Now()}
}

func TestStoreBoundedCapacity(t *testing.T) {
	store := NewStore(5, logger.Nop())

	for i := 1; i <= 50; i++ {
		store.Append(point("AAPL", float64(i)))
		assert.LessOrEqual(t, store.Len("AAPL"), 5, "series must never exceed capacity")
	}

	prices := store.Prices("AAPL")
	require.Len(t, prices, 5)
	assert.Equal(t, []float64{46, 47, 48, 49, 50}, prices, "oldest points evicted first")
}

func TestStoreRejectsNonPositivePrice(t *testing.T) {
	store := NewStore(10, logger.Nop())

	assert.False(t, store.Append(point("AAPL", 0)))
	assert.False(t, store.Append(point("AAPL", -1)))
	assert.Equal(t, 0, store.Len("AAPL"))

	assert.True(t, store.Append(point("AAPL", 100)))
	assert.Equal(t, 1, store.Len("AAPL"))
}

func TestStoreOrderingBeforeWrap(t *testing.T) {
	store := NewStore(10, logger.Nop())
	for i := 1; i <= 3; i++ {
		store.Append(point("X", float64(i)*10))
	}
	assert.Equal(t, []float64{10, 20, 30}, store.Prices("X"))

	latest, ok := store.Latest("X")
	require.True(t, ok)
	assert.Equal(t, 30.0, latest.Price)
}

func TestStoreReady(t *testing.T) {
	store := NewStore(10, logger.Nop())
	assert.False(t, store.Ready("X", 1))

	for i := 0; i < 4; i++ {
		store.Append(point("X", 100+float64(i)))
	}
	assert.True(t, store.Ready("X", 4))
	assert.False(t, store.Ready("X", 5))
}

func TestStoreReturns(t *testing.T) {
	store := NewStore(10, logger.Nop())
	for _, p := range []float64{100, 110, 121} {
		store.Append(point("X", p))
	}
	rets := store.Returns("X")
	require.Len(t, rets, 2)
	assert.InDelta(t, rets[0], rets[1], 1e-9, "constant growth rate yields equal log returns")
}

func TestStoreSymbols(t *testing.T) {
	store := NewStore(10, logger.Nop())
	for i := 0; i < 3; i++ {
		store.Append(point(fmt.Sprintf("S%d", i), 10))
	}
	assert.ElementsMatch(t, []string{"S0", "S1", "S2"}, store.Symbols())
}
