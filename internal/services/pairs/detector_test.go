package pairs

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
)

func correlationConfig() Config {
	return Config{
		Mode:                 ModeCorrelation,
		CorrelationThreshold: 0.7,
		CorrelationWindow:    30,
		MinObservations:      10,
		MaxStrikes:           2,
	}
}

func linearSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestCorrelationModeQualifiesLinearPair(t *testing.T) {
	tr := NewTracker(correlationConfig(), nil, nil)
	series := map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": linearSeries(30, 50, 2),
	}

	pairs := tr.Update(context.Background(), series)
	require.Len(t, pairs, 1)
	assert.Equal(t, "AAA", pairs[0].SymbolA)
	assert.Equal(t, "BBB", pairs[0].SymbolB)
	assert.Equal(t, models.RelCorrelated, pairs[0].Type)
	assert.InDelta(t, 1.0, pairs[0].Strength, 1e-9)
	assert.False(t, pairs[0].DiscoveredAt.IsZero())
}

func TestCorrelationModeRejectsWeakPair(t *testing.T) {
	noisy := make([]float64, 30)
	for i := range noisy {
		if i%2 == 0 {
			noisy[i] = 101
		} else {
			noisy[i] = 99
		}
	}
	tr := NewTracker(correlationConfig(), nil, nil)
	pairs := tr.Update(context.Background(), map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": noisy,
	})
	assert.Empty(t, pairs)
}

func TestUpdateIsIdempotentForTrackedPairs(t *testing.T) {
	tr := NewTracker(correlationConfig(), nil, nil)
	series := map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": linearSeries(30, 50, 2),
	}

	first := tr.Update(context.Background(), series)
	require.Len(t, first, 1)
	discovered := first[0].DiscoveredAt

	second := tr.Update(context.Background(), series)
	require.Len(t, second, 1)
	assert.Equal(t, discovered, second[0].DiscoveredAt, "re-qualification must not reset discovery time")
}

func TestTrackedPairExpiresAfterMaxStrikes(t *testing.T) {
	tr := NewTracker(correlationConfig(), nil, nil)
	good := map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": linearSeries(30, 50, 2),
	}
	require.Len(t, tr.Update(context.Background(), good), 1)

	decorrelated := make([]float64, 30)
	for i := range decorrelated {
		if i%2 == 0 {
			decorrelated[i] = 101
		} else {
			decorrelated[i] = 99
		}
	}
	bad := map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": decorrelated,
	}

	// First failed re-test is a strike, not a removal.
	assert.Len(t, tr.Update(context.Background(), bad), 1)
	// Second consecutive failure drops the pair.
	assert.Empty(t, tr.Update(context.Background(), bad))
}

func TestStrikesResetWhenPairRequalifies(t *testing.T) {
	tr := NewTracker(correlationConfig(), nil, nil)
	good := map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": linearSeries(30, 50, 2),
	}
	decorrelated := make([]float64, 30)
	for i := range decorrelated {
		decorrelated[i] = 100 + float64(i%2)
	}
	bad := map[string][]float64{"AAA": good["AAA"], "BBB": decorrelated}

	require.Len(t, tr.Update(context.Background(), good), 1)
	assert.Len(t, tr.Update(context.Background(), bad), 1)  // strike 1
	assert.Len(t, tr.Update(context.Background(), good), 1) // strikes reset
	assert.Len(t, tr.Update(context.Background(), bad), 1)  // strike 1 again
	assert.Empty(t, tr.Update(context.Background(), bad))   // strike 2, dropped
}

func TestUpdateSkipsShortSeries(t *testing.T) {
	tr := NewTracker(correlationConfig(), nil, nil)
	pairs := tr.Update(context.Background(), map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": linearSeries(5, 50, 2), // below MinObservations
	})
	assert.Empty(t, pairs)
}

func cointegrationConfig() Config {
	return Config{
		Mode:            ModeCointegration,
		PValueThreshold: 0.05,
		MinObservations: 50,
		MaxStrikes:      2,
		ADFLags:         1,
	}
}

// cointegratedLegs builds a deterministic pair where the second leg is a
// linear combination of the first plus a strongly mean-reverting residual.
func cointegratedLegs(n int) (pa, pb []float64) {
	pb = make([]float64, n)
	pa = make([]float64, n)
	for i := 0; i < n; i++ {
		pb[i] = 100 + 0.5*float64(i)
		resid := 0.5*math.Pow(-1, float64(i)) + 0.2*math.Sin(1.3*float64(i))
		pa[i] = 10 + 2*pb[i] + resid
	}
	return pa, pb
}

func TestCointegrationModeQualifiesStationarySpread(t *testing.T) {
	pa, pb := cointegratedLegs(100)
	tr := NewTracker(cointegrationConfig(), nil, nil)

	pairs := tr.Update(context.Background(), map[string][]float64{"AAA": pa, "BBB": pb})
	require.Len(t, pairs, 1)
	assert.Equal(t, models.RelCointegrated, pairs[0].Type)
	assert.InDelta(t, 2.0, pairs[0].HedgeRatio, 0.05)
	assert.Less(t, pairs[0].Strength, 0.05)
}

func TestCointegrationModeRejectsFlatLeg(t *testing.T) {
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 100
	}
	pa, _ := cointegratedLegs(100)
	tr := NewTracker(cointegrationConfig(), nil, nil)

	pairs := tr.Update(context.Background(), map[string][]float64{"AAA": pa, "BBB": flat})
	assert.Empty(t, pairs)
}

func TestCointegrationModeRejectsTrendingSpread(t *testing.T) {
	// A quadratic leg against a linear one leaves a trending residual that
	// the stationarity test must not accept.
	n := 100
	pa := make([]float64, n)
	pb := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		pb[i] = 100 + x
		pa[i] = 100 + 0.05*x*x
	}
	tr := NewTracker(cointegrationConfig(), nil, nil)
	pairs := tr.Update(context.Background(), map[string][]float64{"AAA": pa, "BBB": pb})
	assert.Empty(t, pairs)
}

func TestUpdateHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewTracker(correlationConfig(), nil, nil)
	pairs := tr.Update(ctx, map[string][]float64{
		"AAA": linearSeries(30, 100, 1),
		"BBB": linearSeries(30, 50, 2),
	})
	assert.Empty(t, pairs)
}
