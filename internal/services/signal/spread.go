package signal

import (
	"fmt"
	"sync"
	"time"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/history"
	"QuantCore/internal/services/features"
)

// SpreadMode selects how the two-leg spread is formed.
type SpreadMode string

const (
	// SpreadDiff trades price_a − hedge_ratio·price_b (statistical arbitrage
	// on cointegrated pairs).
	SpreadDiff SpreadMode = "diff"
	// SpreadRatio trades price_a / price_b (pairs trading on correlated pairs).
	SpreadRatio SpreadMode = "ratio"
)

// SpreadConfig holds the thresholds for a spread strategy.
type SpreadConfig struct {
	ZThreshold      float64
	BaseQuantity    float64
	MinObservations int
}

// SpreadStrategy standardizes a two-leg spread into a z-score and emits a
// directional signal on the first leg when the z clears the threshold:
// spread too high shorts the rich leg, spread too low buys the cheap one.
type SpreadStrategy struct {
	name  string
	mode  SpreadMode
	cfg   SpreadConfig
	store *history.Store

	mu      sync.RWMutex
	pairs   []models.RelationshipPair
	symbols map[string]bool
}

// NewStatArb creates the cointegration-spread strategy (difference spread,
// hedge-ratio weighted, threshold defaults to 2.0).
func NewStatArb(store *history.Store, cfg SpreadConfig) *SpreadStrategy {
	return newSpreadStrategy("statarb", SpreadDiff, store, cfg)
}

// NewPairsTrading creates the correlation-pairs strategy (ratio spread,
// threshold defaults to 1.5).
func NewPairsTrading(store *history.Store, cfg SpreadConfig) *SpreadStrategy {
	return newSpreadStrategy("pairs_trading", SpreadRatio, store, cfg)
}

func newSpreadStrategy(name string, mode SpreadMode, store *history.Store, cfg SpreadConfig) *SpreadStrategy {
	if cfg.MinObservations < 3 {
		cfg.MinObservations = 3
	}
	return &SpreadStrategy{
		name:    name,
		mode:    mode,
		cfg:     cfg,
		store:   store,
		symbols: make(map[string]bool),
	}
}

func (s *SpreadStrategy) Name() string { return s.name }

// Symbols returns every leg of the currently assigned pairs.
func (s *SpreadStrategy) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// SetPairs replaces the tracked pair set after a detector re-scan.
func (s *SpreadStrategy) SetPairs(pairs []models.RelationshipPair) {
	symbols := make(map[string]bool, 2*len(pairs))
	for _, p := range pairs {
		symbols[p.SymbolA] = true
		symbols[p.SymbolB] = true
	}
	s.mu.Lock()
	s.pairs = pairs
	s.symbols = symbols
	s.mu.Unlock()
}

// GenerateSignal evaluates every pair the observed symbol participates in and
// emits at most one signal per observation.
func (s *SpreadStrategy) GenerateSignal(obs models.PricePoint) *models.TradingSignal {
	s.mu.RLock()
	pairs := s.pairs
	s.mu.RUnlock()

	for _, pair := range pairs {
		if pair.SymbolA != obs.Symbol && pair.SymbolB != obs.Symbol {
			continue
		}
		if sig := s.evaluatePair(pair, obs); sig != nil {
			return sig
		}
	}
	return nil
}

func (s *SpreadStrategy) evaluatePair(pair models.RelationshipPair, obs models.PricePoint) *models.TradingSignal {
	pa := s.store.Prices(pair.SymbolA)
	pb := s.store.Prices(pair.SymbolB)
	n := len(pa)
	if len(pb) < n {
		n = len(pb)
	}
	if n < s.cfg.MinObservations {
		return nil
	}
	pa, pb = pa[len(pa)-n:], pb[len(pb)-n:]

	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		switch s.mode {
		case SpreadRatio:
			if pb[i] <= 0 {
				return nil
			}
			spread[i] = pa[i] / pb[i]
		default:
			spread[i] = pa[i] - pair.HedgeRatio*pb[i]
		}
	}

	z, ok := features.ZScore(spread)
	if !ok {
		return nil
	}

	var action models.Action
	switch {
	case z >= s.cfg.ZThreshold:
		action = models.ActionSell // spread rich: short the first leg
	case z <= -s.cfg.ZThreshold:
		action = models.ActionBuy // spread cheap: buy the first leg
	default:
		return nil
	}

	refPrice := pa[n-1]
	return &models.TradingSignal{
		Symbol:      pair.SymbolA,
		Action:      action,
		Confidence:  clampConfidence(abs(z) / 3.0),
		Price:       refPrice,
		Quantity:    s.cfg.BaseQuantity,
		Strategy:    s.name,
		GeneratedAt: time.Now(),
		Rationale:   fmt.Sprintf("%s spread z=%.2f vs threshold %.2f", s.mode, z, s.cfg.ZThreshold),
		Metadata: map[string]float64{
			"z_score":     z,
			"spread":      spread[n-1],
			"hedge_ratio": pair.HedgeRatio,
		},
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
