package signal

import (
	"QuantCore/internal/domain/models"
)

// Strategy is the capability every signal source implements. GenerateSignal
// returns nil when the strategy has nothing to say about the observation
// (hold, not ready, or guard rejected).
type Strategy interface {
	Name() string
	Symbols() []string
	GenerateSignal(obs models.PricePoint) *models.TradingSignal
}

// PairConsumer is implemented by strategies that trade qualified pairs and
// need the tracked set refreshed after each detector re-scan.
type PairConsumer interface {
	SetPairs(pairs []models.RelationshipPair)
}

// InventoryAware is implemented by strategies that size off their own open
// exposure; the manager pushes position changes back in.
type InventoryAware interface {
	SetInventory(symbol string, quantity float64)
}

func clampConfidence(c float64) float64 {
	if c > 0.9 {
		return 0.9
	}
	if c < 0 {
		return 0
	}
	return c
}
