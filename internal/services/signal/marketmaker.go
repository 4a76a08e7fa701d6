package signal

import (
	"fmt"
	"sync"
	"time"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/history"
	"QuantCore/internal/services/features"
)

// MarketMakerConfig bounds the inventory-driven quoting strategy.
type MarketMakerConfig struct {
	Window           int
	SpreadMultiplier float64
	InventoryLimit   float64
	BaseQuantity     float64
	Symbols          []string
}

// MarketMaker quotes around a fair value of mean(window) with a half-spread
// of volatility times the spread multiplier. Once absolute inventory in a
// symbol exceeds half the limit it stops adding and emits inventory-reducing
// signals only.
type MarketMaker struct {
	cfg   MarketMakerConfig
	store *history.Store

	mu        sync.RWMutex
	inventory map[string]float64
}

// NewMarketMaker creates the market-making strategy.
func NewMarketMaker(store *history.Store, cfg MarketMakerConfig) *MarketMaker {
	if cfg.Window < 2 {
		cfg.Window = 2
	}
	return &MarketMaker{
		cfg:       cfg,
		store:     store,
		inventory: make(map[string]float64),
	}
}

func (m *MarketMaker) Name() string { return "market_maker" }

func (m *MarketMaker) Symbols() []string { return m.cfg.Symbols }

// SetInventory replaces the tracked inventory for a symbol. The manager calls
// this after every accepted fill so quoting stays anchored to real exposure.
func (m *MarketMaker) SetInventory(symbol string, quantity float64) {
	m.mu.Lock()
	m.inventory[symbol] = quantity
	m.mu.Unlock()
}

// GenerateSignal compares the observation against the fair-value band. Inside
// the band it stays quiet unless inventory needs unwinding.
func (m *MarketMaker) GenerateSignal(obs models.PricePoint) *models.TradingSignal {
	prices := m.store.Prices(obs.Symbol)
	if len(prices) < m.cfg.Window {
		return nil
	}
	window := prices[len(prices)-m.cfg.Window:]

	fair := features.Mean(window)
	vol := features.StdDev(window)
	half := vol * m.cfg.SpreadMultiplier

	m.mu.RLock()
	inv := m.inventory[obs.Symbol]
	m.mu.RUnlock()

	// Inventory unwind takes priority over quoting.
	if abs(inv) > m.cfg.InventoryLimit/2 {
		action := models.ActionSell
		if inv < 0 {
			action = models.ActionBuy
		}
		return m.signal(obs, action, fair, vol, inv,
			fmt.Sprintf("inventory %.1f beyond half limit %.1f", inv, m.cfg.InventoryLimit/2))
	}

	if half <= 0 {
		return nil
	}

	var action models.Action
	switch {
	case obs.Price >= fair+half:
		action = models.ActionSell
	case obs.Price <= fair-half:
		action = models.ActionBuy
	default:
		return nil
	}
	return m.signal(obs, action, fair, vol, inv,
		fmt.Sprintf("price %.2f outside fair band %.2f±%.2f", obs.Price, fair, half))
}

func (m *MarketMaker) signal(obs models.PricePoint, action models.Action, fair, vol, inv float64, rationale string) *models.TradingSignal {
	conf := 0.5
	if vol > 0 {
		conf = clampConfidence(abs(obs.Price-fair) / (3 * vol))
	}
	return &models.TradingSignal{
		Symbol:      obs.Symbol,
		Action:      action,
		Confidence:  conf,
		Price:       obs.Price,
		Quantity:    m.cfg.BaseQuantity,
		Strategy:    m.Name(),
		GeneratedAt: time.Now(),
		Rationale:   rationale,
		Metadata: map[string]float64{
			"fair_value": fair,
			"volatility": vol,
			"inventory":  inv,
		},
	}
}

var (
	_ Strategy       = (*MarketMaker)(nil)
	_ InventoryAware = (*MarketMaker)(nil)
)
