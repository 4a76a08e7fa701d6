package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
	"QuantCore/internal/services/risk"
	"QuantCore/internal/services/signal"
	"QuantCore/pkg/logger"
)

// StrategyManager orchestrates registered strategies against shared risk
// state. Each strategy owns its lifecycle (inactive until started) and its
// own position map; exposure on the same symbol is never netted across
// strategies.
type StrategyManager struct {
	engine  *risk.Engine
	pub     drepo.SignalPublisher
	metrics drepo.Metrics
	log     *logger.Logger

	mu         sync.RWMutex
	strategies map[string]*managedStrategy
	weights    models.PortfolioWeights
}

type managedStrategy struct {
	impl      signal.Strategy
	active    bool
	positions map[string]float64
	stats     models.StrategyMetrics
}

// NewStrategyManager creates a manager wired to the risk gate and the signal
// publisher.
func NewStrategyManager(engine *risk.Engine, pub drepo.SignalPublisher, metrics drepo.Metrics, log *logger.Logger) *StrategyManager {
	if log == nil {
		log = logger.Nop()
	}
	return &StrategyManager{
		engine:     engine,
		pub:        pub,
		metrics:    metrics,
		log:        log,
		strategies: make(map[string]*managedStrategy),
	}
}

// Register adds a strategy in the inactive state. Registering the same name
// twice is an error.
func (m *StrategyManager) Register(s signal.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := s.Name()
	if _, ok := m.strategies[name]; ok {
		return fmt.Errorf("strategy %q already registered", name)
	}
	m.strategies[name] = &managedStrategy{
		impl:      s,
		positions: make(map[string]float64),
		stats:     models.StrategyMetrics{Strategy: name},
	}
	m.log.Info("strategy registered", logger.String("strategy", name))
	return nil
}

// Start activates a strategy so it receives observations.
func (m *StrategyManager) Start(name string) error {
	return m.setActive(name, true)
}

// Stop deactivates a strategy. It stops receiving observations immediately;
// open positions are left for the caller to unwind.
func (m *StrategyManager) Stop(name string) error {
	return m.setActive(name, false)
}

func (m *StrategyManager) setActive(name string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.strategies[name]
	if !ok {
		return fmt.Errorf("strategy %q not registered", name)
	}
	ms.active = active
	ms.stats.Active = active
	m.log.Info("strategy state changed",
		logger.String("strategy", name), logger.Bool("active", active))
	return nil
}

// OnObservation dispatches a new observation to every active strategy
// registered for its symbol, gates any resulting signal, and applies accepted
// signals to the strategy's position map. Evaluation is synchronous; the
// collector guarantees one observation per symbol at a time.
func (m *StrategyManager) OnObservation(ctx context.Context, obs models.PricePoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, ms := range m.strategies {
		if !ms.active || !strategyCovers(ms.impl, obs.Symbol) {
			continue
		}

		sig := ms.impl.GenerateSignal(obs)
		if sig == nil || sig.Action == models.ActionHold {
			continue
		}
		ms.stats.Signals++
		if m.metrics != nil {
			m.metrics.RecordSignal(name, string(sig.Action))
		}

		scaled := m.scaleQuantityLocked(sig)
		decision := m.engine.CheckOrderRisk(sig.Symbol, sig.Action, scaled, sig.Price, ms.positions[sig.Symbol])
		if !decision.Allowed {
			ms.stats.Rejected++
			if m.metrics != nil {
				m.metrics.RecordGateRejection(decision.Code)
			}
			m.log.Info("signal rejected by risk gate",
				logger.String("strategy", name),
				logger.String("symbol", sig.Symbol),
				logger.String("reason", decision.Reason))
			continue
		}

		m.applyLocked(ms, sig, scaled)
		if m.metrics != nil {
			m.metrics.RecordSignalAccepted(name)
		}
		if m.pub != nil {
			if err := m.pub.Publish(ctx, sig); err != nil {
				m.log.Error("publish signal", logger.Error(err),
					logger.String("strategy", name))
				if m.metrics != nil {
					m.metrics.RecordError("publish")
				}
			}
		}
	}
}

// scaleQuantityLocked shrinks the requested quantity by the symbol's target
// weight when a converged allocation is available.
func (m *StrategyManager) scaleQuantityLocked(sig *models.TradingSignal) float64 {
	if !m.weights.Converged {
		return sig.Quantity
	}
	w, ok := m.weights.Weights[sig.Symbol]
	if !ok {
		return sig.Quantity
	}
	scaled := sig.Quantity * w * float64(len(m.weights.Weights))
	if scaled <= 0 {
		return sig.Quantity
	}
	return scaled
}

func (m *StrategyManager) applyLocked(ms *managedStrategy, sig *models.TradingSignal, quantity float64) {
	delta := quantity
	if sig.Action == models.ActionSell {
		delta = -quantity
	}
	ms.positions[sig.Symbol] += delta
	ms.stats.Trades++

	if aware, ok := ms.impl.(signal.InventoryAware); ok {
		aware.SetInventory(sig.Symbol, ms.positions[sig.Symbol])
	}
}

// RecordOutcome feeds a realized P&L for one strategy's trade back into the
// win/loss tally and the shared risk state. The fill itself comes from the
// execution collaborator.
func (m *StrategyManager) RecordOutcome(strategy string, pnl float64) error {
	m.mu.Lock()
	ms, ok := m.strategies[strategy]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("strategy %q not registered", strategy)
	}
	ms.stats.RealizedPnL += pnl
	if pnl > 0 {
		ms.stats.Wins++
	} else if pnl < 0 {
		ms.stats.Losses++
	}
	if total := ms.stats.Wins + ms.stats.Losses; total > 0 {
		ms.stats.WinRate = float64(ms.stats.Wins) / float64(total)
	}
	m.mu.Unlock()

	m.engine.RecordFill(pnl)
	return nil
}

// SetWeights installs the latest converged allocation for position sizing.
// Non-converged results are ignored so sizing keeps the previous targets.
func (m *StrategyManager) SetWeights(w models.PortfolioWeights) {
	if !w.Converged {
		return
	}
	m.mu.Lock()
	m.weights = w
	m.mu.Unlock()
}

// SetPairs forwards a refreshed pair set to every pair-consuming strategy.
func (m *StrategyManager) SetPairs(pairs []models.RelationshipPair) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ms := range m.strategies {
		if pc, ok := ms.impl.(signal.PairConsumer); ok {
			pc.SetPairs(pairs)
		}
	}
}

// Weights returns the allocation currently used for sizing.
func (m *StrategyManager) Weights() models.PortfolioWeights {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.weights
}

// Position returns one strategy's signed exposure on a symbol.
func (m *StrategyManager) Position(strategy, symbol string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.strategies[strategy]
	if !ok {
		return 0
	}
	return ms.positions[symbol]
}

// Metrics returns a snapshot of every strategy's counters, sorted by name.
func (m *StrategyManager) Metrics() []models.StrategyMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.StrategyMetrics, 0, len(m.strategies))
	for _, ms := range m.strategies {
		out = append(out, ms.stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strategy < out[j].Strategy })
	return out
}

func strategyCovers(s signal.Strategy, symbol string) bool {
	syms := s.Symbols()
	if len(syms) == 0 {
		return true
	}
	for _, sym := range syms {
		if sym == symbol {
			return true
		}
	}
	return false
}

// Exposure aggregates absolute notional per symbol across strategies as a
// fraction of equity, for hedge checks.
func (m *StrategyManager) Exposure(price func(string) (float64, bool)) map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	equity := m.engine.Equity()
	if equity <= 0 {
		return nil
	}
	out := make(map[string]float64)
	for _, ms := range m.strategies {
		for sym, qty := range ms.positions {
			p, ok := price(sym)
			if !ok {
				continue
			}
			if qty < 0 {
				qty = -qty
			}
			out[sym] += qty * p / equity
		}
	}
	return out
}
