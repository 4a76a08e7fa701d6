package signal

import (
	"fmt"
	"time"

	"QuantCore/internal/domain/models"
)

// ScalperConfig bounds the momentum scalper. MaxQuoteAge rejects observations
// that arrived too long before the decision, MaxSpreadFraction rejects wide
// markets where the edge would be eaten by crossing the spread.
type ScalperConfig struct {
	MomentumThreshold float64
	MaxQuoteAge       time.Duration
	MaxSpreadFraction float64
	BaseQuantity      float64
	Symbols           []string
}

// Scalper trades short-horizon momentum confirmed by order flow. It holds no
// window of its own; the momentum and flow fields on the observation are
// derived upstream by the collector.
type Scalper struct {
	cfg ScalperConfig
	now func() time.Time
}

// NewScalper creates a momentum/order-flow scalper.
func NewScalper(cfg ScalperConfig) *Scalper {
	return &Scalper{cfg: cfg, now: time.Now}
}

func (s *Scalper) Name() string { return "scalper" }

func (s *Scalper) Symbols() []string { return s.cfg.Symbols }

// GenerateSignal applies the staleness, spread, and momentum gates in order.
// Any gate failing means no signal, never an error.
func (s *Scalper) GenerateSignal(obs models.PricePoint) *models.TradingSignal {
	if age := s.now().Sub(obs.Timestamp); age > s.cfg.MaxQuoteAge {
		return nil
	}
	if frac := obs.SpreadFraction(); frac > s.cfg.MaxSpreadFraction {
		return nil
	}

	var action models.Action
	switch {
	case obs.Momentum > s.cfg.MomentumThreshold && obs.Flow == models.FlowBuy:
		action = models.ActionBuy
	case obs.Momentum < -s.cfg.MomentumThreshold && obs.Flow == models.FlowSell:
		action = models.ActionSell
	default:
		return nil
	}

	return &models.TradingSignal{
		Symbol:      obs.Symbol,
		Action:      action,
		Confidence:  clampConfidence(abs(obs.Momentum) / (3 * s.cfg.MomentumThreshold)),
		Price:       obs.Price,
		Quantity:    s.cfg.BaseQuantity,
		Strategy:    s.Name(),
		GeneratedAt: s.now(),
		Rationale:   fmt.Sprintf("momentum %.4f with %s flow", obs.Momentum, obs.Flow),
		Metadata: map[string]float64{
			"momentum":        obs.Momentum,
			"spread_fraction": obs.SpreadFraction(),
		},
	}
}

var (
	_ Strategy     = (*Scalper)(nil)
	_ Strategy     = (*SpreadStrategy)(nil)
	_ PairConsumer = (*SpreadStrategy)(nil)
)
