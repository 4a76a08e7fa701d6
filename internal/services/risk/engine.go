package risk

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/services/features"
	"QuantCore/pkg/logger"
)

// Config holds every risk limit. All values come from configuration.
type Config struct {
	InitialEquity        float64
	CVaRConfidence       float64
	ATRPeriod            int
	ATRMultiplier        float64
	MaxPositionFraction  float64
	MaxDailyLossFraction float64
	MaxDrawdownFraction  float64
	SectorExposureLimit  float64
	SingleWeightLimit    float64
	HedgeRatioCap        float64
	Sectors              map[string]string
	HedgeInstruments     map[string]string
}

// Engine computes tail risk, volatility stops, hedge suggestions, and gates
// orders against account state. It owns the equity/peak/daily-PnL tracking;
// the manager reports fills and equity marks into it.
type Engine struct {
	cfg Config
	log *logger.Logger

	mu       sync.Mutex
	equity   float64
	peak     float64
	dailyPnL float64
}

// NewEngine creates a risk engine seeded with the configured starting equity.
func NewEngine(cfg Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.CVaRConfidence <= 0 || cfg.CVaRConfidence >= 1 {
		cfg.CVaRConfidence = 0.05
	}
	if cfg.ATRPeriod < 1 {
		cfg.ATRPeriod = 14
	}
	return &Engine{
		cfg:    cfg,
		log:    log,
		equity: cfg.InitialEquity,
		peak:   cfg.InitialEquity,
	}
}

// UpdateEquity marks account equity to market and advances the peak.
func (e *Engine) UpdateEquity(equity float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.equity = equity
	if equity > e.peak {
		e.peak = equity
	}
}

// RecordFill accumulates realized P&L into the daily tally and equity.
func (e *Engine) RecordFill(pnl float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dailyPnL += pnl
	e.equity += pnl
	if e.equity > e.peak {
		e.peak = e.equity
	}
}

// ResetDay zeroes the daily P&L tally at session rollover.
func (e *Engine) ResetDay() {
	e.mu.Lock()
	e.dailyPnL = 0
	e.mu.Unlock()
}

// Equity returns the current marked equity.
func (e *Engine) Equity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.equity
}

// AssessTailRisk computes empirical VaR and CVaR over a return series at the
// configured confidence level. An empty tail yields zeros with Ok=false, it
// never fails.
func (e *Engine) AssessTailRisk(returns []float64) models.RiskAssessment {
	out := models.RiskAssessment{Confidence: e.cfg.CVaRConfidence}
	if len(returns) == 0 {
		return out
	}

	v := features.Percentile(returns, e.cfg.CVaRConfidence)
	sum, n := 0.0, 0
	worst := 0.0
	for _, r := range returns {
		if r <= v {
			sum += r
			n++
		}
		if r < worst {
			worst = r
		}
	}
	if n == 0 {
		return out
	}

	out.VaR = v
	out.CVaR = sum / float64(n)
	out.MaxLossPct = -worst
	out.Ok = true
	return out
}

// CheckOrderRisk gates a prospective order against position size, daily loss,
// and drawdown limits. The size check is on the position that would result
// from the fill, so an order that reduces exposure always passes it. The
// returned decision carries a reason on rejection.
func (e *Engine) CheckOrderRisk(symbol string, side models.Action, quantity, price, position float64) models.GateDecision {
	e.mu.Lock()
	equity, peak, dailyPnL := e.equity, e.peak, e.dailyPnL
	e.mu.Unlock()

	if equity <= 0 {
		return reject("equity", "account equity is non-positive")
	}

	delta := quantity
	if side == models.ActionSell {
		delta = -quantity
	}
	if notional := math.Abs(position+delta) * price; notional/equity > e.cfg.MaxPositionFraction {
		return reject("position_size", fmt.Sprintf(
			"%s resulting position size %.0f is %.1f%% of equity, above the %.1f%% limit",
			symbol, notional, 100*notional/equity, 100*e.cfg.MaxPositionFraction))
	}

	if limit := equity * e.cfg.MaxDailyLossFraction; dailyPnL < -limit {
		return reject("daily_loss", fmt.Sprintf(
			"daily loss %.0f already beyond the %.0f limit", -dailyPnL, limit))
	}

	if peak > 0 {
		if dd := (peak - equity) / peak; dd > e.cfg.MaxDrawdownFraction {
			return reject("drawdown", fmt.Sprintf(
				"drawdown %.1f%% exceeds the %.1f%% limit",
				100*dd, 100*e.cfg.MaxDrawdownFraction))
		}
	}

	return models.GateDecision{Allowed: true}
}

// SuggestHedges aggregates weights by sector and proposes offsetting
// instruments for concentrated exposure. Symbols without a sector mapping are
// grouped under "unclassified".
func (e *Engine) SuggestHedges(weights map[string]float64) []models.HedgeRecommendation {
	var out []models.HedgeRecommendation

	sectorTotals := make(map[string]float64)
	for sym, w := range weights {
		sector := e.cfg.Sectors[sym]
		if sector == "" {
			sector = "unclassified"
		}
		sectorTotals[sector] += w

		if w > e.cfg.SingleWeightLimit {
			out = append(out, models.HedgeRecommendation{
				Symbol:     sym,
				Instrument: e.hedgeInstrument(sym),
				Ratio:      e.hedgeRatio(w - e.cfg.SingleWeightLimit),
				Rationale: fmt.Sprintf("single-name weight %.1f%% above %.1f%% limit",
					100*w, 100*e.cfg.SingleWeightLimit),
			})
		}
	}

	for sector, total := range sectorTotals {
		if total <= e.cfg.SectorExposureLimit {
			continue
		}
		out = append(out, models.HedgeRecommendation{
			Symbol:     sector,
			Instrument: e.hedgeInstrument(sector),
			Ratio:      e.hedgeRatio(total - e.cfg.SectorExposureLimit),
			Rationale: fmt.Sprintf("sector %s exposure %.1f%% above %.1f%% limit",
				sector, 100*total, 100*e.cfg.SectorExposureLimit),
		})
	}
	return out
}

func (e *Engine) hedgeInstrument(key string) string {
	if inst, ok := e.cfg.HedgeInstruments[key]; ok {
		return inst
	}
	if inst, ok := e.cfg.HedgeInstruments[strings.ToLower(key)]; ok {
		return inst
	}
	return "SPY" // broad-market default
}

// hedgeRatio scales the ratio by the excess over the limit, capped.
func (e *Engine) hedgeRatio(excess float64) float64 {
	ratio := excess * 2
	if ratio > e.cfg.HedgeRatioCap {
		return e.cfg.HedgeRatioCap
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

func reject(code, reason string) models.GateDecision {
	return models.GateDecision{Allowed: false, Code: code, Reason: reason}
}
