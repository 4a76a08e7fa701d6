package usecase

import (
	"context"
	"sync"
	"time"

	drepo "QuantCore/internal/domain/repository"
	"QuantCore/internal/history"
	"QuantCore/internal/services/portfolio"
	"QuantCore/internal/services/risk"
	"QuantCore/pkg/logger"
)

// Rebalancer periodically re-estimates return statistics from history,
// re-optimizes the allocation, and hands converged weights to the manager
// for sizing. A failed solve keeps the previous targets; the failure is
// logged and counted, never silently swallowed into equal weights.
type Rebalancer struct {
	interval time.Duration
	store    *history.Store
	opt      *portfolio.Optimizer
	engine   *risk.Engine
	manager  *StrategyManager
	metrics  drepo.Metrics
	log      *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewRebalancer wires the periodic allocation loop.
func NewRebalancer(
	interval time.Duration,
	store *history.Store,
	opt *portfolio.Optimizer,
	engine *risk.Engine,
	manager *StrategyManager,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Rebalancer {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Rebalancer{
		interval: interval,
		store:    store,
		opt:      opt,
		engine:   engine,
		manager:  manager,
		metrics:  metrics,
		log:      log,
	}
}

// Start launches the rebalance ticker.
func (r *Rebalancer) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RebalanceOnce(ctx)
			}
		}
	}()
}

// RebalanceOnce runs a single estimate-optimize-install cycle. Exposed for
// the API layer and tests; the ticker calls the same path.
func (r *Rebalancer) RebalanceOnce(ctx context.Context) {
	start := time.Now()

	returns := make(map[string][]float64)
	for _, sym := range r.store.Symbols() {
		if rs := r.store.Returns(sym); len(rs) > 0 {
			returns[sym] = rs
		}
	}

	in, err := r.opt.EstimateInputs(returns)
	if err != nil {
		r.log.Debug("rebalance skipped", logger.Error(err))
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	weights := r.opt.Optimize(in)
	if !weights.Converged {
		r.log.Warn("optimizer did not converge, keeping previous targets",
			logger.String("objective", weights.Objective))
		if r.metrics != nil {
			r.metrics.RecordError("optimizer")
		}
		return
	}

	r.manager.SetWeights(weights)
	if r.metrics != nil {
		r.metrics.RecordPortfolioSharpe(weights.Sharpe)
		r.metrics.RecordLatency("rebalance", time.Since(start).Seconds())
	}

	r.checkConcentration(weights.Weights)

	r.log.Info("rebalanced",
		logger.String("objective", weights.Objective),
		logger.Float64("sharpe", weights.Sharpe),
		logger.Float64("volatility", weights.Volatility),
		logger.Int("symbols", len(weights.Weights)))
}

// checkConcentration surfaces hedge suggestions for the new targets.
func (r *Rebalancer) checkConcentration(weights map[string]float64) {
	for _, rec := range r.engine.SuggestHedges(weights) {
		r.log.Warn("hedge suggested",
			logger.String("subject", rec.Symbol),
			logger.String("instrument", rec.Instrument),
			logger.Float64("ratio", rec.Ratio),
			logger.String("rationale", rec.Rationale))
	}
}

// Stop halts the ticker and waits for an in-flight cycle.
func (r *Rebalancer) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
