package usecase

import (
	"context"
	"time"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/history"
	"QuantCore/internal/services/pairs"
	"QuantCore/internal/services/portfolio"
	"QuantCore/internal/services/risk"
	"QuantCore/pkg/cache"
)

// RiskSnapshot is the read-model served by the risk endpoint.
type RiskSnapshot struct {
	Equity      float64                          `json:"equity"`
	Exposure    map[string]float64               `json:"exposure"`
	Assessments map[string]models.RiskAssessment `json:"assessments"`
	Hedges      []models.HedgeRecommendation     `json:"hedges"`
	GeneratedAt time.Time                        `json:"generated_at"`
}

// SnapshotService aggregates engine state into cacheable read models for the
// HTTP layer. All methods are safe for concurrent use; the underlying
// components keep their own locks.
type SnapshotService struct {
	store   *history.Store
	tracker *pairs.Tracker
	engine  *risk.Engine
	opt     *portfolio.Optimizer
	manager *StrategyManager
	cache   cache.Service
	ttl     time.Duration
}

// NewSnapshotService creates the aggregator. The cache is optional; nil
// disables caching and every call recomputes.
func NewSnapshotService(
	store *history.Store,
	tracker *pairs.Tracker,
	engine *risk.Engine,
	opt *portfolio.Optimizer,
	manager *StrategyManager,
	c cache.Service,
	ttl time.Duration,
) *SnapshotService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotService{
		store:   store,
		tracker: tracker,
		engine:  engine,
		opt:     opt,
		manager: manager,
		cache:   c,
		ttl:     ttl,
	}
}

// Weights returns the portfolio weights in force.
func (s *SnapshotService) Weights(ctx context.Context) models.PortfolioWeights {
	var w models.PortfolioWeights
	if s.cached(ctx, "snapshot:weights", &w) {
		return w
	}
	w = s.manager.Weights()
	s.put(ctx, "snapshot:weights", w)
	return w
}

// Pairs returns the qualified relationship pairs.
func (s *SnapshotService) Pairs(ctx context.Context) []models.RelationshipPair {
	var ps []models.RelationshipPair
	if s.cached(ctx, "snapshot:pairs", &ps) {
		return ps
	}
	ps = s.tracker.Pairs()
	s.put(ctx, "snapshot:pairs", ps)
	return ps
}

// Strategies returns per-strategy performance metrics.
func (s *SnapshotService) Strategies(ctx context.Context) []models.StrategyMetrics {
	var ms []models.StrategyMetrics
	if s.cached(ctx, "snapshot:strategies", &ms) {
		return ms
	}
	ms = s.manager.Metrics()
	s.put(ctx, "snapshot:strategies", ms)
	return ms
}

// Risk assembles equity, exposure, per-symbol tail assessments, and hedge
// suggestions for the current book.
func (s *SnapshotService) Risk(ctx context.Context) RiskSnapshot {
	var snap RiskSnapshot
	if s.cached(ctx, "snapshot:risk", &snap) {
		return snap
	}

	exposure := s.manager.Exposure(func(sym string) (float64, bool) {
		p, ok := s.store.Latest(sym)
		if !ok {
			return 0, false
		}
		return p.Price, true
	})

	assessments := make(map[string]models.RiskAssessment)
	for _, sym := range s.store.Symbols() {
		rets := s.store.Returns(sym)
		if len(rets) < 2 {
			continue
		}
		assessments[sym] = s.engine.AssessTailRisk(rets)
	}

	snap = RiskSnapshot{
		Equity:      s.engine.Equity(),
		Exposure:    exposure,
		Assessments: assessments,
		Hedges:      s.engine.SuggestHedges(exposure),
		GeneratedAt: time.Now(),
	}
	s.put(ctx, "snapshot:risk", snap)
	return snap
}

// Frontier estimates inputs from retained history and sweeps the efficient
// frontier. Returns nil when too little history has accumulated.
func (s *SnapshotService) Frontier(ctx context.Context) []models.FrontierPoint {
	var fps []models.FrontierPoint
	if s.cached(ctx, "snapshot:frontier", &fps) {
		return fps
	}

	returns := make(map[string][]float64)
	for _, sym := range s.store.Symbols() {
		returns[sym] = s.store.Returns(sym)
	}
	in, err := s.opt.EstimateInputs(returns)
	if err != nil {
		return nil
	}
	fps = s.opt.EfficientFrontier(in)
	s.put(ctx, "snapshot:frontier", fps)
	return fps
}

func (s *SnapshotService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Get(ctx, key, dest) == nil
}

func (s *SnapshotService) put(ctx context.Context, key string, v interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, v, s.ttl)
}
