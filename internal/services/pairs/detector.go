package pairs

import (
	"context"
	"sort"
	"sync"
	"time"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
	"QuantCore/pkg/logger"
)

// Mode selects the pairwise qualification test.
const (
	ModeCointegration = "cointegration"
	ModeCorrelation   = "correlation"
)

// Config holds the detector thresholds. All values come from configuration;
// bad values are rejected at config-load time.
type Config struct {
	Mode                 string
	PValueThreshold      float64
	CorrelationThreshold float64
	CorrelationWindow    int
	MinObservations      int
	MaxStrikes           int
	ADFLags              int
}

// Tracker maintains the current set of qualified pairs. Update runs the full
// O(n²) scan and is meant to be called on a slow cadence, decoupled from
// per-tick signal evaluation. Already-tracked pairs are never re-added; a
// tracked pair that fails its re-test MaxStrikes scans in a row is dropped.
type Tracker struct {
	cfg     Config
	mu      sync.Mutex
	tracked map[string]*trackedPair
	log     *logger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

type trackedPair struct {
	pair    models.RelationshipPair
	strikes int
}

// NewTracker creates a pair tracker.
func NewTracker(cfg Config, log *logger.Logger, metrics drepo.Metrics) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxStrikes < 1 {
		cfg.MaxStrikes = 1
	}
	return &Tracker{
		cfg:     cfg,
		tracked: make(map[string]*trackedPair),
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Update re-tests every candidate pair among the given price series and
// returns the tracked set afterwards. A test that fails numerically counts as
// "no relationship", never as an error.
func (t *Tracker) Update(ctx context.Context, series map[string][]float64) []models.RelationshipPair {
	symbols := make([]string, 0, len(series))
	for sym, prices := range series {
		if len(prices) >= t.cfg.MinObservations {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)

	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			select {
			case <-ctx.Done():
				return t.pairsLocked()
			default:
			}
			t.evaluate(symbols[i], symbols[j], series[symbols[i]], series[symbols[j]])
		}
	}

	if t.metrics != nil {
		t.metrics.RecordPairCount(len(t.tracked))
	}
	return t.pairsLocked()
}

// Pairs returns a snapshot of the tracked set.
func (t *Tracker) Pairs() []models.RelationshipPair {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pairsLocked()
}

func (t *Tracker) pairsLocked() []models.RelationshipPair {
	out := make([]models.RelationshipPair, 0, len(t.tracked))
	for _, tp := range t.tracked {
		out = append(out, tp.pair)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (t *Tracker) evaluate(symA, symB string, pa, pb []float64) {
	pair, ok := t.test(symA, symB, pa, pb)
	key := models.RelationshipPair{SymbolA: symA, SymbolB: symB}.Key()
	existing, tracked := t.tracked[key]

	switch {
	case ok && tracked:
		// Refresh strength and hedge ratio, keep discovery time.
		pair.DiscoveredAt = existing.pair.DiscoveredAt
		existing.pair = pair
		existing.strikes = 0
	case ok && !tracked:
		pair.DiscoveredAt = t.now()
		t.tracked[key] = &trackedPair{pair: pair}
		t.log.Info("pair qualified",
			logger.String("pair", key),
			logger.String("type", string(pair.Type)),
			logger.Float64("strength", pair.Strength))
	case !ok && tracked:
		existing.strikes++
		if existing.strikes >= t.cfg.MaxStrikes {
			delete(t.tracked, key)
			t.log.Info("pair expired after failed re-tests",
				logger.String("pair", key),
				logger.Int("strikes", existing.strikes))
		}
	}
}

// test dispatches on the configured mode.
func (t *Tracker) test(symA, symB string, pa, pb []float64) (models.RelationshipPair, bool) {
	n := len(pa)
	if len(pb) < n {
		n = len(pb)
	}
	pa, pb = pa[len(pa)-n:], pb[len(pb)-n:]

	if t.cfg.Mode == ModeCorrelation {
		return t.testCorrelation(symA, symB, pa, pb)
	}
	return t.testCointegration(symA, symB, pa, pb)
}
