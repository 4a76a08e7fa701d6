package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
	"QuantCore/internal/history"
	"QuantCore/internal/services/features"
	"QuantCore/internal/services/pairs"
	"QuantCore/pkg/logger"
)

// CollectorConfig bounds the observation pipeline.
type CollectorConfig struct {
	MaxLatency       time.Duration
	MomentumLookback int
	VolatilityWindow int
	RescanEvery      int
	RescanTimeout    time.Duration
	BatchSize        int
	BatchTimeout     time.Duration
}

// TickCollector reads observations from the market stream, derives the
// per-point features, appends them to history, and dispatches them to the
// strategy manager. Every RescanEvery observations it kicks off a pair
// re-scan in the background so the O(n²) testing never blocks the tick path.
type TickCollector struct {
	cfg     CollectorConfig
	stream  drepo.MarketStream
	store   *history.Store
	tracker *pairs.Tracker
	manager *StrategyManager
	ticks   drepo.TickStore
	metrics drepo.Metrics
	log     *logger.Logger
	now     func() time.Time

	seen       atomic.Int64
	rescanning atomic.Bool
	wg         sync.WaitGroup

	batchMu sync.Mutex
	batch   []*models.PricePoint
	flushed time.Time
}

// NewTickCollector wires the collector. The tick store is optional; passing
// nil disables persistence.
func NewTickCollector(
	cfg CollectorConfig,
	stream drepo.MarketStream,
	store *history.Store,
	tracker *pairs.Tracker,
	manager *StrategyManager,
	ticks drepo.TickStore,
	metrics drepo.Metrics,
	log *logger.Logger,
) *TickCollector {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxLatency <= 0 {
		cfg.MaxLatency = 200 * time.Millisecond
	}
	if cfg.MomentumLookback < 1 {
		cfg.MomentumLookback = 5
	}
	if cfg.VolatilityWindow < 2 {
		cfg.VolatilityWindow = 20
	}
	if cfg.RescanEvery < 1 {
		cfg.RescanEvery = 100
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 2 * time.Second
	}
	return &TickCollector{
		cfg:     cfg,
		stream:  stream,
		store:   store,
		tracker: tracker,
		manager: manager,
		ticks:   ticks,
		metrics: metrics,
		log:     log,
		now:     time.Now,
		flushed: time.Now(),
	}
}

// IsConnected reports the stream state for health checks.
func (c *TickCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start connects, subscribes, and launches the consume loop.
func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	tickCh, errCh := c.stream.Read(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, tickCh, errCh)
	}()
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.PricePoint, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err != nil {
				c.log.Warn("stream error, reconnecting", logger.Error(err))
				if c.metrics != nil {
					c.metrics.RecordError("stream")
				}
			}
			// On error or a closed error channel the stream's read session
			// is over; fresh channels come from the reconnect.
			if tickCh, errCh = c.reopen(ctx); tickCh == nil {
				return
			}
		case p, ok := <-tickCh:
			if !ok {
				if tickCh, errCh = c.reopen(ctx); tickCh == nil {
					return
				}
				continue
			}
			if p == nil {
				continue
			}
			c.handle(ctx, p)
		}
	}
}

// reopen reconnects with backoff until the stream comes back or the context
// ends, then re-acquires read channels. Nil channels mean the context ended.
func (c *TickCollector) reopen(ctx context.Context) (<-chan *models.PricePoint, <-chan error) {
	delay := time.Second
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.log.Warn("reconnect failed, retrying",
				logger.Error(err), logger.Duration("retry_in", delay))
			if c.metrics != nil {
				c.metrics.RecordError("reconnect")
			}
			select {
			case <-ctx.Done():
				return nil, nil
			case <-time.After(delay):
			}
			if delay < 30*time.Second {
				delay *= 2
			}
			continue
		}
		return c.stream.Read(ctx)
	}
}

// handle runs the synchronous per-observation path: staleness check, feature
// derivation, history append, strategy dispatch.
func (c *TickCollector) handle(ctx context.Context, p *models.PricePoint) {
	start := c.now()

	if lag := start.Sub(p.Timestamp); lag > c.cfg.MaxLatency {
		if c.metrics != nil {
			c.metrics.RecordTickDropped("stale")
		}
		c.log.Debug("dropping stale observation",
			logger.String("symbol", p.Symbol),
			logger.Duration("lag", lag))
		return
	}

	c.derive(p)
	if !c.store.Append(*p) {
		if c.metrics != nil {
			c.metrics.RecordTickDropped("malformed")
		}
		return
	}
	if c.metrics != nil {
		c.metrics.RecordTick(p.Symbol)
		c.metrics.RecordLastPrice(p.Symbol, p.Price)
	}

	c.manager.OnObservation(ctx, *p)
	c.persist(ctx, p)

	if n := c.seen.Add(1); n%int64(c.cfg.RescanEvery) == 0 {
		c.triggerRescan(ctx)
	}
	if c.metrics != nil {
		c.metrics.RecordLatency("tick", c.now().Sub(start).Seconds())
	}
}

// derive fills the volatility, momentum, and order-flow fields from the
// symbol's retained history plus the incoming point.
func (c *TickCollector) derive(p *models.PricePoint) {
	prices := c.store.Prices(p.Symbol)
	prices = append(prices, p.Price)

	p.Volatility = features.RollingVolatility(prices, c.cfg.VolatilityWindow)
	p.Momentum = features.Momentum(prices, c.cfg.MomentumLookback)

	mid := p.Mid()
	switch {
	case mid <= 0:
		p.Flow = models.FlowNeutral
	case p.Price > mid:
		p.Flow = models.FlowBuy
	case p.Price < mid:
		p.Flow = models.FlowSell
	default:
		p.Flow = models.FlowNeutral
	}
}

// triggerRescan runs at most one pair re-scan at a time; an overlapping
// trigger is skipped rather than queued.
func (c *TickCollector) triggerRescan(ctx context.Context) {
	if !c.rescanning.CompareAndSwap(false, true) {
		return
	}
	series := make(map[string][]float64)
	for _, sym := range c.store.Symbols() {
		series[sym] = c.store.Prices(sym)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.rescanning.Store(false)

		scanCtx := ctx
		if c.cfg.RescanTimeout > 0 {
			var cancel context.CancelFunc
			scanCtx, cancel = context.WithTimeout(ctx, c.cfg.RescanTimeout)
			defer cancel()
		}
		start := c.now()
		tracked := c.tracker.Update(scanCtx, series)
		c.manager.SetPairs(tracked)
		c.log.Info("pair re-scan complete",
			logger.Int("pairs", len(tracked)),
			logger.Duration("took", c.now().Sub(start)))
	}()
}

// persist buffers observations and flushes them to the tick store in batches.
func (c *TickCollector) persist(ctx context.Context, p *models.PricePoint) {
	if c.ticks == nil {
		return
	}
	c.batchMu.Lock()
	c.batch = append(c.batch, p)
	full := len(c.batch) >= c.cfg.BatchSize
	aged := c.now().Sub(c.flushed) >= c.cfg.BatchTimeout
	var flush []*models.PricePoint
	if full || aged {
		flush = c.batch
		c.batch = nil
		c.flushed = c.now()
	}
	c.batchMu.Unlock()

	if len(flush) == 0 {
		return
	}
	if err := c.ticks.StoreBatch(ctx, flush); err != nil {
		c.log.Error("store tick batch", logger.Error(err), logger.Int("size", len(flush)))
		if c.metrics != nil {
			c.metrics.RecordError("tick_store")
		}
	}
}

// Shutdown closes the stream and waits for in-flight work.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	err := c.stream.Close()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
