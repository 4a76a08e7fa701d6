package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
	"QuantCore/internal/service/ratelimit"
)

// SignalPipeline sits between the strategy manager and the broker publisher.
// It validates outgoing signals, throttles per-symbol emission rate, and
// buffers when the downstream publisher is unavailable so a broker blip does
// not drop accepted signals on the floor.
type SignalPipeline struct {
	pub     drepo.SignalPublisher
	metrics drepo.Metrics
	limiter *ratelimit.Limiter

	maxPerSec float64
	burst     float64
	bufCh     chan *models.TradingSignal
	stopCh    chan struct{}

	mu      sync.Mutex
	started bool
}

type PipelineOption func(*SignalPipeline)

// WithMaxRate caps signal emissions per symbol per second.
func WithMaxRate(perSec, burst float64) PipelineOption {
	return func(p *SignalPipeline) {
		if perSec > 0 {
			p.maxPerSec = perSec
		}
		if burst > 0 {
			p.burst = burst
		}
	}
}

// WithBufferSize sets the retry buffer size used when publishing fails.
func WithBufferSize(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.TradingSignal, n)
		}
	}
}

// NewSignalPipeline wraps a publisher.
func NewSignalPipeline(pub drepo.SignalPublisher, metrics drepo.Metrics, opts ...PipelineOption) *SignalPipeline {
	p := &SignalPipeline{
		pub:       pub,
		metrics:   metrics,
		limiter:   ratelimit.New(),
		maxPerSec: 5,
		burst:     10,
		bufCh:     make(chan *models.TradingSignal, 1000),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches background flushing of buffered signals.
func (p *SignalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				if err := p.pub.Publish(ctx, s); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.recordError("publish_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- s:
					default:
						p.recordError("publish_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *SignalPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Publish validates and throttles, then forwards downstream, buffering on
// failure. A throttled signal is dropped silently; strategies routinely
// re-emit while the same condition holds.
func (p *SignalPipeline) Publish(ctx context.Context, s *models.TradingSignal) error {
	if err := validateSignal(s); err != nil {
		p.recordError("publish_validate")
		return err
	}
	if !p.limiter.Allow(s.Symbol, p.burst, p.maxPerSec) {
		p.recordError("publish_throttle")
		return nil
	}

	if err := p.pub.Publish(ctx, s); err != nil {
		select {
		case p.bufCh <- s:
		default:
			p.recordError("publish_buffer_full")
		}
		return fmt.Errorf("signal pipeline: %w", err)
	}
	return nil
}

// Close stops flushing and closes the wrapped publisher.
func (p *SignalPipeline) Close() error {
	p.Stop()
	return p.pub.Close()
}

func (p *SignalPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func validateSignal(s *models.TradingSignal) error {
	if s == nil {
		return fmt.Errorf("signal nil")
	}
	if s.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if s.Price <= 0 || s.Quantity <= 0 {
		return fmt.Errorf("non-positive price/quantity")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence out of range")
	}
	return nil
}
