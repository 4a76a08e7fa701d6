package repository

import (
	"context"

	"QuantCore/internal/domain/models"
)

// MarketStream is the upstream market-data collaborator boundary. The core
// treats gaps and stale ticks defensively; the stream only delivers them.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PricePoint, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalPublisher hands accepted signals to the order-execution collaborator.
// Fill price, partial fills and settlement are entirely its concern.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.TradingSignal) error
	Close() error
}

// TickStore persists raw observations for the monitoring collaborator.
type TickStore interface {
	StoreBatch(ctx context.Context, points []*models.PricePoint) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordTick(symbol string)
	RecordTickDropped(reason string)
	RecordSignal(strategy, action string)
	RecordSignalAccepted(strategy string)
	RecordGateRejection(reason string)
	RecordLastPrice(symbol string, price float64)
	RecordPairCount(n int)
	RecordPortfolioSharpe(v float64)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
