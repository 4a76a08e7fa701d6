package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
	"QuantCore/internal/history"
	"QuantCore/internal/services/pairs"
)

func collectorFixture(t *testing.T) (*TickCollector, *history.Store, *StrategyManager) {
	t.Helper()
	store := history.NewStore(64, nil)
	tracker := pairs.NewTracker(pairs.Config{
		Mode:                 pairs.ModeCorrelation,
		CorrelationThreshold: 0.7,
		CorrelationWindow:    10,
		MinObservations:      10,
		MaxStrikes:           2,
	}, nil, nil)
	manager := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)
	c := NewTickCollector(CollectorConfig{
		MaxLatency:  200 * time.Millisecond,
		RescanEvery: 1000,
	}, nil, store, tracker, manager, nil, nil, nil)
	return c, store, manager
}

func TestHandleDropsStaleObservation(t *testing.T) {
	c, store, _ := collectorFixture(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.handle(context.Background(), &models.PricePoint{
		Symbol:    "AAPL",
		Price:     100,
		Timestamp: now.Add(-time.Second),
	})
	assert.Zero(t, store.Len("AAPL"))
}

func TestHandleAppendsAndDerivesFeatures(t *testing.T) {
	c, store, _ := collectorFixture(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		c.handle(context.Background(), &models.PricePoint{
			Symbol:    "AAPL",
			Price:     100 + float64(i),
			Bid:       99 + float64(i),
			Ask:       100.5 + float64(i),
			Timestamp: now,
		})
	}
	require.Equal(t, 10, store.Len("AAPL"))

	last, ok := store.Latest("AAPL")
	require.True(t, ok)
	assert.Positive(t, last.Volatility)
	assert.Positive(t, last.Momentum)
	// trade prints above the quote mid, so flow reads buyer-initiated
	assert.Equal(t, models.FlowBuy, last.Flow)
}

func TestHandleRejectsMalformedPrice(t *testing.T) {
	c, store, _ := collectorFixture(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.handle(context.Background(), &models.PricePoint{
		Symbol: "AAPL", Price: -1, Timestamp: now,
	})
	assert.Zero(t, store.Len("AAPL"))
}

func TestRescanRefreshesManagerPairs(t *testing.T) {
	c, store, manager := collectorFixture(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	base := now.Add(-time.Hour)
	for i := 0; i < 20; i++ {
		require.True(t, store.Append(models.PricePoint{
			Symbol: "AAA", Price: 100 + float64(i), Timestamp: base,
		}))
		require.True(t, store.Append(models.PricePoint{
			Symbol: "BBB", Price: 50 + 2*float64(i), Timestamp: base,
		}))
	}

	spread := &stubPairSink{}
	require.NoError(t, manager.Register(spread))

	c.triggerRescan(context.Background())
	c.wg.Wait()

	require.Len(t, spread.pairs, 1)
	assert.Equal(t, "AAA", spread.pairs[0].SymbolA)
}

type stubPairSink struct {
	stubStrategy
	pairs []models.RelationshipPair
}

func (s *stubPairSink) Name() string { return "sink" }
func (s *stubPairSink) SetPairs(pairs []models.RelationshipPair) {
	s.pairs = pairs
}

// flakyStream behaves like the WebSocket client: a read failure surfaces one
// error and closes both channels; a reconnect hands out fresh ones.
type flakyStream struct {
	mu         sync.Mutex
	points     chan *models.PricePoint
	errs       chan error
	reconnects int
	connected  bool
}

func newFlakyStream() *flakyStream {
	return &flakyStream{
		points:    make(chan *models.PricePoint, 8),
		errs:      make(chan error, 1),
		connected: true,
	}
}

func (s *flakyStream) Connect(context.Context) error   { return nil }
func (s *flakyStream) Subscribe(context.Context) error { return nil }

func (s *flakyStream) Read(context.Context) (<-chan *models.PricePoint, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points, s.errs
}

func (s *flakyStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	s.points = make(chan *models.PricePoint, 8)
	s.errs = make(chan error, 1)
	s.connected = true
	return nil
}

func (s *flakyStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *flakyStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *flakyStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

func (s *flakyStream) push(p *models.PricePoint) {
	s.mu.Lock()
	s.points <- p
	s.mu.Unlock()
}

func (s *flakyStream) fail() {
	s.mu.Lock()
	points, errs := s.points, s.errs
	s.connected = false
	s.mu.Unlock()
	errs <- fmt.Errorf("read: connection reset")
	close(errs)
	close(points)
}

func TestConsumeResumesAfterStreamFailure(t *testing.T) {
	store := history.NewStore(64, nil)
	tracker := pairs.NewTracker(pairs.Config{
		Mode:                 pairs.ModeCorrelation,
		CorrelationThreshold: 0.7,
		CorrelationWindow:    10,
		MinObservations:      10,
		MaxStrikes:           2,
	}, nil, nil)
	manager := NewStrategyManager(riskEngine(), &capturePublisher{}, nil, nil)
	stream := newFlakyStream()
	c := NewTickCollector(CollectorConfig{
		MaxLatency:  time.Minute,
		RescanEvery: 1000,
	}, stream, store, tracker, manager, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	stream.push(&models.PricePoint{Symbol: "AAPL", Price: 100, Timestamp: time.Now()})
	require.Eventually(t, func() bool { return store.Len("AAPL") == 1 },
		time.Second, 5*time.Millisecond)

	stream.fail()
	require.Eventually(t, func() bool { return stream.reconnectCount() >= 1 },
		2*time.Second, 5*time.Millisecond)

	// Ticks arriving on the post-reconnect channels keep flowing.
	stream.push(&models.PricePoint{Symbol: "AAPL", Price: 101, Timestamp: time.Now()})
	require.Eventually(t, func() bool { return store.Len("AAPL") == 2 },
		2*time.Second, 5*time.Millisecond)
	assert.True(t, c.IsConnected())
}
