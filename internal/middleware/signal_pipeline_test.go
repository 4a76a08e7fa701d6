package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantCore/internal/domain/models"
)

type recordingPublisher struct {
	mu        sync.Mutex
	failFirst int
	published []*models.TradingSignal
}

func (p *recordingPublisher) Publish(_ context.Context, s *models.TradingSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFirst > 0 {
		p.failFirst--
		return fmt.Errorf("broker unavailable")
	}
	p.published = append(p.published, s)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func validSignal(symbol string) *models.TradingSignal {
	return &models.TradingSignal{
		Symbol:      symbol,
		Action:      models.ActionBuy,
		Confidence:  0.8,
		Price:       100,
		Quantity:    10,
		Strategy:    "statarb",
		GeneratedAt: time.Now(),
	}
}

func TestPipelineForwardsValidSignal(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewSignalPipeline(pub, nil)

	require.NoError(t, p.Publish(context.Background(), validSignal("AAPL")))
	assert.Equal(t, 1, pub.count())
}

func TestPipelineRejectsMalformedSignal(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewSignalPipeline(pub, nil)

	bad := validSignal("AAPL")
	bad.Quantity = 0
	assert.Error(t, p.Publish(context.Background(), bad))

	bad = validSignal("AAPL")
	bad.Confidence = 1.5
	assert.Error(t, p.Publish(context.Background(), bad))

	assert.Error(t, p.Publish(context.Background(), nil))
	assert.Zero(t, pub.count())
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewSignalPipeline(pub, nil, WithMaxRate(1, 1))

	require.NoError(t, p.Publish(context.Background(), validSignal("AAPL")))
	// Second emission within the same second is dropped, not errored.
	require.NoError(t, p.Publish(context.Background(), validSignal("AAPL")))
	assert.Equal(t, 1, pub.count())

	// Other symbols keep their own bucket.
	require.NoError(t, p.Publish(context.Background(), validSignal("MSFT")))
	assert.Equal(t, 2, pub.count())
}

func TestPipelineBuffersAndRetriesOnFailure(t *testing.T) {
	pub := &recordingPublisher{failFirst: 2}
	p := NewSignalPipeline(pub, nil)
	p.Start(context.Background())
	defer p.Stop()

	err := p.Publish(context.Background(), validSignal("AAPL"))
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return pub.count() == 1
	}, 3*time.Second, 20*time.Millisecond)
}
