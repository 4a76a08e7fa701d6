package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
	pkgkafka "QuantCore/pkg/kafka"
	"QuantCore/pkg/logger"
)

// KafkaStream implements MarketStream over a Kafka tick topic, for
// deployments where another process owns the exchange connection and
// republishes normalized ticks.
type KafkaStream struct {
	brokers []string
	topic   string
	groupID string
	workers int
	buffer  int
	log     *logger.Logger

	mu        sync.Mutex
	consumer  *pkgkafka.Consumer
	points    chan *models.PricePoint
	errs      chan error
	connected bool
}

// NewKafkaStream creates a Kafka-backed MarketStream.
func NewKafkaStream(brokers []string, topic, groupID string, workers, buffer int, log *logger.Logger) drepo.MarketStream {
	if log == nil {
		log = logger.Nop()
	}
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1024
	}
	return &KafkaStream{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		workers: workers,
		buffer:  buffer,
		log:     log,
	}
}

// Connect builds the consumer. The actual broker dial happens lazily on the
// first fetch; connectivity problems surface on the error channel.
func (s *KafkaStream) Connect(_ context.Context) error {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(s.brokers),
		pkgkafka.WithConsumerGroupID(s.groupID),
		pkgkafka.WithConsumerWorkers(s.workers),
		pkgkafka.WithConsumerBufferSize(s.buffer),
	)
	if err != nil {
		return fmt.Errorf("feed kafka: %w", err)
	}

	s.mu.Lock()
	s.consumer = consumer
	s.points = make(chan *models.PricePoint, s.buffer)
	s.errs = make(chan error, 1)
	s.connected = true
	s.mu.Unlock()
	return nil
}

// Subscribe registers the tick handler and starts the consumer.
func (s *KafkaStream) Subscribe(_ context.Context) error {
	s.mu.Lock()
	consumer := s.consumer
	s.mu.Unlock()
	if consumer == nil {
		return fmt.Errorf("feed kafka not connected")
	}
	consumer.RegisterHandler(&tickHandler{topic: s.topic, points: s.points})
	if err := consumer.Start(); err != nil {
		return fmt.Errorf("feed kafka start: %w", err)
	}
	s.log.Info("kafka feed subscribed",
		logger.String("topic", s.topic),
		logger.String("group", s.groupID))
	return nil
}

// Read returns the observation and error channels.
func (s *KafkaStream) Read(_ context.Context) (<-chan *models.PricePoint, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points, s.errs
}

// Reconnect is a no-op: the consumer group rebalances internally and retries
// fetches on its own.
func (s *KafkaStream) Reconnect(_ context.Context) error { return nil }

// Close stops the consumer.
func (s *KafkaStream) Close() error {
	s.mu.Lock()
	consumer := s.consumer
	s.connected = false
	s.mu.Unlock()
	if consumer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return consumer.Stop(ctx)
}

// IsConnected indicates status.
func (s *KafkaStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// tickHandler decodes tick payloads off the topic into observations.
type tickHandler struct {
	topic  string
	points chan *models.PricePoint
}

func (h *tickHandler) Topic() string { return h.topic }

type tickPayload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	TS     int64   `json:"ts"` // ms
}

func (h *tickHandler) Handle(_ context.Context, data []byte) error {
	var t tickPayload
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decode tick: %w", err)
	}
	p := &models.PricePoint{
		Symbol:    t.Symbol,
		Price:     t.Price,
		Volume:    t.Volume,
		Bid:       t.Bid,
		Ask:       t.Ask,
		Timestamp: time.UnixMilli(t.TS),
	}
	select {
	case h.points <- p:
	default:
		// drop on backpressure
	}
	return nil
}
