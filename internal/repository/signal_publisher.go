package repository

import (
	"context"

	"QuantCore/internal/domain/models"
	drepo "QuantCore/internal/domain/repository"
	pkgkafka "QuantCore/pkg/kafka"
)

// KafkaSignalPublisher hands accepted signals to the execution collaborator
// over Kafka, keyed by symbol so per-symbol ordering survives partitioning.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates the Kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) drepo.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.TradingSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopSignalPublisher discards signals; used when no broker is configured.
type NopSignalPublisher struct{}

func (NopSignalPublisher) Publish(context.Context, *models.TradingSignal) error { return nil }
func (NopSignalPublisher) Close() error                                         { return nil }
