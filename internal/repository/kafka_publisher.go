package repository

import (
	"context"

	"PendlePulse/internal/domain/models"
	"PendlePulse/internal/domain/repository"
	pkgkafka "PendlePulse/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Events are keyed by market id so
// a hash balancer keeps each market on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

var _ repository.Publisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.SnapshotEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.MarketID), e)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []*models.SnapshotEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(e.MarketID), Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
