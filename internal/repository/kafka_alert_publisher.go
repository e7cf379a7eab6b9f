package repository

import (
	"context"
	"fmt"

	"BuzzRadar/internal/domain/models"
	pkgkafka "BuzzRadar/pkg/kafka"
)

// KafkaAlertPublisher streams alert transitions to a Kafka topic for
// downstream notifiers. Keyed by ticker so per-ticker ordering holds.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) Publish(ctx context.Context, tr *models.AlertTransition) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(tr.Ticker), tr); err != nil {
		return fmt.Errorf("publish alert transition %s/%s: %w", tr.Ticker, tr.Rule, err)
	}
	return nil
}

func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}
