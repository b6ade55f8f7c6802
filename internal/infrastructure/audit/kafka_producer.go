// Package audit publishes merge audit events to Kafka. Publishing is
// best-effort: a broker failure is logged but never fails the merge that
// produced the event.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/threatsmith/threatsmith/internal/config"
	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// Publisher emits merge audit events.
type Publisher interface {
	PublishMergeEvent(ctx context.Context, event *models.MergeAuditEvent) error
	Close() error
}

// KafkaPublisher is a Kafka-backed Publisher.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    logger.Logger
}

// NewKafkaPublisher creates a publisher writing to the configured audit
// topic.
func NewKafkaPublisher(cfg *config.KafkaConfig, log logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: cfg.BatchTimeout,
		BatchSize:    cfg.BatchSize,
	}
	return &KafkaPublisher{
		writer: writer,
		log:    log.WithComponent("KafkaPublisher"),
	}
}

// PublishMergeEvent sends one merge audit event, keyed by the primary model
// id so events for the same model stay ordered within a partition.
func (p *KafkaPublisher) PublishMergeEvent(ctx context.Context, event *models.MergeAuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error(ctx, "Failed to marshal merge audit event", err)
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PrimaryModelID),
		Value: payload,
	})
	if err != nil {
		p.log.Error(ctx, "Failed to publish merge audit event", err,
			logger.String("primary_model_id", event.PrimaryModelID),
		)
	}
	return err
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. Used when Kafka is disabled and in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishMergeEvent(ctx context.Context, event *models.MergeAuditEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
