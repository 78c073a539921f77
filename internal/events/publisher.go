package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/platform/kafka"
)

type eventWriter interface {
	PublishEvent(ctx context.Context, topic, key string, ce kafka.CloudEvent) error
}

// KafkaPublisher publishes application events as CloudEvents. Failures are logged and
// swallowed so a broker outage never fails a user request.
type KafkaPublisher struct {
	writer eventWriter
	source string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher that stamps events with source.
func NewKafkaPublisher(producer *kafka.Producer, source string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: producer, source: source, logger: logger}
}

// Publish wraps data in a CloudEvent and writes it to topic.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(p.source, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = key

	if err := p.writer.PublishEvent(ctx, topic, key, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
