package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	"github.com/waymark-maps/service-routes/internal/platform/kafka"
)

// LocationConsumer feeds device position samples and geolocation errors into the
// track service. Samples are keyed by session, so one partition carries a session's
// samples in order.
type LocationConsumer struct {
	consumer *kafka.Consumer
	track    *application.TrackService
	logger   *zap.Logger
}

// NewLocationConsumer creates a new LocationConsumer.
func NewLocationConsumer(
	brokers []string,
	groupID string,
	track *application.TrackService,
	logger *zap.Logger,
) *LocationConsumer {
	return &LocationConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, application.TopicLocationSamples, logger),
		track:    track,
		logger:   logger,
	}
}

// Start begins consuming location samples. This blocks until the context is cancelled.
func (c *LocationConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *LocationConsumer) Close() error {
	return c.consumer.Close()
}

func (c *LocationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from location topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case application.LocationSampled:
		var evt application.LocationSampledEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse location sample", zap.Error(err))
			return nil
		}
		c.track.AddSample(evt.SessionID, geo.Point{Lat: evt.Lat, Lng: evt.Lng})

	case application.LocationFailed:
		var evt application.LocationFailedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse location failure", zap.Error(err))
			return nil
		}
		if _, err := c.track.ReportError(evt.SessionID, evt.Reason, evt.Message); err != nil {
			c.logger.Warn("ignoring location failure", zap.String("reason", evt.Reason), zap.Error(err))
		}

	default:
		c.logger.Debug("ignoring unhandled location event type", zap.String("type", cloudEvent.Type))
	}
	return nil
}
