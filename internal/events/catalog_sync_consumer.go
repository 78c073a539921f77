package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/platform/kafka"
)

// CatalogSyncConsumer keeps this instance's route and marker catalogs in step with writes
// made through other instances.
type CatalogSyncConsumer struct {
	consumer *kafka.Consumer
	routes   *application.RouteService
	markers  *application.MarkerService
	source   string
	logger   *zap.Logger
}

// NewCatalogSyncConsumer creates a new CatalogSyncConsumer. Events stamped with source,
// this instance's own, are skipped. groupID must be unique per instance so that every
// instance sees every event.
func NewCatalogSyncConsumer(
	brokers []string,
	groupID string,
	source string,
	routes *application.RouteService,
	markers *application.MarkerService,
	logger *zap.Logger,
) *CatalogSyncConsumer {
	return &CatalogSyncConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, application.TopicMapEvents, logger),
		routes:   routes,
		markers:  markers,
		source:   source,
		logger:   logger,
	}
}

// Start begins consuming map events. This blocks until the context is cancelled.
func (c *CatalogSyncConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *CatalogSyncConsumer) Close() error {
	return c.consumer.Close()
}

func (c *CatalogSyncConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from map topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	if cloudEvent.Source == c.source {
		return nil
	}

	switch cloudEvent.Type {
	case application.RouteCreated, application.RouteRecolored:
		var evt application.RouteEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse route event data", zap.Error(err))
			return nil
		}
		if err := c.routes.ApplyRemoteRoute(evt.Route); err != nil {
			c.logger.Warn("ignoring remote route", zap.String("route_id", evt.Route.ID.String()), zap.Error(err))
		}

	case application.RouteDeleted:
		var evt application.RouteDeletedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse route deleted data", zap.Error(err))
			return nil
		}
		c.routes.ApplyRemoteRouteDeleted(evt.RouteID)

	case application.MarkerCreated:
		var evt application.MarkerEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse marker event data", zap.Error(err))
			return nil
		}
		c.markers.ApplyRemoteMarker(evt.Marker)

	case application.MarkerDeleted:
		var evt application.MarkerDeletedEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse marker deleted data", zap.Error(err))
			return nil
		}
		c.markers.ApplyRemoteMarkerDeleted(evt.MarkerID)

	default:
		c.logger.Debug("ignoring unhandled map event type", zap.String("type", cloudEvent.Type))
		return nil
	}

	c.logger.Debug("applied remote map event",
		zap.String("type", cloudEvent.Type),
		zap.String("source", cloudEvent.Source),
	)
	return nil
}
