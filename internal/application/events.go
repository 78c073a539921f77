package application

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicMapEvents       = "map.events"
	TopicLocationSamples = "location.samples"
)

// Event types.
const (
	RouteCreated   = "route.created"
	RouteRecolored = "route.recolored"
	RouteDeleted   = "route.deleted"
	MarkerCreated  = "marker.created"
	MarkerDeleted  = "marker.deleted"

	LocationSampled = "location.sampled"
	LocationFailed  = "location.failed"
)

// EventPublisher publishes integration events. Publishing is best-effort: implementations
// log failures instead of returning them.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType, key string, data interface{})
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, string, string, string, interface{}) {}

// RouteEvent carries the full route for created and recolored events.
type RouteEvent struct {
	Route      RouteDTO  `json:"route"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RouteDeletedEvent is published when a route is removed.
type RouteDeletedEvent struct {
	RouteID    uuid.UUID `json:"route_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MarkerEvent carries the full marker for created events.
type MarkerEvent struct {
	Marker     MarkerDTO `json:"marker"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MarkerDeletedEvent is published when a marker is removed.
type MarkerDeletedEvent struct {
	MarkerID   uuid.UUID `json:"marker_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LocationSampledEvent is a device position sample for one session.
type LocationSampledEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationFailedEvent is a geolocation error for one session.
type LocationFailedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
