package marker

import (
	"time"

	"github.com/google/uuid"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
)

// Marker is a single saved map point. Markers are created and deleted, never edited.
type Marker struct {
	id        uuid.UUID
	position  geo.Point
	createdAt time.Time
	updatedAt time.Time
}

// NewMarker creates an unpersisted marker at position.
func NewMarker(position geo.Point) *Marker {
	now := time.Now().UTC()
	return &Marker{position: position, createdAt: now, updatedAt: now}
}

// Reconstruct rebuilds a Marker from persistence.
func Reconstruct(id uuid.UUID, position geo.Point, createdAt, updatedAt time.Time) *Marker {
	return &Marker{id: id, position: position, createdAt: createdAt, updatedAt: updatedAt}
}

// Getters.
func (m *Marker) ID() uuid.UUID        { return m.id }
func (m *Marker) Position() geo.Point  { return m.position }
func (m *Marker) CreatedAt() time.Time { return m.createdAt }
func (m *Marker) UpdatedAt() time.Time { return m.updatedAt }

// Clone returns a copy.
func (m *Marker) Clone() *Marker {
	cp := *m
	return &cp
}
