package marker

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for markers.
type Repository interface {
	ListAll(ctx context.Context) ([]*Marker, error)
	// Create discards any identifier on m and returns the stored record.
	Create(ctx context.Context, m *Marker) (*Marker, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
