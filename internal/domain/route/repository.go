package route

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for routes.
type Repository interface {
	// ListAll returns every route in creation order.
	ListAll(ctx context.Context) ([]*Route, error)

	// FindByID retrieves a route by identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)

	// Create persists a new route. Any identifier carried by r is discarded and the
	// store assigns the authoritative one, which the returned record carries.
	Create(ctx context.Context, r *Route) (*Route, error)

	// UpdateColor changes only the color of a stored route and returns the full record.
	UpdateColor(ctx context.Context, id uuid.UUID, color Color) (*Route, error)

	// Delete removes a route.
	Delete(ctx context.Context, id uuid.UUID) error
}
