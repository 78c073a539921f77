package route

import (
	"time"

	"github.com/google/uuid"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// Route is the aggregate root for a saved, drawable route.
type Route struct {
	id           uuid.UUID
	start        geo.Point
	end          geo.Point
	waypoints    []geo.Point
	overviewPath []geo.Point
	distance     string
	duration     string
	color        Color
	createdAt    time.Time
	updatedAt    time.Time
}

// NewRoute creates an unpersisted route. Its identity stays nil until the store assigns one.
func NewRoute(
	start, end geo.Point,
	waypoints []geo.Point,
	overviewPath []geo.Point,
	distance, duration string,
	color Color,
) (*Route, error) {
	if len(overviewPath) == 0 {
		return nil, domain.NewValidationError("overview path is required")
	}
	if !color.IsValid() {
		return nil, domain.NewValidationError("color is not in the palette: " + string(color))
	}
	if waypoints == nil {
		waypoints = []geo.Point{}
	}

	now := time.Now().UTC()
	return &Route{
		start:        start,
		end:          end,
		waypoints:    geo.ClonePoints(waypoints),
		overviewPath: geo.ClonePoints(overviewPath),
		distance:     distance,
		duration:     duration,
		color:        color,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct rebuilds a Route from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	start, end geo.Point,
	waypoints, overviewPath []geo.Point,
	distance, duration string,
	color Color,
	createdAt, updatedAt time.Time,
) *Route {
	if waypoints == nil {
		waypoints = []geo.Point{}
	}
	return &Route{
		id:           id,
		start:        start,
		end:          end,
		waypoints:    waypoints,
		overviewPath: overviewPath,
		distance:     distance,
		duration:     duration,
		color:        color,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// --- Getters ---

// ID returns the store-assigned identifier, or uuid.Nil before the first save.
func (r *Route) ID() uuid.UUID { return r.id }

// Start returns the first point of the route.
func (r *Route) Start() geo.Point { return r.start }

// End returns the destination.
func (r *Route) End() geo.Point { return r.end }

// Waypoints returns a copy of the intermediate stops in visiting order.
func (r *Route) Waypoints() []geo.Point { return geo.ClonePoints(r.waypoints) }

// OverviewPath returns a copy of the densified polyline.
func (r *Route) OverviewPath() []geo.Point { return geo.ClonePoints(r.overviewPath) }

// Distance returns the provider's human-readable distance text.
func (r *Route) Distance() string { return r.distance }

// Duration returns the provider's human-readable duration text.
func (r *Route) Duration() string { return r.duration }

// Color returns the stroke color.
func (r *Route) Color() Color { return r.color }

// CreatedAt returns the creation timestamp.
func (r *Route) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (r *Route) UpdatedAt() time.Time { return r.updatedAt }

// --- Behavior ---

// Recolor changes the stroke color only. Geometry and identity are untouched.
func (r *Route) Recolor(color Color) error {
	if !color.IsValid() {
		return domain.NewValidationError("color is not in the palette: " + string(color))
	}
	r.color = color
	r.updatedAt = time.Now().UTC()
	return nil
}

// IsDuplicateOf reports whether the route's endpoints match start and end within tolerance.
// Waypoints are not compared.
func (r *Route) IsDuplicateOf(start, end geo.Point) bool {
	return r.start.Equal(start, geo.DuplicateTolerance) && r.end.Equal(end, geo.DuplicateTolerance)
}

// Clone returns a deep copy.
func (r *Route) Clone() *Route {
	cp := *r
	cp.waypoints = geo.ClonePoints(r.waypoints)
	cp.overviewPath = geo.ClonePoints(r.overviewPath)
	return &cp
}

// FindDuplicate returns the first route whose endpoints match, or nil.
func FindDuplicate(routes []*Route, start, end geo.Point) *Route {
	for _, r := range routes {
		if r.IsDuplicateOf(start, end) {
			return r
		}
	}
	return nil
}
