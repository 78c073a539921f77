// Package directions wraps third-party routing and geocoding providers behind a small,
// provider-neutral contract.
package directions

import (
	"context"
	"errors"
	"fmt"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
)

// Mode is the travel mode requested from the provider.
type Mode string

const ModeDriving Mode = "driving"

// Request asks for a path from Origin to Destination through Waypoints, in order.
type Request struct {
	Origin      geo.Point
	Destination geo.Point
	Waypoints   []geo.Point
	Mode        Mode
}

// Result is the first route returned by the provider. Distance and duration texts are
// passed through as the provider formats them.
type Result struct {
	OverviewPath []geo.Point
	DistanceText string
	DurationText string
}

// Router computes driving directions.
type Router interface {
	Route(ctx context.Context, req Request) (*Result, error)
}

// Geocoder resolves a free-text place search to a point.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Point, error)
}

// Kind classifies a provider failure.
type Kind string

const (
	KindNoRoute          Kind = "NO_ROUTE"
	KindRequestDenied    Kind = "REQUEST_DENIED"
	KindOverLimit        Kind = "OVER_LIMIT"
	KindInvalidRequest   Kind = "INVALID_REQUEST"
	KindTooManyWaypoints Kind = "TOO_MANY_WAYPOINTS"
	KindNoPlace          Kind = "NO_PLACE"
	KindUnknown          Kind = "UNKNOWN"
)

// Failure is a classified provider error. Status carries the provider's raw code.
type Failure struct {
	Kind   Kind
	Status string
	Err    error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	msg := fmt.Sprintf("directions failure %s", f.Kind)
	if f.Status != "" {
		msg += " (status " + f.Status + ")"
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the failure kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

func pointsFromCoords(coords [][]float64) []geo.Point {
	path := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		path = append(path, geo.Point{Lat: c[0], Lng: c[1]})
	}
	return path
}
