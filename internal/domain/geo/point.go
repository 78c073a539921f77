package geo

import (
	"math"
	"strconv"
)

// DuplicateTolerance is the per-component tolerance, in degrees, under which two points match.
const DuplicateTolerance = 1e-6

const earthRadiusMeters = 6371000.0

// Point is a latitude/longitude pair in degrees. Ranges are not validated.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Equal reports whether both components differ from other by strictly less than tolerance.
func (p Point) Equal(other Point, tolerance float64) bool {
	return math.Abs(p.Lat-other.Lat) < tolerance && math.Abs(p.Lng-other.Lng) < tolerance
}

// String formats the point as "lat,lng", the form directions providers accept. Coordinates
// are written at full precision.
func (p Point) String() string {
	return FormatCoord(p.Lat) + "," + FormatCoord(p.Lng)
}

// FormatCoord formats a coordinate with the fewest digits that round-trip exactly.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// ClonePoints returns a copy of pts that shares no backing array. nil stays nil.
func ClonePoints(pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
