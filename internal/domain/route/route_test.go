package route

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

var (
	testStart = geo.Point{Lat: 40.0, Lng: -82.0}
	testEnd   = geo.Point{Lat: 41.0, Lng: -83.0}
	testPath  = []geo.Point{testStart, {Lat: 40.5, Lng: -82.5}, testEnd}
)

func newTestRoute(t *testing.T) *Route {
	t.Helper()
	r, err := NewRoute(testStart, testEnd, []geo.Point{{Lat: 40.5, Lng: -82.5}}, testPath, "150 km", "2 hours", ColorRed)
	require.NoError(t, err)
	return r
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"#FF0000", ColorRed, false},
		{"#ff0000", ColorRed, false},
		{" blue ", ColorBlue, false},
		{"Purple", ColorPurple, false},
		{"#123456", "", true},
		{"magenta", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPalette(t *testing.T) {
	assert.Len(t, Palette, 5)
	assert.Equal(t, ColorRed, DefaultColor())
	assert.Equal(t, "orange", ColorOrange.Name())
}

func TestNewRoute_Validation(t *testing.T) {
	_, err := NewRoute(testStart, testEnd, nil, nil, "", "", ColorRed)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = NewRoute(testStart, testEnd, nil, testPath, "", "", Color("#000000"))
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	r, err := NewRoute(testStart, testEnd, nil, testPath, "", "", ColorRed)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, r.ID())
	assert.NotNil(t, r.Waypoints())
	assert.Empty(t, r.Waypoints())
}

func TestRecolor_ChangesOnlyColor(t *testing.T) {
	base := newTestRoute(t)
	r := Reconstruct(uuid.New(), base.Start(), base.End(), base.Waypoints(), base.OverviewPath(),
		base.Distance(), base.Duration(), base.Color(), base.CreatedAt(), base.UpdatedAt())
	before := r.Clone()

	require.NoError(t, r.Recolor(ColorGreen))

	assert.Equal(t, ColorGreen, r.Color())
	assert.Equal(t, before.ID(), r.ID())
	assert.Equal(t, before.Start(), r.Start())
	assert.Equal(t, before.End(), r.End())
	assert.Equal(t, before.Waypoints(), r.Waypoints())
	assert.Equal(t, before.OverviewPath(), r.OverviewPath())
	assert.Equal(t, before.Distance(), r.Distance())
	assert.Equal(t, before.Duration(), r.Duration())

	assert.Error(t, r.Recolor(Color("teal")))
	assert.Equal(t, ColorGreen, r.Color())
}

func TestClone_IsDeep(t *testing.T) {
	r := newTestRoute(t)
	cp := r.Clone()
	require.NoError(t, cp.Recolor(ColorBlue))

	assert.Equal(t, ColorRed, r.Color())
	assert.NotSame(t, r, cp)
}

func TestFindDuplicate(t *testing.T) {
	existing := newTestRoute(t)
	routes := []*Route{existing}

	near := geo.Point{Lat: testStart.Lat + 5e-7, Lng: testStart.Lng - 5e-7}
	assert.Same(t, existing, FindDuplicate(routes, near, testEnd))

	far := geo.Point{Lat: testStart.Lat + 2e-6, Lng: testStart.Lng}
	assert.Nil(t, FindDuplicate(routes, far, testEnd))

	// Reversed direction is a different route.
	assert.Nil(t, FindDuplicate(routes, testEnd, testStart))
	assert.Nil(t, FindDuplicate(nil, testStart, testEnd))
}
