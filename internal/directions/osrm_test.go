package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
)

func osrmServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *OSRMClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewOSRMClient(srv.URL, 2*time.Second)
}

func TestOSRMClient_Route_Success(t *testing.T) {
	client := osrmServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-82,40;-82.5,40.5;-83,41", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		writeJSON(t, w, map[string]interface{}{
			"code": "Ok",
			"routes": []map[string]interface{}{{
				"geometry": encodedPath(),
				"legs": []map[string]float64{
					{"distance": 70123, "duration": 3725},
					{"distance": 80000, "duration": 3600},
				},
			}},
		})
	})

	res, err := client.Route(context.Background(), Request{
		Origin: origin, Destination: destination, Waypoints: []geo.Point{via},
	})
	require.NoError(t, err)
	assert.Len(t, res.OverviewPath, 4)
	assert.Equal(t, "70.1 km", res.DistanceText)
	assert.Equal(t, "1 hour 2 mins", res.DurationText)
}

func TestOSRMClient_Route_CodeClassification(t *testing.T) {
	tests := []struct {
		code string
		want Kind
	}{
		{"NoRoute", KindNoRoute},
		{"NoSegment", KindNoRoute},
		{"InvalidQuery", KindInvalidRequest},
		{"InvalidValue", KindInvalidRequest},
		{"TooBig", KindTooManyWaypoints},
		{"Weird", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			client := osrmServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"` + tt.code + `","message":"x"}`))
			})
			_, err := client.Route(context.Background(), Request{Origin: origin, Destination: destination})
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestOSRMClient_RateLimited(t *testing.T) {
	client := osrmServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := client.Route(context.Background(), Request{Origin: origin, Destination: destination})
	assert.Equal(t, KindOverLimit, KindOf(err))
}

func TestOSRMClient_CoordinatesAtFullPrecision(t *testing.T) {
	var gotPath string
	client := osrmServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeJSON(t, w, map[string]interface{}{"code": "NoRoute"})
	})

	_, err := client.Route(context.Background(), Request{
		Origin:      geo.Point{Lat: 40.123456789, Lng: -82.000000123},
		Destination: destination,
	})
	assert.Equal(t, KindNoRoute, KindOf(err))
	assert.Equal(t, "/route/v1/driving/-82.000000123,40.123456789;-83,41", gotPath)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "850 m", formatDistance(849.6))
	assert.Equal(t, "12.3 km", formatDistance(12345))
	assert.Equal(t, "1 min", formatDuration(10))
	assert.Equal(t, "45 mins", formatDuration(2700))
	assert.Equal(t, "2 hours", formatDuration(7200))
	assert.Equal(t, "1 hour 1 min", formatDuration(3660))
}
