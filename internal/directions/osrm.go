package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
)

const defaultOSRMBaseURL = "https://router.project-osrm.org"

type osrmLeg struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
}

type osrmRouteResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string    `json:"geometry"`
		Legs     []osrmLeg `json:"legs"`
	} `json:"routes"`
}

// OSRMClient calls an OSRM route service. It has no geocoder.
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMClient creates an OSRMClient. An empty baseURL selects the public demo server.
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	if baseURL == "" {
		baseURL = defaultOSRMBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Route requests a driving route through all points and formats the first leg's
// distance and duration as text.
func (c *OSRMClient) Route(ctx context.Context, req Request) (*Result, error) {
	// OSRM takes lng,lat pairs separated by semicolons.
	coords := make([]string, 0, len(req.Waypoints)+2)
	coords = append(coords, geo.FormatCoord(req.Origin.Lng)+","+geo.FormatCoord(req.Origin.Lat))
	for _, wp := range req.Waypoints {
		coords = append(coords, geo.FormatCoord(wp.Lng)+","+geo.FormatCoord(wp.Lat))
	}
	coords = append(coords, geo.FormatCoord(req.Destination.Lng)+","+geo.FormatCoord(req.Destination.Lat))

	endpoint := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=polyline&steps=false",
		c.baseURL, strings.Join(coords, ";"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Failure{Kind: KindInvalidRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Failure{Kind: KindUnknown, Err: fmt.Errorf("failed to call OSRM: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Failure{Kind: KindOverLimit, Status: resp.Status}
	}

	// OSRM reports most failures as 400 with a JSON code, so decode before checking status.
	var body osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Failure{Kind: KindUnknown, Status: resp.Status, Err: fmt.Errorf("failed to decode OSRM response: %w", err)}
	}

	if body.Code != "Ok" {
		return nil, &Failure{Kind: classifyOSRMCode(body.Code), Status: body.Code, Err: errorFromMessage(body.Message)}
	}
	if len(body.Routes) == 0 || len(body.Routes[0].Legs) == 0 {
		return nil, &Failure{Kind: KindNoRoute, Status: body.Code, Err: errors.New("response contained no routes")}
	}

	first := body.Routes[0]
	decoded, _, err := polyline.DecodeCoords([]byte(first.Geometry))
	if err != nil {
		return nil, &Failure{Kind: KindUnknown, Status: body.Code, Err: fmt.Errorf("failed to decode geometry: %w", err)}
	}
	path := pointsFromCoords(decoded)
	if len(path) == 0 {
		return nil, &Failure{Kind: KindNoRoute, Status: body.Code, Err: errors.New("route geometry is empty")}
	}

	return &Result{
		OverviewPath: path,
		DistanceText: formatDistance(first.Legs[0].Distance),
		DurationText: formatDuration(first.Legs[0].Duration),
	}, nil
}

func classifyOSRMCode(code string) Kind {
	switch code {
	case "NoRoute", "NoSegment":
		return KindNoRoute
	case "InvalidQuery", "InvalidValue", "InvalidUrl", "InvalidService", "InvalidVersion", "InvalidOptions":
		return KindInvalidRequest
	case "TooBig":
		return KindTooManyWaypoints
	default:
		return KindUnknown
	}
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func formatDuration(seconds float64) string {
	mins := int(math.Round(seconds / 60))
	if mins < 1 {
		mins = 1
	}
	hours, mins := mins/60, mins%60

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	switch {
	case hours == 0:
		return plural(mins, "min")
	case mins == 0:
		return plural(hours, "hour")
	default:
		return plural(hours, "hour") + " " + plural(mins, "min")
	}
}
