package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
)

const defaultGoogleBaseURL = "https://maps.googleapis.com/maps/api"

type googleText struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance googleText `json:"distance"`
			Duration googleText `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location geo.Point `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// GoogleClient calls the Google Maps Directions and Geocoding web services.
type GoogleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGoogleClient creates a GoogleClient. An empty baseURL selects the public endpoint.
func NewGoogleClient(apiKey, baseURL string, timeout time.Duration) *GoogleClient {
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Route requests driving directions and returns the first route. Distance and duration
// come from that route's first leg.
func (c *GoogleClient) Route(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeDriving
	}

	q := url.Values{}
	q.Set("origin", req.Origin.String())
	q.Set("destination", req.Destination.String())
	q.Set("mode", string(mode))
	if len(req.Waypoints) > 0 {
		stops := make([]string, len(req.Waypoints))
		for i, wp := range req.Waypoints {
			stops[i] = wp.String()
		}
		q.Set("waypoints", strings.Join(stops, "|"))
	}
	q.Set("key", c.apiKey)

	var body googleDirectionsResponse
	if err := c.getJSON(ctx, "/directions/json", q, &body); err != nil {
		return nil, err
	}

	if body.Status != "OK" {
		return nil, &Failure{
			Kind:   classifyGoogleStatus(body.Status),
			Status: body.Status,
			Err:    errorFromMessage(body.ErrorMessage),
		}
	}
	if len(body.Routes) == 0 || len(body.Routes[0].Legs) == 0 {
		return nil, &Failure{Kind: KindNoRoute, Status: body.Status, Err: errors.New("response contained no routes")}
	}

	first := body.Routes[0]
	coords, _, err := polyline.DecodeCoords([]byte(first.OverviewPolyline.Points))
	if err != nil {
		return nil, &Failure{Kind: KindUnknown, Status: body.Status, Err: fmt.Errorf("failed to decode overview polyline: %w", err)}
	}
	path := pointsFromCoords(coords)
	if len(path) == 0 {
		return nil, &Failure{Kind: KindNoRoute, Status: body.Status, Err: errors.New("overview polyline is empty")}
	}

	return &Result{
		OverviewPath: path,
		DistanceText: first.Legs[0].Distance.Text,
		DurationText: first.Legs[0].Duration.Text,
	}, nil
}

// Geocode resolves a place search to the location of the best match.
func (c *GoogleClient) Geocode(ctx context.Context, query string) (geo.Point, error) {
	q := url.Values{}
	q.Set("address", query)
	q.Set("key", c.apiKey)

	var body googleGeocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", q, &body); err != nil {
		return geo.Point{}, err
	}

	switch {
	case body.Status == "ZERO_RESULTS" || (body.Status == "OK" && len(body.Results) == 0):
		return geo.Point{}, &Failure{Kind: KindNoPlace, Status: body.Status}
	case body.Status != "OK":
		return geo.Point{}, &Failure{
			Kind:   classifyGoogleStatus(body.Status),
			Status: body.Status,
			Err:    errorFromMessage(body.ErrorMessage),
		}
	}
	return body.Results[0].Geometry.Location, nil
}

func (c *GoogleClient) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return &Failure{Kind: KindInvalidRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Failure{Kind: KindUnknown, Err: fmt.Errorf("failed to call directions provider: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &Failure{Kind: KindOverLimit, Status: resp.Status}
	}
	if resp.StatusCode != http.StatusOK {
		return &Failure{Kind: KindUnknown, Status: resp.Status, Err: fmt.Errorf("provider returned HTTP %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Failure{Kind: KindUnknown, Err: fmt.Errorf("failed to decode provider response: %w", err)}
	}
	return nil
}

func classifyGoogleStatus(status string) Kind {
	switch status {
	case "ZERO_RESULTS", "NOT_FOUND":
		return KindNoRoute
	case "REQUEST_DENIED":
		return KindRequestDenied
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return KindOverLimit
	case "INVALID_REQUEST", "MAX_ROUTE_LENGTH_EXCEEDED":
		return KindInvalidRequest
	case "MAX_WAYPOINTS_EXCEEDED":
		return KindTooManyWaypoints
	default:
		return KindUnknown
	}
}

func errorFromMessage(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
