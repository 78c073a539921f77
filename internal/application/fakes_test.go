package application

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/directions"
	"github.com/waymark-maps/service-routes/internal/domain/buildsession"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	markerDomain "github.com/waymark-maps/service-routes/internal/domain/marker"
	routeDomain "github.com/waymark-maps/service-routes/internal/domain/route"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// --- route store ---

type fakeRouteRepo struct {
	mu            sync.Mutex
	routes        []*routeDomain.Route
	createCalls   int
	failCreate    error
	failUpdate    error
	failDelete    error
	onUpdateColor func()
}

func (r *fakeRouteRepo) ListAll(ctx context.Context) ([]*routeDomain.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*routeDomain.Route, len(r.routes))
	for i, rt := range r.routes {
		out[i] = rt.Clone()
	}
	return out, nil
}

func (r *fakeRouteRepo) FindByID(ctx context.Context, id uuid.UUID) (*routeDomain.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.routes {
		if rt.ID() == id {
			return rt.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("Route", id.String())
}

func (r *fakeRouteRepo) Create(ctx context.Context, rt *routeDomain.Route) (*routeDomain.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	stored := routeDomain.Reconstruct(uuid.New(), rt.Start(), rt.End(), rt.Waypoints(), rt.OverviewPath(),
		rt.Distance(), rt.Duration(), rt.Color(), rt.CreatedAt(), rt.UpdatedAt())
	r.routes = append(r.routes, stored)
	return stored.Clone(), nil
}

func (r *fakeRouteRepo) UpdateColor(ctx context.Context, id uuid.UUID, color routeDomain.Color) (*routeDomain.Route, error) {
	if r.onUpdateColor != nil {
		r.onUpdateColor()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return nil, r.failUpdate
	}
	for _, rt := range r.routes {
		if rt.ID() == id {
			if err := rt.Recolor(color); err != nil {
				return nil, err
			}
			return rt.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("Route", id.String())
}

func (r *fakeRouteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	for i, rt := range r.routes {
		if rt.ID() == id {
			r.routes = append(r.routes[:i], r.routes[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFoundError("Route", id.String())
}

func (r *fakeRouteRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.routes)
}

// --- marker store ---

type fakeMarkerRepo struct {
	mu         sync.Mutex
	markers    []*markerDomain.Marker
	failCreate error
	failDelete error
}

func (r *fakeMarkerRepo) ListAll(ctx context.Context) ([]*markerDomain.Marker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*markerDomain.Marker, len(r.markers))
	for i, m := range r.markers {
		out[i] = m.Clone()
	}
	return out, nil
}

func (r *fakeMarkerRepo) Create(ctx context.Context, m *markerDomain.Marker) (*markerDomain.Marker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	stored := markerDomain.Reconstruct(uuid.New(), m.Position(), m.CreatedAt(), m.UpdatedAt())
	r.markers = append(r.markers, stored)
	return stored.Clone(), nil
}

func (r *fakeMarkerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	for i, m := range r.markers {
		if m.ID() == id {
			r.markers = append(r.markers[:i], r.markers[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFoundError("Marker", id.String())
}

// --- session store ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*buildsession.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*buildsession.Session)}
}

func copySession(s *buildsession.Session) *buildsession.Session {
	var start *geo.Point
	if p, ok := s.Start(); ok {
		start = &p
	}
	return buildsession.Reconstruct(s.ID(), s.State(), start, s.Points(), s.Color(),
		s.Generation(), s.Version(), s.CreatedAt(), s.UpdatedAt())
}

func (r *fakeSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*buildsession.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("BuildSession", id.String())
	}
	return copySession(s), nil
}

func (r *fakeSessionRepo) Save(ctx context.Context, s *buildsession.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID()]; ok {
		return domain.NewConflictError("build session already exists")
	}
	r.sessions[s.ID()] = copySession(s)
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *buildsession.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[s.ID()]
	if !ok || current.Version() != s.Version()-1 {
		return domain.NewConflictError("build session was modified by another request")
	}
	r.sessions[s.ID()] = copySession(s)
	return nil
}

// --- directions ---

type fakeRouter struct {
	mu       sync.Mutex
	requests []directions.Request
	err      error
	// hook runs before the response is returned, to simulate user actions while the
	// lookup is in flight.
	hook func()
}

func (f *fakeRouter) Route(ctx context.Context, req directions.Request) (*directions.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	hook, err := f.hook, f.err
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}

	path := []geo.Point{req.Origin}
	path = append(path, req.Waypoints...)
	path = append(path, req.Destination)
	return &directions.Result{OverviewPath: path, DistanceText: "152 km", DurationText: "1 hour 48 mins"}, nil
}

func (f *fakeRouter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeGeocoder struct {
	places map[string]geo.Point
}

func (g *fakeGeocoder) Geocode(ctx context.Context, query string) (geo.Point, error) {
	if p, ok := g.places[query]; ok {
		return p, nil
	}
	return geo.Point{}, &directions.Failure{Kind: directions.KindNoPlace, Status: "ZERO_RESULTS"}
}

// --- events ---

type publishedEvent struct {
	Topic string
	Type  string
	Key   string
	Data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, eventType, key string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: eventType, Key: key, Data: data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// --- wiring ---

type builderFixture struct {
	routeRepo *fakeRouteRepo
	sessions  *fakeSessionRepo
	router    *fakeRouter
	publisher *recordingPublisher
	routes    *RouteService
	builder   *BuilderService
	sessionID uuid.UUID
}

func newBuilderFixture(opts BuilderOptions) *builderFixture {
	f := &builderFixture{
		routeRepo: &fakeRouteRepo{},
		sessions:  newFakeSessionRepo(),
		router:    &fakeRouter{},
		publisher: &recordingPublisher{},
		sessionID: uuid.New(),
	}
	logger := zap.NewNop()
	f.routes = NewRouteService(f.routeRepo, f.publisher, opts.DuplicateCheck, logger)
	geocoder := &fakeGeocoder{places: map[string]geo.Point{
		"Columbus, OH": {Lat: 39.9612, Lng: -82.9988},
	}}
	f.builder = NewBuilderService(f.sessions, f.router, geocoder, f.routes, opts, logger)
	return f
}

func pointReq(lat, lng float64) AddPointRequest {
	return AddPointRequest{Point: &geo.Point{Lat: lat, Lng: lng}}
}
