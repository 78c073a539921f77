package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/catalog"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	routeDomain "github.com/waymark-maps/service-routes/internal/domain/route"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// ReasonDuplicateRoute marks a create rejected because the endpoints are already saved.
const ReasonDuplicateRoute = "duplicate_route"

// CreateRouteRequest holds a fully computed route submitted by a client. A client-side
// placeholder ID is accepted and ignored.
type CreateRouteRequest struct {
	ID           string      `json:"id"`
	Start        *geo.Point  `json:"start" binding:"required"`
	End          *geo.Point  `json:"end" binding:"required"`
	Waypoints    []geo.Point `json:"waypoints"`
	OverviewPath []geo.Point `json:"overview_path" binding:"required,min=1"`
	Distance     string      `json:"distance"`
	Duration     string      `json:"duration"`
	Color        string      `json:"color" binding:"omitempty,routecolor"`
}

// UpdateRouteRequest is a partial route update. Only the color can change.
type UpdateRouteRequest struct {
	Color string `json:"color" binding:"required,routecolor"`
}

// RouteDTO is the response representation of a route.
type RouteDTO struct {
	ID           uuid.UUID   `json:"id"`
	Start        geo.Point   `json:"start"`
	End          geo.Point   `json:"end"`
	Waypoints    []geo.Point `json:"waypoints"`
	OverviewPath []geo.Point `json:"overview_path"`
	Distance     string      `json:"distance"`
	Duration     string      `json:"duration"`
	Color        string      `json:"color"`
	ColorName    string      `json:"color_name"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// RouteService is the application service for saved routes. Reads are served from the
// local catalog; writes go through it optimistically and are confirmed by the store.
type RouteService struct {
	repo           routeDomain.Repository
	routes         *catalog.Collection[*routeDomain.Route]
	publisher      EventPublisher
	duplicateCheck bool
	logger         *zap.Logger
}

// NewRouteService creates a new RouteService.
func NewRouteService(
	repo routeDomain.Repository,
	publisher EventPublisher,
	duplicateCheck bool,
	logger *zap.Logger,
) *RouteService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &RouteService{
		repo:           repo,
		routes:         catalog.New[*routeDomain.Route]("Route"),
		publisher:      publisher,
		duplicateCheck: duplicateCheck,
		logger:         logger,
	}
}

// Load replaces the local catalog with the store's contents.
func (s *RouteService) Load(ctx context.Context) error {
	routes, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load routes: %w", err)
	}
	s.routes.Load(routes)
	s.logger.Debug("routes loaded", zap.Int("count", len(routes)))
	return nil
}

// ListRoutes returns every saved route. refresh re-queries the store first.
func (s *RouteService) ListRoutes(ctx context.Context, refresh bool) ([]RouteDTO, error) {
	if refresh || !s.routes.Loaded() {
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
	}

	routes := s.routes.All()
	dtos := make([]RouteDTO, len(routes))
	for i, rt := range routes {
		dtos[i] = toRouteDTO(rt)
	}
	return dtos, nil
}

// GetRoute returns a single route.
func (s *RouteService) GetRoute(ctx context.Context, id uuid.UUID) (*RouteDTO, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	if rt, ok := s.routes.Get(id); ok {
		result := toRouteDTO(rt)
		return &result, nil
	}

	rt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.routes.Upsert(rt)
	result := toRouteDTO(rt)
	return &result, nil
}

// CreateRoute persists a route computed by the client.
func (s *RouteService) CreateRoute(ctx context.Context, req CreateRouteRequest) (*RouteDTO, error) {
	color := routeDomain.DefaultColor()
	if req.Color != "" {
		c, err := routeDomain.ParseColor(req.Color)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		color = c
	}

	rt, err := routeDomain.NewRoute(*req.Start, *req.End, req.Waypoints, req.OverviewPath, req.Distance, req.Duration, color)
	if err != nil {
		return nil, err
	}
	return s.SaveRoute(ctx, rt)
}

// SaveRoute runs duplicate detection, when enabled, and persists rt through the catalog.
func (s *RouteService) SaveRoute(ctx context.Context, rt *routeDomain.Route) (*RouteDTO, error) {
	if s.duplicateCheck {
		dup, err := s.FindDuplicate(ctx, rt.Start(), rt.End())
		if err != nil {
			return nil, err
		}
		if dup != nil {
			return nil, duplicateRouteError(dup)
		}
	}

	stored, err := s.routes.Create(ctx, rt, func(ctx context.Context) (*routeDomain.Route, error) {
		return s.repo.Create(ctx, rt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("route created",
		zap.String("route_id", stored.ID().String()),
		zap.Int("waypoints", len(stored.Waypoints())),
		zap.String("color", stored.Color().String()),
	)

	result := toRouteDTO(stored)
	s.publisher.Publish(ctx, TopicMapEvents, RouteCreated, stored.ID().String(), RouteEvent{Route: result, OccurredAt: time.Now().UTC()})
	return &result, nil
}

// RecolorRoute changes a route's color. The local copy changes immediately and reverts if
// the store rejects the update.
func (s *RouteService) RecolorRoute(ctx context.Context, id uuid.UUID, req UpdateRouteRequest) (*RouteDTO, error) {
	color, err := routeDomain.ParseColor(req.Color)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	recolor := func() (*routeDomain.Route, error) {
		return s.routes.Update(ctx, id,
			func(rt *routeDomain.Route) error { return rt.Recolor(color) },
			func(ctx context.Context) (*routeDomain.Route, error) { return s.repo.UpdateColor(ctx, id, color) },
		)
	}

	stored, err := recolor()
	if domain.IsNotFound(err) {
		// Not in the local copy; pull it from the store and try again.
		rt, findErr := s.repo.FindByID(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		s.routes.Upsert(rt)
		stored, err = recolor()
	}
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.Warn("route recolor rolled back",
				zap.String("route_id", id.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	result := toRouteDTO(stored)
	s.publisher.Publish(ctx, TopicMapEvents, RouteRecolored, id.String(), RouteEvent{Route: result, OccurredAt: time.Now().UTC()})
	return &result, nil
}

// DeleteRoute removes a route.
func (s *RouteService) DeleteRoute(ctx context.Context, id uuid.UUID) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	err := s.routes.Delete(ctx, id, func(ctx context.Context) error { return s.repo.Delete(ctx, id) })
	if domain.IsNotFound(err) {
		// Not in the local copy; the store may still have it.
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		return err
	}

	s.logger.Info("route deleted", zap.String("route_id", id.String()))
	s.publisher.Publish(ctx, TopicMapEvents, RouteDeleted, id.String(), RouteDeletedEvent{RouteID: id, OccurredAt: time.Now().UTC()})
	return nil
}

// FindDuplicate returns the loaded route whose endpoints match start and end, or nil.
func (s *RouteService) FindDuplicate(ctx context.Context, start, end geo.Point) (*routeDomain.Route, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return routeDomain.FindDuplicate(s.routes.All(), start, end), nil
}

// ApplyRemoteRoute records a route created or recolored by another instance.
func (s *RouteService) ApplyRemoteRoute(dto RouteDTO) error {
	color, err := routeDomain.ParseColor(dto.Color)
	if err != nil {
		return err
	}
	s.routes.Upsert(routeDomain.Reconstruct(
		dto.ID, dto.Start, dto.End, dto.Waypoints, dto.OverviewPath,
		dto.Distance, dto.Duration, color, dto.CreatedAt, dto.UpdatedAt,
	))
	return nil
}

// ApplyRemoteRouteDeleted forgets a route deleted by another instance.
func (s *RouteService) ApplyRemoteRouteDeleted(id uuid.UUID) {
	s.routes.Remove(id)
}

func (s *RouteService) ensureLoaded(ctx context.Context) error {
	if s.routes.Loaded() {
		return nil
	}
	return s.Load(ctx)
}

func duplicateRouteError(existing *routeDomain.Route) error {
	return domain.NewConflictError(
		fmt.Sprintf("a route from %s to %s already exists (%s)", existing.Start(), existing.End(), existing.ID()),
	).WithReason(ReasonDuplicateRoute)
}

func toRouteDTO(rt *routeDomain.Route) RouteDTO {
	return RouteDTO{
		ID:           rt.ID(),
		Start:        rt.Start(),
		End:          rt.End(),
		Waypoints:    rt.Waypoints(),
		OverviewPath: rt.OverviewPath(),
		Distance:     rt.Distance(),
		Duration:     rt.Duration(),
		Color:        rt.Color().String(),
		ColorName:    rt.Color().Name(),
		CreatedAt:    rt.CreatedAt(),
		UpdatedAt:    rt.UpdatedAt(),
	}
}
