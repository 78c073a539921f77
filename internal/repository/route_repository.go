package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
	routeDomain "github.com/waymark-maps/service-routes/internal/domain/route"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// RouteModel is the GORM model for the routes table.
type RouteModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Start        datatypes.JSON `gorm:"not null"`
	End          datatypes.JSON `gorm:"not null"`
	Waypoints    datatypes.JSON `gorm:"not null"`
	OverviewPath datatypes.JSON `gorm:"not null"`
	Distance     string         `gorm:"not null;size:100"`
	Duration     string         `gorm:"not null;size:100"`
	Color        string         `gorm:"not null;size:7"`
	CreatedAt    time.Time      `gorm:"not null;index"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RouteModel) TableName() string {
	return "routes"
}

// GormRouteRepository is the GORM-based implementation of route.Repository.
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository.
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// ListAll retrieves every route, oldest first.
func (r *GormRouteRepository) ListAll(ctx context.Context) ([]*routeDomain.Route, error) {
	var models []RouteModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	routes := make([]*routeDomain.Route, len(models))
	for i := range models {
		rt, err := toDomainRoute(&models[i])
		if err != nil {
			return nil, err
		}
		routes[i] = rt
	}
	return routes, nil
}

// FindByID retrieves a route by its identifier.
func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*routeDomain.Route, error) {
	var model RouteModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Route", id.String())
		}
		return nil, fmt.Errorf("failed to find route by ID: %w", err)
	}
	return toDomainRoute(&model)
}

// Create persists a new route under a freshly assigned identifier.
func (r *GormRouteRepository) Create(ctx context.Context, rt *routeDomain.Route) (*routeDomain.Route, error) {
	model, err := toRouteModel(rt)
	if err != nil {
		return nil, fmt.Errorf("failed to convert route to model: %w", err)
	}
	// Placeholder identifiers from the caller are never trusted.
	model.ID = uuid.New()
	now := time.Now().UTC()
	model.CreatedAt, model.UpdatedAt = now, now

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create route: %w", err)
	}
	return toDomainRoute(model)
}

// UpdateColor changes only the color column and returns the stored record.
func (r *GormRouteRepository) UpdateColor(ctx context.Context, id uuid.UUID, color routeDomain.Color) (*routeDomain.Route, error) {
	result := r.db.WithContext(ctx).
		Model(&RouteModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"color":      string(color),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update route color: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.NewNotFoundError("Route", id.String())
	}
	return r.FindByID(ctx, id)
}

// Delete removes a route.
func (r *GormRouteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&RouteModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete route: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Route", id.String())
	}
	return nil
}

// --- Conversion Helpers ---

func toRouteModel(rt *routeDomain.Route) (*RouteModel, error) {
	startJSON, err := json.Marshal(rt.Start())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal start: %w", err)
	}
	endJSON, err := json.Marshal(rt.End())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal end: %w", err)
	}
	waypointsJSON, err := json.Marshal(rt.Waypoints())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal waypoints: %w", err)
	}
	pathJSON, err := json.Marshal(rt.OverviewPath())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal overview path: %w", err)
	}

	return &RouteModel{
		ID:           rt.ID(),
		Start:        startJSON,
		End:          endJSON,
		Waypoints:    waypointsJSON,
		OverviewPath: pathJSON,
		Distance:     rt.Distance(),
		Duration:     rt.Duration(),
		Color:        string(rt.Color()),
		CreatedAt:    rt.CreatedAt(),
		UpdatedAt:    rt.UpdatedAt(),
	}, nil
}

func toDomainRoute(m *RouteModel) (*routeDomain.Route, error) {
	var start, end geo.Point
	if err := json.Unmarshal(m.Start, &start); err != nil {
		return nil, fmt.Errorf("failed to unmarshal start: %w", err)
	}
	if err := json.Unmarshal(m.End, &end); err != nil {
		return nil, fmt.Errorf("failed to unmarshal end: %w", err)
	}

	var waypoints, path []geo.Point
	if err := json.Unmarshal(m.Waypoints, &waypoints); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waypoints: %w", err)
	}
	if err := json.Unmarshal(m.OverviewPath, &path); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overview path: %w", err)
	}

	color, err := routeDomain.ParseColor(m.Color)
	if err != nil {
		return nil, err
	}

	return routeDomain.Reconstruct(
		m.ID,
		start,
		end,
		waypoints,
		path,
		m.Distance,
		m.Duration,
		color,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
