package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
	markerDomain "github.com/waymark-maps/service-routes/internal/domain/marker"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// MarkerModel is the GORM model for the markers table.
type MarkerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Lat       float64   `gorm:"not null"`
	Lng       float64   `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (MarkerModel) TableName() string {
	return "markers"
}

// GormMarkerRepository is the GORM-based implementation of marker.Repository.
type GormMarkerRepository struct {
	db *gorm.DB
}

// NewGormMarkerRepository creates a new GormMarkerRepository.
func NewGormMarkerRepository(db *gorm.DB) *GormMarkerRepository {
	return &GormMarkerRepository{db: db}
}

// ListAll retrieves every marker, oldest first.
func (r *GormMarkerRepository) ListAll(ctx context.Context) ([]*markerDomain.Marker, error) {
	var models []MarkerModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}

	markers := make([]*markerDomain.Marker, len(models))
	for i := range models {
		markers[i] = toDomainMarker(&models[i])
	}
	return markers, nil
}

// Create persists a new marker under a freshly assigned identifier.
func (r *GormMarkerRepository) Create(ctx context.Context, m *markerDomain.Marker) (*markerDomain.Marker, error) {
	now := time.Now().UTC()
	model := &MarkerModel{
		ID:        uuid.New(),
		Lat:       m.Position().Lat,
		Lng:       m.Position().Lng,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create marker: %w", err)
	}
	return toDomainMarker(model), nil
}

// Delete removes a marker.
func (r *GormMarkerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&MarkerModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete marker: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Marker", id.String())
	}
	return nil
}

func toDomainMarker(m *MarkerModel) *markerDomain.Marker {
	return markerDomain.Reconstruct(m.ID, geo.Point{Lat: m.Lat, Lng: m.Lng}, m.CreatedAt, m.UpdatedAt)
}
