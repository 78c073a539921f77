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

	"github.com/waymark-maps/service-routes/internal/domain/buildsession"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	routeDomain "github.com/waymark-maps/service-routes/internal/domain/route"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// BuildSessionModel is the GORM model for the build_sessions table. The primary key is the
// client session key, so a second record for the same session cannot be inserted.
type BuildSessionModel struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	State      string         `gorm:"not null;size:30"`
	Step       string         `gorm:"not null;size:10"`
	Start      datatypes.JSON `gorm:""`
	Points     datatypes.JSON `gorm:"not null"`
	Color      string         `gorm:"not null;size:7"`
	Generation int64          `gorm:"not null;default:1"`
	Version    int64          `gorm:"not null;default:1"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BuildSessionModel) TableName() string {
	return "build_sessions"
}

// GormSessionRepository is the GORM-based implementation of buildsession.Repository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID retrieves the build session for a session key.
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*buildsession.Session, error) {
	var model BuildSessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("BuildSession", id.String())
		}
		return nil, fmt.Errorf("failed to find build session: %w", err)
	}
	return toDomainSession(&model)
}

// Save persists a new build session.
func (r *GormSessionRepository) Save(ctx context.Context, s *buildsession.Session) error {
	model, err := toSessionModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert build session to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.NewConflictError("build session already exists for " + s.ID().String())
		}
		return fmt.Errorf("failed to save build session: %w", err)
	}
	return nil
}

// Update persists changes to an existing build session with optimistic locking.
func (r *GormSessionRepository) Update(ctx context.Context, s *buildsession.Session) error {
	model, err := toSessionModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert build session to model: %w", err)
	}

	// Only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := s.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BuildSessionModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"state":      model.State,
			"step":       model.Step,
			"start":      model.Start,
			"points":     model.Points,
			"color":      model.Color,
			"generation": model.Generation,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update build session: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("build session was modified by another request")
	}

	return nil
}

// --- Conversion Helpers ---

func toSessionModel(s *buildsession.Session) (*BuildSessionModel, error) {
	var startJSON datatypes.JSON
	if start, ok := s.Start(); ok {
		data, err := json.Marshal(start)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal start: %w", err)
		}
		startJSON = data
	}

	pointsJSON, err := json.Marshal(s.Points())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal points: %w", err)
	}

	return &BuildSessionModel{
		ID:         s.ID(),
		State:      string(s.State()),
		Step:       string(s.Step()),
		Start:      startJSON,
		Points:     pointsJSON,
		Color:      string(s.Color()),
		Generation: s.Generation(),
		Version:    s.Version(),
		CreatedAt:  s.CreatedAt(),
		UpdatedAt:  s.UpdatedAt(),
	}, nil
}

func toDomainSession(m *BuildSessionModel) (*buildsession.Session, error) {
	var start *geo.Point
	if len(m.Start) > 0 && string(m.Start) != "null" {
		var p geo.Point
		if err := json.Unmarshal(m.Start, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal start: %w", err)
		}
		start = &p
	}

	var points []geo.Point
	if err := json.Unmarshal(m.Points, &points); err != nil {
		return nil, fmt.Errorf("failed to unmarshal points: %w", err)
	}

	state, err := buildsession.ParseState(m.State)
	if err != nil {
		return nil, err
	}
	color, err := routeDomain.ParseColor(m.Color)
	if err != nil {
		return nil, err
	}

	return buildsession.Reconstruct(
		m.ID,
		state,
		start,
		points,
		color,
		m.Generation,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
