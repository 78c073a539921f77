package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/catalog"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	markerDomain "github.com/waymark-maps/service-routes/internal/domain/marker"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// CreateMarkerRequest holds the data needed to drop a marker. A client-side placeholder
// ID is accepted and ignored.
type CreateMarkerRequest struct {
	ID       string     `json:"id"`
	Position *geo.Point `json:"position" binding:"required"`
}

// MarkerDTO is the response representation of a marker.
type MarkerDTO struct {
	ID        uuid.UUID `json:"id"`
	Position  geo.Point `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarkerService is the application service for map markers.
type MarkerService struct {
	repo      markerDomain.Repository
	markers   *catalog.Collection[*markerDomain.Marker]
	publisher EventPublisher
	logger    *zap.Logger
}

// NewMarkerService creates a new MarkerService.
func NewMarkerService(repo markerDomain.Repository, publisher EventPublisher, logger *zap.Logger) *MarkerService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &MarkerService{
		repo:      repo,
		markers:   catalog.New[*markerDomain.Marker]("Marker"),
		publisher: publisher,
		logger:    logger,
	}
}

// Load replaces the local catalog with the store's contents.
func (s *MarkerService) Load(ctx context.Context) error {
	markers, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load markers: %w", err)
	}
	s.markers.Load(markers)
	return nil
}

// ListMarkers returns every marker. refresh re-queries the store first.
func (s *MarkerService) ListMarkers(ctx context.Context, refresh bool) ([]MarkerDTO, error) {
	if refresh || !s.markers.Loaded() {
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
	}

	markers := s.markers.All()
	dtos := make([]MarkerDTO, len(markers))
	for i, m := range markers {
		dtos[i] = toMarkerDTO(m)
	}
	return dtos, nil
}

// CreateMarker drops a marker at the requested position.
func (s *MarkerService) CreateMarker(ctx context.Context, req CreateMarkerRequest) (*MarkerDTO, error) {
	if req.Position == nil {
		return nil, domain.NewValidationError("position is required")
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m := markerDomain.NewMarker(*req.Position)
	stored, err := s.markers.Create(ctx, m, func(ctx context.Context) (*markerDomain.Marker, error) {
		return s.repo.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("marker created",
		zap.String("marker_id", stored.ID().String()),
		zap.String("position", stored.Position().String()),
	)

	result := toMarkerDTO(stored)
	s.publisher.Publish(ctx, TopicMapEvents, MarkerCreated, stored.ID().String(), MarkerEvent{Marker: result, OccurredAt: time.Now().UTC()})
	return &result, nil
}

// DeleteMarker removes a marker.
func (s *MarkerService) DeleteMarker(ctx context.Context, id uuid.UUID) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	err := s.markers.Delete(ctx, id, func(ctx context.Context) error { return s.repo.Delete(ctx, id) })
	if domain.IsNotFound(err) {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		return err
	}

	s.logger.Info("marker deleted", zap.String("marker_id", id.String()))
	s.publisher.Publish(ctx, TopicMapEvents, MarkerDeleted, id.String(), MarkerDeletedEvent{MarkerID: id, OccurredAt: time.Now().UTC()})
	return nil
}

// ApplyRemoteMarker records a marker created by another instance.
func (s *MarkerService) ApplyRemoteMarker(dto MarkerDTO) {
	s.markers.Upsert(markerDomain.Reconstruct(dto.ID, dto.Position, dto.CreatedAt, dto.UpdatedAt))
}

// ApplyRemoteMarkerDeleted forgets a marker deleted by another instance.
func (s *MarkerService) ApplyRemoteMarkerDeleted(id uuid.UUID) {
	s.markers.Remove(id)
}

func (s *MarkerService) ensureLoaded(ctx context.Context) error {
	if s.markers.Loaded() {
		return nil
	}
	return s.Load(ctx)
}

func toMarkerDTO(m *markerDomain.Marker) MarkerDTO {
	return MarkerDTO{
		ID:        m.ID(),
		Position:  m.Position(),
		CreatedAt: m.CreatedAt(),
		UpdatedAt: m.UpdatedAt(),
	}
}
