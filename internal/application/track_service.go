package application

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// Geolocation error reasons reported by devices.
const (
	GeoErrorTimeout             = "TIMEOUT"
	GeoErrorPositionUnavailable = "POSITION_UNAVAILABLE"
	GeoErrorPermissionDenied    = "PERMISSION_DENIED"
	GeoErrorUnknown             = "UNKNOWN"
)

var geoErrorReasons = map[string]bool{
	GeoErrorTimeout:             true,
	GeoErrorPositionUnavailable: true,
	GeoErrorPermissionDenied:    true,
	GeoErrorUnknown:             true,
}

// DefaultCenterDebounce is the window used to coalesce map-center changes.
const DefaultCenterDebounce = 100 * time.Millisecond

// TrackerIdleTTL is how long a session's recording state is kept without any access.
const TrackerIdleTTL = 30 * time.Minute

// ToggleRequest switches recording or follow mode.
type ToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SampleRequest is one device position sample.
type SampleRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// GeoErrorRequest is a geolocation failure reported by the device.
type GeoErrorRequest struct {
	Reason  string `json:"reason" binding:"required,oneof=TIMEOUT POSITION_UNAVAILABLE PERMISSION_DENIED UNKNOWN"`
	Message string `json:"message"`
}

// GeoErrorDTO is the last geolocation failure for a session.
type GeoErrorDTO struct {
	Reason     string    `json:"reason"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TrackDTO is the recording state of a session.
type TrackDTO struct {
	SessionID uuid.UUID    `json:"session_id"`
	Recording bool         `json:"recording"`
	Following bool         `json:"following"`
	Path      []geo.Point  `json:"path"`
	Center    *geo.Point   `json:"center,omitempty"`
	LastError *GeoErrorDTO `json:"last_error,omitempty"`
	Samples   int          `json:"samples"`
}

type tracker struct {
	mu        sync.Mutex
	recording bool
	following bool
	path      []geo.Point
	lastError *GeoErrorDTO
	samples   int
	recenter  *Debouncer[geo.Point]

	// lastSeen is guarded by TrackService.mu.
	lastSeen time.Time

	// center is written by the debouncer, which may run while mu is held.
	centerMu sync.Mutex
	center   *geo.Point
}

// TrackService records device movement per session. Samples are applied in arrival order.
type TrackService struct {
	mu        sync.Mutex
	trackers  map[uuid.UUID]*tracker
	debounce  time.Duration
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// NewTrackService creates a new TrackService.
func NewTrackService(debounce time.Duration, logger *zap.Logger) *TrackService {
	return &TrackService{
		trackers: make(map[uuid.UUID]*tracker),
		debounce: debounce,
		idleTTL:  TrackerIdleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Snapshot returns the current state of a session's recording.
func (s *TrackService) Snapshot(sessionID uuid.UUID) TrackDTO {
	t := s.get(sessionID)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot(sessionID)
}

// SetRecording starts or stops recording. Starting always begins a fresh path.
func (s *TrackService) SetRecording(sessionID uuid.UUID, enabled bool) TrackDTO {
	t := s.get(sessionID)
	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled {
		t.path = []geo.Point{}
	}
	t.recording = enabled
	s.logger.Debug("recording toggled", zap.String("session_id", sessionID.String()), zap.Bool("enabled", enabled))
	return t.snapshot(sessionID)
}

// SetFollow turns map recentering on samples on or off.
func (s *TrackService) SetFollow(sessionID uuid.UUID, enabled bool) TrackDTO {
	t := s.get(sessionID)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.following = enabled
	if !enabled {
		t.recenter.Stop()
	}
	return t.snapshot(sessionID)
}

// AddSample applies a position sample.
func (s *TrackService) AddSample(sessionID uuid.UUID, p geo.Point) TrackDTO {
	t := s.get(sessionID)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples++
	if t.recording {
		t.path = append(t.path, p)
	}
	if t.following {
		t.recenter.Trigger(p)
	}
	return t.snapshot(sessionID)
}

// ReportError records a geolocation failure. Recording state is left as is.
func (s *TrackService) ReportError(sessionID uuid.UUID, reason, message string) (TrackDTO, error) {
	if !geoErrorReasons[reason] {
		return TrackDTO{}, domain.NewValidationError("unknown geolocation error reason: " + reason)
	}

	t := s.get(sessionID)
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastError = &GeoErrorDTO{Reason: reason, Message: message, OccurredAt: time.Now().UTC()}
	s.logger.Warn("geolocation error",
		zap.String("session_id", sessionID.String()),
		zap.String("reason", reason),
		zap.String("message", message),
	)
	return t.snapshot(sessionID), nil
}

// FlushCenter applies any pending map-center change immediately.
func (s *TrackService) FlushCenter(sessionID uuid.UUID) {
	s.get(sessionID).recenter.Flush()
}

// Sessions returns the number of sessions with recording state held in memory.
func (s *TrackService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trackers)
}

func (s *TrackService) get(sessionID uuid.UUID) *tracker {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictIdle(now)

	t, ok := s.trackers[sessionID]
	if !ok {
		t = &tracker{path: []geo.Point{}}
		t.recenter = NewDebouncer(s.debounce, func(p geo.Point) {
			t.centerMu.Lock()
			defer t.centerMu.Unlock()
			t.center = &p
		})
		s.trackers[sessionID] = t
	}
	t.lastSeen = now
	return t
}

// evictIdle drops sessions not accessed within idleTTL. It sweeps at most once per
// quarter TTL. Callers hold s.mu.
func (s *TrackService) evictIdle(now time.Time) {
	if s.idleTTL <= 0 || now.Sub(s.lastSweep) < s.idleTTL/4 {
		return
	}
	s.lastSweep = now

	for id, t := range s.trackers {
		if now.Sub(t.lastSeen) < s.idleTTL {
			continue
		}
		t.recenter.Stop()
		delete(s.trackers, id)
		s.logger.Debug("evicted idle track session", zap.String("session_id", id.String()))
	}
}

func (t *tracker) snapshot(sessionID uuid.UUID) TrackDTO {
	dto := TrackDTO{
		SessionID: sessionID,
		Recording: t.recording,
		Following: t.following,
		Path:      geo.ClonePoints(t.path),
		LastError: t.lastError,
		Samples:   t.samples,
	}
	t.centerMu.Lock()
	if t.center != nil {
		c := *t.center
		dto.Center = &c
	}
	t.centerMu.Unlock()
	return dto
}
