package buildsession

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/waymark-maps/service-routes/internal/domain/geo"
	"github.com/waymark-maps/service-routes/internal/domain/route"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// Validation reasons surfaced to the client.
const (
	ReasonMissingStart   = "missing_start"
	ReasonNeedMorePoints = "need_more_points"
	ReasonEndTooClose    = "end_too_close"
)

// Session is the per-browser-session route-construction context.
//
// generation identifies one build attempt: it changes whenever the tentative points are
// discarded (begin, cancel, complete), so work started under an older generation can be
// recognised as stale. version is the optimistic-lock counter bumped on every persisted
// mutation.
type Session struct {
	id         uuid.UUID
	state      State
	start      *geo.Point
	points     []geo.Point
	color      route.Color
	generation int64
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

// Plan is a validated snapshot of a session ready to be sent for directions.
type Plan struct {
	Generation int64
	Start      geo.Point
	Waypoints  []geo.Point
	End        geo.Point
	Color      route.Color
}

// New creates an idle session for the given session key.
func New(id uuid.UUID) *Session {
	now := time.Now().UTC()
	return &Session{
		id:         id,
		state:      StateIdle,
		points:     []geo.Point{},
		color:      route.DefaultColor(),
		generation: 1,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}
}

// Reconstruct rebuilds a Session from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	state State,
	start *geo.Point,
	points []geo.Point,
	color route.Color,
	generation, version int64,
	createdAt, updatedAt time.Time,
) *Session {
	if points == nil {
		points = []geo.Point{}
	}
	return &Session{
		id:         id,
		state:      state,
		start:      start,
		points:     points,
		color:      color,
		generation: generation,
		version:    version,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// --- Getters ---

// ID returns the session key.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the workflow state.
func (s *Session) State() State { return s.state }

// Step returns the coarse step for the session-state record.
func (s *Session) Step() Step { return s.state.Step() }

// Start returns the tentative start point, if chosen.
func (s *Session) Start() (geo.Point, bool) {
	if s.start == nil {
		return geo.Point{}, false
	}
	return *s.start, true
}

// Points returns a copy of the points chosen after the start, in selection order.
func (s *Session) Points() []geo.Point { return geo.ClonePoints(s.points) }

// Color returns the tentative color.
func (s *Session) Color() route.Color { return s.color }

// Generation returns the build-attempt counter.
func (s *Session) Generation() int64 { return s.generation }

// Version returns the optimistic-lock version.
func (s *Session) Version() int64 { return s.version }

// CreatedAt returns the creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// --- Behavior ---

// Begin starts a new build, discarding any tentative points. The chosen color is kept.
func (s *Session) Begin() {
	if s.state != StateIdle {
		s.reset()
	}
	s.state = StateAwaitingStart
	s.touch()
}

// SetStart records the start point and moves on to waypoint selection.
func (s *Session) SetStart(p geo.Point) error {
	if s.state != StateAwaitingStart {
		return domain.NewInvalidStateError(string(s.state), string(StateAwaitingWaypointOrEnd))
	}
	if err := s.transitionTo(StateAwaitingWaypointOrEnd); err != nil {
		return err
	}
	s.start = &p
	s.touch()
	return nil
}

// AddWaypoint appends a point after the start.
func (s *Session) AddWaypoint(p geo.Point) error {
	if err := s.transitionTo(StateAwaitingWaypointOrEnd); err != nil {
		return err
	}
	s.points = append(s.points, p)
	s.touch()
	return nil
}

// PopLast removes the most recently added point after the start, if any.
func (s *Session) PopLast() {
	if len(s.points) == 0 {
		return
	}
	s.points = s.points[:len(s.points)-1]
	s.touch()
}

// ChooseColor sets the tentative color. Not allowed while committing.
func (s *Session) ChooseColor(c route.Color) error {
	if !c.IsValid() {
		return domain.NewValidationError("color is not in the palette: " + string(c))
	}
	if s.state == StateCommitting {
		return domain.NewInvalidStateError(string(s.state), "color selection")
	}
	s.color = c
	s.touch()
	return nil
}

// Plan validates that the session can be committed and returns its snapshot.
// The last point after the start is the destination; earlier ones are intermediate stops.
func (s *Session) Plan(minSeparationMeters float64) (Plan, error) {
	if s.state != StateAwaitingWaypointOrEnd && s.state != StateAwaitingColor {
		if s.state == StateAwaitingStart || s.state == StateIdle {
			return Plan{}, domain.NewValidationError("choose a start point first").WithReason(ReasonMissingStart)
		}
		return Plan{}, domain.NewInvalidStateError(string(s.state), string(StateCommitting))
	}
	if s.start == nil {
		return Plan{}, domain.NewValidationError("choose a start point first").WithReason(ReasonMissingStart)
	}
	if len(s.points) == 0 {
		return Plan{}, domain.NewValidationError("need at least one more point to finish the route").WithReason(ReasonNeedMorePoints)
	}

	end := s.points[len(s.points)-1]
	if d := geo.DistanceMeters(*s.start, end); d < minSeparationMeters {
		return Plan{}, domain.NewValidationError(
			fmt.Sprintf("end point is %.0f m from the start; it must be at least %.0f m away", d, minSeparationMeters),
		).WithReason(ReasonEndTooClose)
	}

	return Plan{
		Generation: s.generation,
		Start:      *s.start,
		Waypoints:  geo.ClonePoints(s.points[:len(s.points)-1]),
		End:        end,
		Color:      s.color,
	}, nil
}

// AwaitColor parks a complete point sequence until the color is confirmed.
func (s *Session) AwaitColor() error {
	if err := s.transitionTo(StateAwaitingColor); err != nil {
		return err
	}
	s.touch()
	return nil
}

// BeginCommit marks the session as waiting on the directions lookup.
func (s *Session) BeginCommit() error {
	if err := s.transitionTo(StateCommitting); err != nil {
		return err
	}
	s.touch()
	return nil
}

// AbortCommit returns a committing session to point selection. dropEnd discards the
// destination so a new one can be chosen.
func (s *Session) AbortCommit(dropEnd bool) error {
	if err := s.transitionTo(StateAwaitingWaypointOrEnd); err != nil {
		return err
	}
	if dropEnd {
		s.PopLast()
	}
	s.touch()
	return nil
}

// Complete ends a successful build and clears the tentative values.
func (s *Session) Complete() error {
	if err := s.transitionTo(StateIdle); err != nil {
		return err
	}
	s.reset()
	s.color = route.DefaultColor()
	return nil
}

// Cancel discards the build from any state.
func (s *Session) Cancel() {
	s.reset()
	s.color = route.DefaultColor()
}

// IncrementVersion bumps the version for optimistic locking.
func (s *Session) IncrementVersion() {
	s.version++
	s.updatedAt = time.Now().UTC()
}

func (s *Session) transitionTo(target State) error {
	if !s.state.CanTransitionTo(target) {
		return domain.NewInvalidStateError(string(s.state), string(target))
	}
	s.state = target
	return nil
}

func (s *Session) reset() {
	s.state = StateIdle
	s.start = nil
	s.points = []geo.Point{}
	s.generation++
	s.touch()
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}
