package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waymark-maps/service-routes/internal/directions"
	"github.com/waymark-maps/service-routes/internal/domain/buildsession"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	routeDomain "github.com/waymark-maps/service-routes/internal/domain/route"
	"github.com/waymark-maps/service-routes/internal/platform/domain"
)

// Builder failure reasons.
const (
	ReasonNotBuilding   = "not_building"
	ReasonStaleBuild    = "stale_build"
	ReasonNoGeocoder    = "no_geocoder"
	ReasonPointRequired = "point_required"
)

// BuilderOptions configures the route-construction workflow.
type BuilderOptions struct {
	// ExplicitFinish requires a finish action. When false, the first point after the
	// start is the destination and commits immediately.
	ExplicitFinish bool
	// ConfirmColor parks a finished point sequence until a color is chosen.
	ConfirmColor bool
	// DuplicateCheck rejects builds whose endpoints match a saved route.
	DuplicateCheck bool
	// MinEndpointSeparationMeters is the minimum start-to-end distance.
	MinEndpointSeparationMeters float64
}

// DefaultBuilderOptions returns explicit finish, duplicate checking and a 100 m minimum.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		ExplicitFinish:              true,
		DuplicateCheck:              true,
		MinEndpointSeparationMeters: 100,
	}
}

// AddPointRequest supplies the next point, either directly (map click) or as a place search.
type AddPointRequest struct {
	Point *geo.Point `json:"point"`
	Query string     `json:"query"`
}

// ChooseColorRequest selects the tentative color.
type ChooseColorRequest struct {
	Color string `json:"color" binding:"required,routecolor"`
}

// SessionDTO is the session-state record.
type SessionDTO struct {
	SessionID  uuid.UUID   `json:"session_id"`
	Step       string      `json:"step"`
	State      string      `json:"state"`
	Start      *geo.Point  `json:"start"`
	Points     []geo.Point `json:"points"`
	Color      string      `json:"color"`
	Generation int64       `json:"generation"`
	Version    int64       `json:"version"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// BuildResult is returned by every workflow action. Route is set when the action
// committed a new route.
type BuildResult struct {
	Session SessionDTO `json:"session"`
	Route   *RouteDTO  `json:"route,omitempty"`
}

// BuilderService runs the route-construction workflow for each browser session.
type BuilderService struct {
	sessions buildsession.Repository
	router   directions.Router
	geocoder directions.Geocoder
	routes   *RouteService
	opts     BuilderOptions
	logger   *zap.Logger
}

// NewBuilderService creates a new BuilderService. geocoder may be nil, in which case place
// searches are rejected.
func NewBuilderService(
	sessions buildsession.Repository,
	router directions.Router,
	geocoder directions.Geocoder,
	routes *RouteService,
	opts BuilderOptions,
	logger *zap.Logger,
) *BuilderService {
	return &BuilderService{
		sessions: sessions,
		router:   router,
		geocoder: geocoder,
		routes:   routes,
		opts:     opts,
		logger:   logger,
	}
}

// Options returns the workflow configuration.
func (s *BuilderService) Options() BuilderOptions { return s.opts }

// GetSession returns the session-state record, creating it on first access.
func (s *BuilderService) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionDTO, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := toSessionDTO(sess)
	return &result, nil
}

// Begin starts a new build, discarding any points from an unfinished one.
func (s *BuilderService) Begin(ctx context.Context, sessionID uuid.UUID) (*BuildResult, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Begin()
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug("route build started",
		zap.String("session_id", sessionID.String()),
		zap.Int64("generation", sess.Generation()),
	)
	return &BuildResult{Session: toSessionDTO(sess)}, nil
}

// AddPoint supplies the start or the next point after it. Without ExplicitFinish the
// first point after the start is the destination and triggers the commit.
func (s *BuilderService) AddPoint(ctx context.Context, sessionID uuid.UUID, req AddPointRequest) (*BuildResult, error) {
	point, err := s.resolvePoint(ctx, req)
	if err != nil {
		return nil, err
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch sess.State() {
	case buildsession.StateIdle:
		return nil, domain.NewValidationError("start a new route before choosing points").WithReason(ReasonNotBuilding)

	case buildsession.StateAwaitingStart:
		if err := sess.SetStart(point); err != nil {
			return nil, err
		}

	case buildsession.StateAwaitingWaypointOrEnd:
		if err := sess.AddWaypoint(point); err != nil {
			return nil, err
		}
		if !s.opts.ExplicitFinish {
			return s.commit(ctx, sess)
		}

	default:
		return nil, domain.NewInvalidStateError(sess.State().String(), buildsession.StateAwaitingWaypointOrEnd.String())
	}

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	return &BuildResult{Session: toSessionDTO(sess)}, nil
}

// Finish treats the last point chosen as the destination and commits the build.
func (s *BuilderService) Finish(ctx context.Context, sessionID uuid.UUID) (*BuildResult, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State() == buildsession.StateAwaitingColor {
		return nil, domain.NewInvalidStateError(sess.State().String(), buildsession.StateCommitting.String())
	}
	return s.commit(ctx, sess)
}

// ChooseColor sets the tentative color. While a finished build awaits its color, choosing
// one commits it.
func (s *BuilderService) ChooseColor(ctx context.Context, sessionID uuid.UUID, req ChooseColorRequest) (*BuildResult, error) {
	color, err := routeDomain.ParseColor(req.Color)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.ChooseColor(color); err != nil {
		return nil, err
	}

	if sess.State() == buildsession.StateAwaitingColor {
		return s.commit(ctx, sess)
	}

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	return &BuildResult{Session: toSessionDTO(sess)}, nil
}

// UpdateSession writes the tentative color without advancing the workflow.
func (s *BuilderService) UpdateSession(ctx context.Context, sessionID uuid.UUID, req ChooseColorRequest) (*SessionDTO, error) {
	color, err := routeDomain.ParseColor(req.Color)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.ChooseColor(color); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	result := toSessionDTO(sess)
	return &result, nil
}

// Undo removes the most recently added point after the start.
func (s *BuilderService) Undo(ctx context.Context, sessionID uuid.UUID) (*BuildResult, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State() != buildsession.StateAwaitingWaypointOrEnd {
		return nil, domain.NewInvalidStateError(sess.State().String(), "undo")
	}
	if len(sess.Points()) == 0 {
		return nil, domain.NewValidationError("there is no point to undo").WithReason(ReasonPointRequired)
	}

	sess.PopLast()
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}
	return &BuildResult{Session: toSessionDTO(sess)}, nil
}

// Cancel discards the build from any state. A directions lookup still in flight for the
// cancelled build is discarded when it returns.
func (s *BuilderService) Cancel(ctx context.Context, sessionID uuid.UUID) (*BuildResult, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Cancel()
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug("route build cancelled", zap.String("session_id", sessionID.String()))
	return &BuildResult{Session: toSessionDTO(sess)}, nil
}

// commit validates the build, asks the router for a path and saves the route. sess may
// carry an unpersisted change (the triggering point or color); it is only stored if the
// build passes validation.
func (s *BuilderService) commit(ctx context.Context, sess *buildsession.Session) (*BuildResult, error) {
	plan, err := sess.Plan(s.opts.MinEndpointSeparationMeters)
	if err != nil {
		return nil, err
	}

	if s.opts.DuplicateCheck {
		if err := s.rejectDuplicate(ctx, plan); err != nil {
			return nil, err
		}
	}

	if s.opts.ConfirmColor && sess.State() == buildsession.StateAwaitingWaypointOrEnd {
		if err := sess.AwaitColor(); err != nil {
			return nil, err
		}
		if err := s.persist(ctx, sess); err != nil {
			return nil, err
		}
		return &BuildResult{Session: toSessionDTO(sess)}, nil
	}

	if err := sess.BeginCommit(); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	sessionID := sess.ID()
	logger := s.logger.With(
		zap.String("session_id", sessionID.String()),
		zap.Int64("generation", plan.Generation),
	)

	res, routeErr := s.router.Route(ctx, directions.Request{
		Origin:      plan.Start,
		Destination: plan.End,
		Waypoints:   plan.Waypoints,
		Mode:        directions.ModeDriving,
	})

	// The session may have been cancelled or restarted while the lookup was in flight,
	// and the caller may have gone away. Finish the bookkeeping regardless.
	ctx = context.WithoutCancel(ctx)
	current, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stale(current, plan) {
		logger.Info("discarding directions response for superseded build",
			zap.Int64("current_generation", current.Generation()),
			zap.String("current_state", current.State().String()),
		)
		return nil, staleBuildError()
	}

	if routeErr != nil {
		logger.Warn("directions lookup failed",
			zap.String("kind", string(directions.KindOf(routeErr))),
			zap.Error(routeErr),
		)
		if err := s.abort(ctx, current); err != nil {
			return nil, err
		}
		return nil, directionsError(routeErr)
	}

	rt, err := routeDomain.NewRoute(plan.Start, plan.End, plan.Waypoints, res.OverviewPath, res.DistanceText, res.DurationText, plan.Color)
	if err != nil {
		if abortErr := s.abort(ctx, current); abortErr != nil {
			return nil, abortErr
		}
		return nil, err
	}

	// Another session may have saved the same endpoints while the lookup was in flight.
	if s.opts.DuplicateCheck {
		if err := s.rejectDuplicate(ctx, plan); err != nil {
			if abortErr := s.abort(ctx, current); abortErr != nil {
				return nil, abortErr
			}
			return nil, err
		}
	}

	saved, err := s.routes.SaveRoute(ctx, rt)
	if err != nil {
		logger.Error("failed to save built route", zap.Error(err))
		// Keep every point, the destination included, so finishing again retries the save.
		if abortErr := s.abortTo(ctx, current, false); abortErr != nil && !domain.IsConflict(abortErr) {
			logger.Error("failed to restore session after store failure", zap.Error(abortErr))
		}
		return nil, err
	}

	if err := current.Complete(); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, current); err != nil {
		if !domain.IsConflict(err) {
			return nil, err
		}
		// The session moved on after the route was saved. Report the route with the
		// session as it is now.
		logger.Info("session changed while the built route was being saved")
		latest, findErr := s.sessions.FindByID(ctx, sessionID)
		if findErr != nil {
			return nil, findErr
		}
		current = latest
	}

	return &BuildResult{Session: toSessionDTO(current), Route: saved}, nil
}

// abort returns a failed commit to point selection. Without explicit finish the rejected
// destination is dropped so the next point replaces it.
func (s *BuilderService) abort(ctx context.Context, sess *buildsession.Session) error {
	return s.abortTo(ctx, sess, !s.opts.ExplicitFinish)
}

func (s *BuilderService) abortTo(ctx context.Context, sess *buildsession.Session, dropEnd bool) error {
	if err := sess.AbortCommit(dropEnd); err != nil {
		return err
	}
	if err := s.persist(ctx, sess); err != nil {
		if domain.IsConflict(err) {
			return staleBuildError()
		}
		return err
	}
	return nil
}

func (s *BuilderService) rejectDuplicate(ctx context.Context, plan buildsession.Plan) error {
	dup, err := s.routes.FindDuplicate(ctx, plan.Start, plan.End)
	if err != nil {
		return err
	}
	if dup != nil {
		return duplicateRouteError(dup)
	}
	return nil
}

func (s *BuilderService) resolvePoint(ctx context.Context, req AddPointRequest) (geo.Point, error) {
	if req.Point != nil {
		return *req.Point, nil
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return geo.Point{}, domain.NewValidationError("either point or query is required").WithReason(ReasonPointRequired)
	}
	if s.geocoder == nil {
		return geo.Point{}, domain.NewValidationError("place search is not available").WithReason(ReasonNoGeocoder)
	}

	p, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		s.logger.Warn("place search failed", zap.String("query", query), zap.Error(err))
		return geo.Point{}, directionsError(err)
	}
	return p, nil
}

// load returns the session for a key, creating it lazily. A concurrent first access that
// wins the insert is read back instead of failing.
func (s *BuilderService) load(ctx context.Context, sessionID uuid.UUID) (*buildsession.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if !domain.IsNotFound(err) {
		return nil, err
	}

	sess = buildsession.New(sessionID)
	if err := s.sessions.Save(ctx, sess); err != nil {
		if domain.IsConflict(err) {
			return s.sessions.FindByID(ctx, sessionID)
		}
		return nil, err
	}
	return sess, nil
}

func (s *BuilderService) persist(ctx context.Context, sess *buildsession.Session) error {
	sess.IncrementVersion()
	return s.sessions.Update(ctx, sess)
}

func stale(current *buildsession.Session, plan buildsession.Plan) bool {
	return current.Generation() != plan.Generation || current.State() != buildsession.StateCommitting
}

func staleBuildError() error {
	return domain.NewConflictError("the route build was cancelled or restarted before directions returned").WithReason(ReasonStaleBuild)
}

var directionsMessages = map[directions.Kind]string{
	directions.KindNoRoute:          "No drivable route was found between the selected points.",
	directions.KindRequestDenied:    "The directions service refused the request. Check the API key configuration.",
	directions.KindOverLimit:        "The directions service is over its usage limit. Try again in a moment.",
	directions.KindInvalidRequest:   "The directions request was invalid. Check the selected points.",
	directions.KindTooManyWaypoints: "Too many waypoints for the directions service. Remove some and finish again.",
	directions.KindNoPlace:          "No place matched the search.",
	directions.KindUnknown:          "The directions service failed unexpectedly.",
}

// directionsError converts a provider failure to a user-presentable upstream error.
func directionsError(err error) error {
	kind := directions.KindOf(err)
	msg, ok := directionsMessages[kind]
	if !ok {
		msg = directionsMessages[directions.KindUnknown]
	}
	return domain.NewUpstreamError(strings.ToLower(string(kind)), msg)
}

func toSessionDTO(sess *buildsession.Session) SessionDTO {
	dto := SessionDTO{
		SessionID:  sess.ID(),
		Step:       string(sess.Step()),
		State:      sess.State().String(),
		Points:     sess.Points(),
		Color:      sess.Color().String(),
		Generation: sess.Generation(),
		Version:    sess.Version(),
		CreatedAt:  sess.CreatedAt(),
		UpdatedAt:  sess.UpdatedAt(),
	}
	if start, ok := sess.Start(); ok {
		dto.Start = &start
	}
	return dto
}
