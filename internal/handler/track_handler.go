package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/domain/geo"
	"github.com/waymark-maps/service-routes/internal/platform/middleware"
	"github.com/waymark-maps/service-routes/internal/platform/response"
)

// TrackHandler handles location recording for the caller's session.
type TrackHandler struct {
	service *application.TrackService
}

// NewTrackHandler creates a new TrackHandler.
func NewTrackHandler(service *application.TrackService) *TrackHandler {
	return &TrackHandler{service: service}
}

// RegisterRoutes registers the tracking endpoints on the given router group.
func (h *TrackHandler) RegisterRoutes(r *gin.RouterGroup) {
	track := r.Group("/api/v1/track")
	track.Use(middleware.SessionMiddleware())
	{
		track.GET("", h.GetTrack)
		track.POST("/recording", h.SetRecording)
		track.POST("/follow", h.SetFollow)
		track.POST("/samples", h.AddSample)
		track.POST("/errors", h.ReportError)
	}
}

// GetTrack handles GET /api/v1/track.
func (h *TrackHandler) GetTrack(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}
	response.Success(c, h.service.Snapshot(sessionID))
}

// SetRecording handles POST /api/v1/track/recording.
func (h *TrackHandler) SetRecording(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	var req application.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, h.service.SetRecording(sessionID, *req.Enabled))
}

// SetFollow handles POST /api/v1/track/follow.
func (h *TrackHandler) SetFollow(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	var req application.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, h.service.SetFollow(sessionID, *req.Enabled))
}

// AddSample handles POST /api/v1/track/samples.
func (h *TrackHandler) AddSample(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	var req application.SampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, h.service.AddSample(sessionID, geo.Point{Lat: *req.Lat, Lng: *req.Lng}))
}

// ReportError handles POST /api/v1/track/errors.
func (h *TrackHandler) ReportError(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	var req application.GeoErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ReportError(sessionID, req.Reason, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
