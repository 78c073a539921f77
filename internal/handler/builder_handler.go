package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/platform/middleware"
	"github.com/waymark-maps/service-routes/internal/platform/response"
)

// BuilderHandler exposes the route-construction workflow for the caller's session.
type BuilderHandler struct {
	service *application.BuilderService
}

// NewBuilderHandler creates a new BuilderHandler.
func NewBuilderHandler(service *application.BuilderService) *BuilderHandler {
	mustRegisterValidators()
	return &BuilderHandler{service: service}
}

// RegisterRoutes registers the session-state endpoints on the given router group.
func (h *BuilderHandler) RegisterRoutes(r *gin.RouterGroup) {
	state := r.Group("/api/v1/route-state")
	state.Use(middleware.SessionMiddleware())
	{
		state.GET("", h.GetState)
		state.PUT("", h.PutState)
		state.POST("/begin", h.Begin)
		state.POST("/points", h.AddPoint)
		state.POST("/finish", h.Finish)
		state.POST("/color", h.ChooseColor)
		state.POST("/undo", h.Undo)
		state.POST("/cancel", h.Cancel)
	}
}

// GetState handles GET /api/v1/route-state.
func (h *BuilderHandler) GetState(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	result, err := h.service.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// PutState handles PUT /api/v1/route-state. Only the tentative color is writable.
func (h *BuilderHandler) PutState(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	var req application.ChooseColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateSession(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Begin handles POST /api/v1/route-state/begin.
func (h *BuilderHandler) Begin(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	result, err := h.service.Begin(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AddPoint handles POST /api/v1/route-state/points.
func (h *BuilderHandler) AddPoint(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	var req application.AddPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddPoint(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	respondBuild(c, result)
}

// Finish handles POST /api/v1/route-state/finish.
func (h *BuilderHandler) Finish(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	result, err := h.service.Finish(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	respondBuild(c, result)
}

// ChooseColor handles POST /api/v1/route-state/color.
func (h *BuilderHandler) ChooseColor(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	var req application.ChooseColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ChooseColor(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	respondBuild(c, result)
}

// Cancel handles POST /api/v1/route-state/cancel.
func (h *BuilderHandler) Cancel(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Undo handles POST /api/v1/route-state/undo.
func (h *BuilderHandler) Undo(c *gin.Context) {
	sessionID, ok := sessionFrom(c)
	if !ok {
		return
	}

	result, err := h.service.Undo(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// respondBuild answers 201 when the action saved a route.
func respondBuild(c *gin.Context, result *application.BuildResult) {
	if result.Route != nil {
		response.Created(c, result)
		return
	}
	response.Success(c, result)
}

func sessionFrom(c *gin.Context) (uuid.UUID, bool) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.BadRequest(c, "missing session")
		return uuid.Nil, false
	}
	return sessionID, true
}
