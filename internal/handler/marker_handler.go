package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waymark-maps/service-routes/internal/application"
	"github.com/waymark-maps/service-routes/internal/platform/response"
)

// MarkerHandler handles HTTP requests for map markers.
type MarkerHandler struct {
	service *application.MarkerService
}

// NewMarkerHandler creates a new MarkerHandler.
func NewMarkerHandler(service *application.MarkerService) *MarkerHandler {
	return &MarkerHandler{service: service}
}

// RegisterRoutes registers all marker endpoints on the given router group.
func (h *MarkerHandler) RegisterRoutes(r *gin.RouterGroup) {
	markers := r.Group("/api/v1/markers")
	{
		markers.GET("", h.ListMarkers)
		markers.POST("", h.CreateMarker)
		markers.DELETE("/:id", h.DeleteMarker)
	}
}

// ListMarkers handles GET /api/v1/markers.
func (h *MarkerHandler) ListMarkers(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	result, err := h.service.ListMarkers(c.Request.Context(), refresh)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateMarker handles POST /api/v1/markers.
func (h *MarkerHandler) CreateMarker(c *gin.Context) {
	var req application.CreateMarkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateMarker(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// DeleteMarker handles DELETE /api/v1/markers/:id.
func (h *MarkerHandler) DeleteMarker(c *gin.Context) {
	markerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid marker ID")
		return
	}

	if err := h.service.DeleteMarker(c.Request.Context(), markerID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
