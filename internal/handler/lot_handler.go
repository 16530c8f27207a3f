package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/service"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
	"github.com/noah-isme/parking-permit-api/pkg/response"
)

type lotService interface {
	ListSpots(ctx context.Context, filter models.SpotFilter) ([]models.ParkingSpot, error)
	Inspect(ctx context.Context, spotID string) (*models.ParkingSpot, error)
	Assign(ctx context.Context, spotID string, req service.AssignSpotRequest) (*service.AssignmentResult, error)
}

// LotHandler exposes the spot catalog and assignment endpoints.
type LotHandler struct {
	lot lotService
}

// NewLotHandler constructs LotHandler.
func NewLotHandler(lot lotService) *LotHandler {
	return &LotHandler{lot: lot}
}

// ListSpots godoc
// @Summary List parking spots
// @Tags Lot
// @Produce json
// @Param zone query string false "top, left, right, bottom or block"
// @Param available query bool false "Only free (true) or occupied (false) spots"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lot/spots [get]
func (h *LotHandler) ListSpots(c *gin.Context) {
	filter := models.SpotFilter{Zone: models.SpotZone(strings.TrimSpace(c.Query("zone")))}
	if raw := strings.TrimSpace(c.Query("available")); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "available must be true or false"))
			return
		}
		filter.Available = &available
	}
	spots, err := h.lot.ListSpots(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, spots, nil, map[string]interface{}{"count": len(spots)})
}

// Inspect godoc
// @Summary Inspect a parking spot
// @Tags Lot
// @Produce json
// @Param id path string true "Spot ID, e.g. B1-5"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lot/spots/{id} [get]
func (h *LotHandler) Inspect(c *gin.Context) {
	spot, err := h.lot.Inspect(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, spot, nil)
}

// Assign godoc
// @Summary Assign a student to a spot
// @Tags Lot
// @Accept json
// @Produce json
// @Param id path string true "Spot ID"
// @Param payload body service.AssignSpotRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lot/spots/{id}/assignment [post]
func (h *LotHandler) Assign(c *gin.Context) {
	var req service.AssignSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.lot.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
