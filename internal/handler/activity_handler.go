package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parking-permit-api/internal/models"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
	"github.com/noah-isme/parking-permit-api/pkg/response"
)

type activityService interface {
	Recent(ctx context.Context, limit int) ([]models.ActivityEvent, error)
}

// ActivityHandler exposes the operator activity log.
type ActivityHandler struct {
	activity activityService
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(activity activityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List godoc
// @Summary Recent operator activity
// @Tags Activity
// @Produce json
// @Param limit query int false "Maximum events, newest first (default 50)"
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	events, err := h.activity.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
