package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/service"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

type fakeLotService struct {
	lastFilter models.SpotFilter
	lastSpot   string
	lastReq    service.AssignSpotRequest
	err        error
}

func (f *fakeLotService) ListSpots(_ context.Context, filter models.SpotFilter) ([]models.ParkingSpot, error) {
	f.lastFilter = filter
	return []models.ParkingSpot{{ID: "T1", Zone: models.SpotZoneTop}}, f.err
}

func (f *fakeLotService) Inspect(_ context.Context, id string) (*models.ParkingSpot, error) {
	f.lastSpot = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.ParkingSpot{ID: id, Zone: models.SpotZoneBlock, Block: "B"}, nil
}

func (f *fakeLotService) Assign(_ context.Context, id string, req service.AssignSpotRequest) (*service.AssignmentResult, error) {
	f.lastSpot, f.lastReq = id, req
	if f.err != nil {
		return nil, f.err
	}
	name := "Ann"
	return &service.AssignmentResult{
		Spot:    models.ParkingSpot{ID: id, Occupied: true, Student: &name},
		Student: models.Student{ID: req.StudentID, Status: models.StudentStatusAssigned},
	}, nil
}

func TestLotHandlerListSpotsFilters(t *testing.T) {
	svc := &fakeLotService{}
	c, rec := newTestContext(http.MethodGet, "/lot/spots?zone=top&available=true", "")

	NewLotHandler(svc).ListSpots(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SpotZoneTop, svc.lastFilter.Zone)
	require.NotNil(t, svc.lastFilter.Available)
	assert.True(t, *svc.lastFilter.Available)
	envelope := decodeEnvelope(t, rec, nil)
	assert.EqualValues(t, 1, envelope.Meta["count"])
}

func TestLotHandlerListSpotsBadAvailable(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/lot/spots?available=maybe", "")

	NewLotHandler(&fakeLotService{}).ListSpots(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLotHandlerAssign(t *testing.T) {
	svc := &fakeLotService{}
	c, rec := newTestContext(http.MethodPost, "/lot/spots/B1-1/assignment", `{"studentId":"s-1"}`)
	c.Params = gin.Params{{Key: "id", Value: "B1-1"}}

	NewLotHandler(svc).Assign(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B1-1", svc.lastSpot)
	assert.Equal(t, "s-1", svc.lastReq.StudentID)
	var result service.AssignmentResult
	decodeEnvelope(t, rec, &result)
	assert.True(t, result.Spot.Occupied)
	assert.Equal(t, models.StudentStatusAssigned, result.Student.Status)
}

func TestLotHandlerAssignConflict(t *testing.T) {
	svc := &fakeLotService{err: appErrors.Clone(appErrors.ErrConflict, "parking spot B1-1 is already occupied")}
	c, rec := newTestContext(http.MethodPost, "/lot/spots/B1-1/assignment", `{"studentId":"s-1"}`)
	c.Params = gin.Params{{Key: "id", Value: "B1-1"}}

	NewLotHandler(svc).Assign(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLotHandlerInspectNotFound(t *testing.T) {
	svc := &fakeLotService{err: appErrors.Clone(appErrors.ErrNotFound, "parking spot not found")}
	c, rec := newTestContext(http.MethodGet, "/lot/spots/Z9", "")
	c.Params = gin.Params{{Key: "id", Value: "Z9"}}

	NewLotHandler(svc).Inspect(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
