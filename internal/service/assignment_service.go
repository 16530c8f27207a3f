package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/repository"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

type spotRepository interface {
	List(ctx context.Context, filter models.SpotFilter) ([]models.ParkingSpot, error)
	FindByID(ctx context.Context, id string) (*models.ParkingSpot, error)
	Assign(ctx context.Context, spotID, studentID string, fn repository.AssignFunc) (*models.ParkingSpot, *models.Student, error)
	Stats(ctx context.Context) (repository.LotStats, error)
}

var errSpotOccupied = errors.New("spot occupied")

// ineligibleError explains why a student is outside the eligibility pool.
type ineligibleError struct {
	reason string
}

func (e *ineligibleError) Error() string { return e.reason }

// AssignSpotRequest is the body of an assignment call.
type AssignSpotRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}

// AssignmentResult carries both sides of a successful assignment.
type AssignmentResult struct {
	Spot    models.ParkingSpot `json:"spot"`
	Student models.Student     `json:"student"`
}

// AssignmentService maintains the spot catalog and binds eligible students to free spots.
type AssignmentService struct {
	spots     spotRepository
	activity  activityRecorder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// AssignmentServiceParams groups constructor dependencies.
type AssignmentServiceParams struct {
	Spots     spotRepository
	Activity  activityRecorder
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(params AssignmentServiceParams) *AssignmentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		spots:     params.Spots,
		activity:  params.Activity,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
	}
}

// ListSpots returns the catalog in layout order.
func (s *AssignmentService) ListSpots(ctx context.Context, filter models.SpotFilter) ([]models.ParkingSpot, error) {
	if filter.Zone != "" && !filter.Zone.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown zone "+string(filter.Zone))
	}
	spots, err := s.spots.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list spots")
	}
	return spots, nil
}

// Inspect returns the occupancy of a single spot. Handicapped spots carry no assignment policy here.
func (s *AssignmentService) Inspect(ctx context.Context, spotID string) (*models.ParkingSpot, error) {
	spot, err := s.spots.FindByID(ctx, strings.TrimSpace(spotID))
	if err != nil {
		return nil, mapSpotError(err, "failed to load spot")
	}
	return spot, nil
}

// Stats returns occupancy totals for the lot.
func (s *AssignmentService) Stats(ctx context.Context) (repository.LotStats, error) {
	stats, err := s.spots.Stats(ctx)
	if err != nil {
		return repository.LotStats{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute lot stats")
	}
	return stats, nil
}

// Assign binds an eligible student to a free spot. The spot and the student's roster record are
// updated together; a second caller for the same spot gets a conflict.
func (s *AssignmentService) Assign(ctx context.Context, spotID string, req AssignSpotRequest) (*AssignmentResult, error) {
	spotID = strings.TrimSpace(spotID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}

	spot, student, err := s.spots.Assign(ctx, spotID, req.StudentID, func(spot *models.ParkingSpot, student *models.Student) error {
		if spot.Occupied {
			return errSpotOccupied
		}
		if reason := ineligibility(student); reason != "" {
			return &ineligibleError{reason: reason}
		}
		assigned := spot.ID
		spot.Occupy(student.ID, student.Name)
		student.ParkingSpot = &assigned
		return nil
	})
	if err != nil {
		return nil, s.assignFailure(spotID, req.StudentID, err)
	}

	s.metrics.RecordAssignment(OutcomeAssigned)
	recordActivity(ctx, s.activity, s.logger, &models.ActivityEvent{
		Type:      models.ActivitySpotAssigned,
		StudentID: student.ID,
		SpotID:    spot.ID,
		Detail:    student.Name,
	})
	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.logger.Info("spot assigned",
		zap.String("spot_id", spot.ID),
		zap.String("student_id", student.ID),
		zap.Bool("handicapped", spot.Handicapped),
	)
	return &AssignmentResult{Spot: *spot, Student: *student}, nil
}

func (s *AssignmentService) assignFailure(spotID, studentID string, err error) error {
	var ineligible *ineligibleError
	var outcome string
	var result error
	switch {
	case errors.Is(err, repository.ErrSpotNotFound):
		outcome, result = OutcomeNotFound, appErrors.Clone(appErrors.ErrNotFound, "parking spot not found")
	case errors.Is(err, repository.ErrStudentNotFound):
		outcome, result = OutcomeNotFound, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	case errors.Is(err, errSpotOccupied):
		outcome, result = OutcomeConflict, appErrors.Clone(appErrors.ErrConflict, "parking spot "+spotID+" is already occupied")
	case errors.As(err, &ineligible):
		outcome = OutcomeIneligible
		result = appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "student is not eligible for a parking spot"),
			map[string]interface{}{"reason": ineligible.reason},
		)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign spot")
	}
	s.metrics.RecordAssignment(outcome)
	s.logger.Info("spot assignment rejected",
		zap.String("spot_id", spotID),
		zap.String("student_id", studentID),
		zap.String("outcome", outcome),
	)
	return result
}

func ineligibility(student *models.Student) string {
	switch {
	case student.ParkingSpot != nil || student.Status == models.StudentStatusAssigned:
		return "student already holds a parking spot"
	case student.Status != models.StudentStatusReady:
		return "paperwork is incomplete"
	case !student.HasVehicleOnFile():
		return "no vehicle on file"
	}
	return ""
}

func mapSpotError(err error, message string) error {
	if errors.Is(err, repository.ErrSpotNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "parking spot not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
