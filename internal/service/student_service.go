package service

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/repository"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	Next(ctx context.Context, cursor int, match func(*models.Student) bool) (models.Student, int, bool)
	Update(ctx context.Context, id string, fn func(*models.Student) error) (*models.Student, error)
	Eligible(ctx context.Context) ([]models.Student, error)
}

type activityRecorder interface {
	Append(ctx context.Context, event *models.ActivityEvent) error
}

var (
	errNoChange        = errors.New("no change")
	errPaperworkClosed = errors.New("paperwork closed")
	errAlreadyAssigned = errors.New("already assigned")
)

// AddStudentRequest holds payload for adding a student to the roster.
type AddStudentRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Grade string `json:"grade" validate:"required"`
}

func (r *AddStudentRequest) normalise() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Grade = strings.TrimSpace(r.Grade)
}

// RegisterVehicleRequest holds the vehicle a student puts on file.
type RegisterVehicleRequest struct {
	Make  string `json:"make" validate:"required"`
	Model string `json:"model" validate:"required"`
	Year  string `json:"year" validate:"required,numeric,len=4"`
	Color string `json:"color" validate:"required"`
	Plate string `json:"plate" validate:"required,max=16"`
}

func (r *RegisterVehicleRequest) normalise() {
	r.Make = strings.TrimSpace(r.Make)
	r.Model = strings.TrimSpace(r.Model)
	r.Year = strings.TrimSpace(r.Year)
	r.Color = strings.TrimSpace(r.Color)
	r.Plate = strings.ToUpper(strings.TrimSpace(r.Plate))
}

// StudentService handles roster use-cases and the paperwork status machine.
type StudentService struct {
	repo      studentRepository
	activity  activityRecorder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// StudentServiceParams groups constructor dependencies.
type StudentServiceParams struct {
	Repo      studentRepository
	Activity  activityRecorder
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(params StudentServiceParams) *StudentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      params.Repo,
		activity:  params.Activity,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
	}
}

// Forms returns the document catalog.
func (s *StudentService) Forms() []models.FormDescriptor {
	return models.FormCatalog()
}

// Add registers a new student with every form pending.
func (s *StudentService) Add(ctx context.Context, req AddStudentRequest) (*models.Student, error) {
	req.normalise()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	student := &models.Student{
		Name:  req.Name,
		Email: req.Email,
		Grade: req.Grade,
		Forms: models.NewForms(),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add student")
	}

	s.metrics.RecordStudentAdded()
	s.afterMutation(ctx, &models.ActivityEvent{Type: models.ActivityStudentAdded, StudentID: student.ID, Detail: student.Name})
	s.logger.Info("student added", zap.String("student_id", student.ID), zap.String("grade", student.Grade))
	return student, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStudentError(err, "failed to load student")
	}
	return student, nil
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(filter.Status))
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListByStatus yields students currently in status, in roster order. The sequence is lazy and
// restartable; each iteration observes the roster as it is at that moment.
func (s *StudentService) ListByStatus(ctx context.Context, status models.StudentStatus) iter.Seq[models.Student] {
	match := func(student *models.Student) bool { return student.Status == status }
	return func(yield func(models.Student) bool) {
		cursor := 0
		for ctx.Err() == nil {
			student, next, ok := s.repo.Next(ctx, cursor, match)
			if !ok || !yield(student) {
				return
			}
			cursor = next
		}
	}
}

// Eligible returns the eligibility pool: ready students with a vehicle and no spot.
func (s *StudentService) Eligible(ctx context.Context) ([]models.Student, error) {
	pool, err := s.repo.Eligible(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load eligibility pool")
	}
	return pool, nil
}

// RecordUpload marks a document as uploaded and re-derives the student's status.
// Repeating an upload is a no-op; uploads after the paperwork is complete are rejected.
func (s *StudentService) RecordUpload(ctx context.Context, studentID string, key models.FormKey) (*models.Student, error) {
	if !key.Valid() {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "unknown form key "+string(key)),
			map[string]interface{}{"allowed": models.FormKeys},
		)
	}

	var previous models.StudentStatus
	student, err := s.repo.Update(ctx, studentID, func(st *models.Student) error {
		previous = st.Status
		if st.Status == models.StudentStatusReady || st.Status == models.StudentStatusAssigned {
			return errPaperworkClosed
		}
		if st.Forms.Uploaded(key) {
			return errNoChange
		}
		st.Forms.MarkUploaded(key)
		return nil
	})
	switch {
	case errors.Is(err, errNoChange):
		return s.Get(ctx, studentID)
	case errors.Is(err, errPaperworkClosed):
		return nil, appErrors.Clone(appErrors.ErrConflict, "paperwork is already complete for this student")
	case err != nil:
		return nil, mapStudentError(err, "failed to record upload")
	}

	s.metrics.RecordFormUpload(string(key))
	s.afterMutation(ctx, &models.ActivityEvent{Type: models.ActivityFormUploaded, StudentID: student.ID, Detail: key.Label()})
	s.logger.Info("form uploaded",
		zap.String("student_id", student.ID),
		zap.String("form", string(key)),
		zap.String("from", string(previous)),
		zap.String("to", string(student.Status)),
	)
	return student, nil
}

// RegisterVehicle puts a vehicle on file. Students holding a spot cannot change vehicles here.
func (s *StudentService) RegisterVehicle(ctx context.Context, studentID string, req RegisterVehicleRequest) (*models.Student, error) {
	req.normalise()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid vehicle payload")
	}
	student, err := s.repo.Update(ctx, studentID, func(st *models.Student) error {
		if st.ParkingSpot != nil {
			return errAlreadyAssigned
		}
		st.VehicleInfo = &models.VehicleInfo{Make: req.Make, Model: req.Model, Year: req.Year, Color: req.Color, Plate: req.Plate}
		return nil
	})
	if errors.Is(err, errAlreadyAssigned) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already holds a parking spot")
	}
	if err != nil {
		return nil, mapStudentError(err, "failed to register vehicle")
	}

	s.afterMutation(ctx, &models.ActivityEvent{Type: models.ActivityVehicleRegistered, StudentID: student.ID, Detail: req.Plate})
	s.logger.Info("vehicle registered", zap.String("student_id", student.ID))
	return student, nil
}

func (s *StudentService) afterMutation(ctx context.Context, event *models.ActivityEvent) {
	recordActivity(ctx, s.activity, s.logger, event)
	s.cache.Invalidate(ctx, dashboardCachePattern)
}

func recordActivity(ctx context.Context, recorder activityRecorder, logger *zap.Logger, event *models.ActivityEvent) {
	if recorder == nil {
		return
	}
	if err := recorder.Append(ctx, event); err != nil {
		logger.Warn("activity append failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func mapStudentError(err error, message string) error {
	if errors.Is(err, repository.ErrStudentNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErr
	}
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return appErrors.WithDetails(appErr, map[string]interface{}{"fields": fields})
}
