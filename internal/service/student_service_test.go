package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/repository"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

type fakeCacheRepo struct {
	mu          sync.Mutex
	store       map[string][]byte
	invalidated []string
	getErr      error
	beforeSet   func()
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: map[string][]byte{}}
}

func (f *fakeCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return f.getErr
	}
	payload, ok := f.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (f *fakeCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.beforeSet != nil {
		hook := f.beforeSet
		f.beforeSet = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = payload
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, pattern)
	f.store = map[string][]byte{}
	return nil
}

func (f *fakeCacheRepo) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invalidated)
}

type testRoster struct {
	store      *repository.Store
	students   *repository.StudentRepository
	spots      *repository.SpotRepository
	activity   *repository.ActivityRepository
	cacheRepo  *fakeCacheRepo
	cache      *CacheService
	metrics    *MetricsService
	roster     *StudentService
	assignment *AssignmentService
}

func newTestRoster(t *testing.T) *testRoster {
	t.Helper()
	store := repository.NewStore(models.DefaultLotLayout(), 100)
	tr := &testRoster{
		store:     store,
		students:  repository.NewStudentRepository(store),
		spots:     repository.NewSpotRepository(store),
		activity:  repository.NewActivityRepository(store),
		cacheRepo: newFakeCacheRepo(),
		metrics:   NewMetricsService(),
	}
	tr.cache = NewCacheService(tr.cacheRepo, tr.metrics, time.Minute, zap.NewNop(), true)
	tr.roster = NewStudentService(StudentServiceParams{
		Repo:     tr.students,
		Activity: tr.activity,
		Cache:    tr.cache,
		Metrics:  tr.metrics,
		Logger:   zap.NewNop(),
	})
	tr.assignment = NewAssignmentService(AssignmentServiceParams{
		Spots:    tr.spots,
		Activity: tr.activity,
		Cache:    tr.cache,
		Metrics:  tr.metrics,
		Logger:   zap.NewNop(),
	})
	return tr
}

func (tr *testRoster) addStudent(t *testing.T, name string) *models.Student {
	t.Helper()
	student, err := tr.roster.Add(context.Background(), AddStudentRequest{Name: name, Email: name + "@school.edu", Grade: "11"})
	require.NoError(t, err)
	return student
}

func (tr *testRoster) completePaperwork(t *testing.T, id string) *models.Student {
	t.Helper()
	var student *models.Student
	for _, key := range models.FormKeys {
		var err error
		student, err = tr.roster.RecordUpload(context.Background(), id, key)
		require.NoError(t, err)
	}
	return student
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

func TestStudentServiceAdd(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()

	student, err := tr.roster.Add(ctx, AddStudentRequest{Name: "  Ann  ", Email: "ann@school.edu", Grade: " 11 "})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "Ann", student.Name)
	assert.Equal(t, "11", student.Grade)
	assert.Equal(t, models.StudentStatusNotStarted, student.Status)
	assert.Len(t, student.Forms, len(models.FormKeys))
	assert.Zero(t, student.Forms.UploadedCount())
	assert.Equal(t, 1, tr.cacheRepo.invalidations())

	events, err := tr.activity.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActivityStudentAdded, events[0].Type)
}

func TestStudentServiceAddRejectsEmptyFieldsWithoutMutation(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()

	cases := []AddStudentRequest{
		{Name: "", Email: "e@x.com", Grade: "9"},
		{Name: "Bo", Email: "   ", Grade: "9"},
		{Name: "Bo", Email: "e@x.com", Grade: "  "},
		{Name: "Bo", Email: "not-an-email", Grade: "9"},
	}
	for _, req := range cases {
		_, err := tr.roster.Add(ctx, req)
		assertCode(t, err, appErrors.ErrValidation.Code)
	}

	_, total, err := tr.students.List(ctx, models.StudentFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, tr.cacheRepo.invalidations())
}

func TestStudentServiceValidationDetailsNameFields(t *testing.T) {
	tr := newTestRoster(t)

	_, err := tr.roster.Add(context.Background(), AddStudentRequest{Email: "e@x.com", Grade: "9"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	fields, ok := appErr.Details["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "required", fields["name"])
}

func TestStudentServiceAnnScenario(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")

	student, err := tr.roster.RecordUpload(ctx, ann.ID, models.FormDriverLicense)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInProgress, student.Status)

	for _, key := range models.FormKeys[1:] {
		student, err = tr.roster.RecordUpload(ctx, ann.ID, key)
		require.NoError(t, err)
	}
	assert.Equal(t, models.StudentStatusReady, student.Status)
	assert.True(t, student.Forms.Complete())

	result, err := tr.assignment.Assign(ctx, "B1-1", AssignSpotRequest{StudentID: ann.ID})
	require.NoError(t, err)
	assert.True(t, result.Spot.Occupied)
	require.NotNil(t, result.Spot.Student)
	assert.Equal(t, "Ann", *result.Spot.Student)
	assert.Equal(t, models.StudentStatusAssigned, result.Student.Status)

	stored, err := tr.roster.Get(ctx, ann.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ParkingSpot)
	assert.Equal(t, "B1-1", *stored.ParkingSpot)
	assert.Equal(t, models.StudentStatusAssigned, stored.Status)
}

func TestStudentServiceRecordUploadIsIdempotent(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")

	first, err := tr.roster.RecordUpload(ctx, ann.ID, models.FormInsurance)
	require.NoError(t, err)
	eventsBefore, err := tr.activity.List(ctx, 100)
	require.NoError(t, err)

	second, err := tr.roster.RecordUpload(ctx, ann.ID, models.FormInsurance)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	eventsAfter, err := tr.activity.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, eventsAfter, len(eventsBefore))
}

func TestStudentServiceRecordUploadAfterReadyConflicts(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")
	tr.completePaperwork(t, ann.ID)

	_, err := tr.roster.RecordUpload(ctx, ann.ID, models.FormInsurance)
	assertCode(t, err, appErrors.ErrConflict.Code)
}

func TestStudentServiceRecordUploadErrors(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")

	_, err := tr.roster.RecordUpload(ctx, "missing", models.FormInsurance)
	assertCode(t, err, appErrors.ErrNotFound.Code)

	_, err = tr.roster.RecordUpload(ctx, ann.ID, models.FormKey("passport"))
	assertCode(t, err, appErrors.ErrValidation.Code)

	stored, err := tr.roster.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusNotStarted, stored.Status)
}

func TestStudentServiceListByStatusReflectsCurrentState(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")
	bo := tr.addStudent(t, "Bo")
	tr.addStudent(t, "Cy")

	seq := tr.roster.ListByStatus(ctx, models.StudentStatusNotStarted)
	names := func() []string {
		var out []string
		for student := range seq {
			out = append(out, student.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Ann", "Bo", "Cy"}, names())

	_, err := tr.roster.RecordUpload(ctx, bo.ID, models.FormDriverLicense)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Cy"}, names(), "restarted sequence sees the upload")

	var inProgress []string
	for student := range tr.roster.ListByStatus(ctx, models.StudentStatusInProgress) {
		inProgress = append(inProgress, student.ID)
	}
	assert.Equal(t, []string{bo.ID}, inProgress)

	var first string
	for student := range seq {
		first = student.ID
		break
	}
	assert.Equal(t, ann.ID, first)
}

func TestStudentServiceListByStatusObservesMutationDuringIteration(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	tr.addStudent(t, "Ann")
	bo := tr.addStudent(t, "Bo")

	var seen []string
	for student := range tr.roster.ListByStatus(ctx, models.StudentStatusNotStarted) {
		seen = append(seen, student.Name)
		if student.Name == "Ann" {
			_, err := tr.roster.RecordUpload(ctx, bo.ID, models.FormInsurance)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, []string{"Ann"}, seen)
}

func TestStudentServiceListValidatesStatus(t *testing.T) {
	tr := newTestRoster(t)
	tr.addStudent(t, "Ann")

	_, _, err := tr.roster.List(context.Background(), models.StudentFilter{Status: "graduated"})
	assertCode(t, err, appErrors.ErrValidation.Code)

	students, pagination, err := tr.roster.List(context.Background(), models.StudentFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestStudentServiceRegisterVehicle(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")

	student, err := tr.roster.RegisterVehicle(ctx, ann.ID, RegisterVehicleRequest{
		Make: "Honda", Model: "Civic", Year: "2019", Color: "Blue", Plate: " abc123 ",
	})
	require.NoError(t, err)
	require.NotNil(t, student.VehicleInfo)
	assert.Equal(t, "ABC123", student.VehicleInfo.Plate)
	assert.Equal(t, models.StudentStatusNotStarted, student.Status)

	_, err = tr.roster.RegisterVehicle(ctx, ann.ID, RegisterVehicleRequest{Make: "Honda", Model: "Civic", Year: "19", Color: "Blue", Plate: "X"})
	assertCode(t, err, appErrors.ErrValidation.Code)

	_, err = tr.roster.RegisterVehicle(ctx, "missing", RegisterVehicleRequest{Make: "Honda", Model: "Civic", Year: "2019", Color: "Blue", Plate: "X"})
	assertCode(t, err, appErrors.ErrNotFound.Code)
}

func TestStudentServiceRegisterVehicleAfterAssignmentConflicts(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")
	tr.completePaperwork(t, ann.ID)
	_, err := tr.assignment.Assign(ctx, "L3", AssignSpotRequest{StudentID: ann.ID})
	require.NoError(t, err)

	_, err = tr.roster.RegisterVehicle(ctx, ann.ID, RegisterVehicleRequest{Make: "Kia", Model: "Rio", Year: "2020", Color: "Red", Plate: "X1"})
	assertCode(t, err, appErrors.ErrConflict.Code)
}

func TestStudentServiceEligiblePool(t *testing.T) {
	tr := newTestRoster(t)
	ctx := context.Background()
	ann := tr.addStudent(t, "Ann")
	bo := tr.addStudent(t, "Bo")
	tr.addStudent(t, "Cy")
	tr.completePaperwork(t, ann.ID)
	tr.completePaperwork(t, bo.ID)
	_, err := tr.assignment.Assign(ctx, "T1", AssignSpotRequest{StudentID: bo.ID})
	require.NoError(t, err)

	pool, err := tr.roster.Eligible(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, ann.ID, pool[0].ID)
}

func TestStudentServiceForms(t *testing.T) {
	tr := newTestRoster(t)
	forms := tr.roster.Forms()

	require.Len(t, forms, 4)
	assert.Equal(t, "Driver's License", forms[0].Label)
}
