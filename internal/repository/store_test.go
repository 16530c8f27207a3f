package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/parking-permit-api/internal/models"
)

func newTestStore(t *testing.T) (*Store, *StudentRepository, *SpotRepository) {
	t.Helper()
	db := NewStore(models.DefaultLotLayout(), 10)
	return db, NewStudentRepository(db), NewSpotRepository(db)
}

func readyStudent(name string) *models.Student {
	forms := models.NewForms()
	for _, key := range models.FormKeys {
		forms.MarkUploaded(key)
	}
	return &models.Student{
		Name:        name,
		Email:       name + "@school.edu",
		Grade:       "12",
		Forms:       forms,
		VehicleInfo: &models.VehicleInfo{Make: "Honda", Model: "Fit", Year: "2018", Color: "Red", Plate: name},
	}
}

func occupy(spot *models.ParkingSpot, student *models.Student) error {
	if spot.Occupied {
		return errors.New("occupied")
	}
	spotID := spot.ID
	spot.Occupy(student.ID, student.Name)
	student.ParkingSpot = &spotID
	return nil
}

func TestStudentRepositoryCreateAndFind(t *testing.T) {
	_, repo, _ := newTestStore(t)
	ctx := context.Background()

	student := &models.Student{Name: "Ann", Email: "ann@school.edu", Grade: "11"}
	require.NoError(t, repo.Create(ctx, student))
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, models.StudentStatusNotStarted, student.Status)
	assert.Len(t, student.Forms, len(models.FormKeys))

	found, err := repo.FindByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", found.Name)

	found.Name = "mutated"
	again, _ := repo.FindByID(ctx, student.ID)
	assert.Equal(t, "Ann", again.Name)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.ErrorIs(t, repo.Create(ctx, &models.Student{ID: student.ID}), ErrDuplicateID)
}

func TestStudentRepositoryListFiltersAndPaginates(t *testing.T) {
	_, repo, _ := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"ann", "bob", "cid"} {
		require.NoError(t, repo.Create(ctx, &models.Student{Name: name, Email: name + "@x.io", Grade: "9"}))
	}
	require.NoError(t, repo.Create(ctx, readyStudent("dee")))

	all, total, err := repo.List(ctx, models.StudentFilter{PageSize: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, all, 2)
	assert.Equal(t, "cid", all[0].Name)

	ready, total, err := repo.List(ctx, models.StudentFilter{Status: models.StudentStatusReady})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "dee", ready[0].Name)

	found, total, _ := repo.List(ctx, models.StudentFilter{Search: "BOB@"})
	assert.Equal(t, 1, total)
	assert.Equal(t, "bob", found[0].Name)
}

func TestStudentRepositoryUpdateRollsBackOnError(t *testing.T) {
	_, repo, _ := newTestStore(t)
	ctx := context.Background()
	student := &models.Student{Name: "Ann", Email: "ann@x.io", Grade: "9"}
	require.NoError(t, repo.Create(ctx, student))

	_, err := repo.Update(ctx, student.ID, func(s *models.Student) error {
		s.Forms.MarkUploaded(models.FormInsurance)
		return errors.New("nope")
	})
	require.Error(t, err)
	unchanged, _ := repo.FindByID(ctx, student.ID)
	assert.False(t, unchanged.Forms.Uploaded(models.FormInsurance))

	updated, err := repo.Update(ctx, student.ID, func(s *models.Student) error {
		s.Forms.MarkUploaded(models.FormInsurance)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusInProgress, updated.Status)

	_, err = repo.Update(ctx, "missing", func(*models.Student) error { return nil })
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestStudentRepositoryNextResumes(t *testing.T) {
	_, repo, _ := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.Student{Name: name, Email: name + "@x.io", Grade: "9"}))
	}
	notB := func(s *models.Student) bool { return s.Name != "b" }

	first, cursor, ok := repo.Next(ctx, 0, notB)
	require.True(t, ok)
	assert.Equal(t, "a", first.Name)

	second, cursor, ok := repo.Next(ctx, cursor, notB)
	require.True(t, ok)
	assert.Equal(t, "c", second.Name)

	_, _, ok = repo.Next(ctx, cursor, notB)
	assert.False(t, ok)
}

func TestSpotRepositoryAssignCommitsBoth(t *testing.T) {
	_, students, spots := newTestStore(t)
	ctx := context.Background()
	student := readyStudent("ann")
	require.NoError(t, students.Create(ctx, student))

	spot, assigned, err := spots.Assign(ctx, "B1-1", student.ID, occupy)
	require.NoError(t, err)
	assert.True(t, spot.Occupied)
	assert.Equal(t, "ann", *spot.Student)
	assert.Equal(t, models.StudentStatusAssigned, assigned.Status)

	stored, _ := students.FindByID(ctx, student.ID)
	assert.Equal(t, "B1-1", *stored.ParkingSpot)

	stats, err := spots.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 199, stats.Total)
	assert.Equal(t, 1, stats.Occupied)
	assert.Equal(t, 198, stats.Available)
	assert.Equal(t, 4, stats.HandicappedAvailable)

	_, _, err = spots.Assign(ctx, "Z9", student.ID, occupy)
	assert.ErrorIs(t, err, ErrSpotNotFound)
	_, _, err = spots.Assign(ctx, "T1", "missing", occupy)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestSpotRepositoryAssignSingleWinner(t *testing.T) {
	_, students, spots := newTestStore(t)
	ctx := context.Background()

	const contenders = 16
	ids := make([]string, contenders)
	for i := range ids {
		student := readyStudent(string(rune('a' + i)))
		require.NoError(t, students.Create(ctx, student))
		ids[i] = student.ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, _, err := spots.Assign(ctx, "C1-1", id, occupy); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	spot, _ := spots.FindByID(ctx, "C1-1")
	assert.True(t, spot.Occupied)
	require.NotNil(t, spot.StudentID)
	winner, _ := students.FindByID(ctx, *spot.StudentID)
	assert.Equal(t, *spot.Student, winner.Name)
}

func TestActivityRepositoryBoundedNewestFirst(t *testing.T) {
	db, _, _ := newTestStore(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.Append(ctx, &models.ActivityEvent{Type: models.ActivityFormUploaded, Detail: string(rune('a' + i))}))
	}

	events, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 10)
	assert.Equal(t, "l", events[0].Detail)
	assert.Equal(t, "c", events[9].Detail)
	assert.NotEmpty(t, events[0].ID)

	latest, _ := repo.List(ctx, 3)
	assert.Len(t, latest, 3)
}

func TestSeedDemo(t *testing.T) {
	db, students, spots := newTestStore(t)
	ctx := context.Background()

	n, err := SeedDemo(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	counts, err := students.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StudentStatusNotStarted])
	assert.Equal(t, 1, counts[models.StudentStatusInProgress])
	assert.Equal(t, 3, counts[models.StudentStatusReady])
	assert.Equal(t, 1, counts[models.StudentStatusAssigned])

	pool, err := students.Eligible(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 3)

	spot, err := spots.FindByID(ctx, "B1-5")
	require.NoError(t, err)
	assert.True(t, spot.Occupied)
	assert.Equal(t, "Nathan Williams", *spot.Student)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "permits", nil)
	ctx := context.Background()

	var dest map[string]int
	assert.Error(t, repo.Get(ctx, "dash:summary", &dest))
	assert.NoError(t, repo.Set(ctx, "dash:summary", map[string]int{"a": 1}, 0))
	assert.NoError(t, repo.DeleteByPattern(ctx, "dash:*"))
	assert.NoError(t, repo.Close())
	assert.False(t, repo.Connected())
	assert.Equal(t, "permits:dash:summary", repo.key("dash:summary"))
}

func TestStoreGenerationAdvancesOnCommittedWrites(t *testing.T) {
	db, students, spots := newTestStore(t)
	ctx := context.Background()
	start := db.Generation()

	student := readyStudent("ann")
	require.NoError(t, students.Create(ctx, student))
	afterCreate := db.Generation()
	assert.Greater(t, afterCreate, start)

	_, err := students.Update(ctx, student.ID, func(*models.Student) error { return errors.New("rejected") })
	require.Error(t, err)
	assert.Equal(t, afterCreate, db.Generation(), "rolled back update must not advance")

	_, err = students.Update(ctx, student.ID, func(s *models.Student) error { s.Grade = "11"; return nil })
	require.NoError(t, err)
	afterUpdate := db.Generation()
	assert.Greater(t, afterUpdate, afterCreate)

	_, _, err = spots.Assign(ctx, "B1-1", student.ID, occupy)
	require.NoError(t, err)
	assert.Greater(t, db.Generation(), afterUpdate)

	_, _, err = spots.Assign(ctx, "B1-1", student.ID, occupy)
	require.Error(t, err)
}

func TestStoreSnapshotIsTaggedWithGeneration(t *testing.T) {
	db, students, spots := newTestStore(t)
	ctx := context.Background()

	ann := readyStudent("ann")
	require.NoError(t, students.Create(ctx, ann))
	require.NoError(t, students.Create(ctx, &models.Student{Name: "Bo", Email: "bo@school.edu", Grade: "10"}))

	snapshot, err := db.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, db.Generation(), snapshot.Generation)
	assert.Equal(t, 1, snapshot.ByStatus[models.StudentStatusReady])
	assert.Equal(t, 1, snapshot.ByStatus[models.StudentStatusNotStarted])
	assert.Equal(t, 1, snapshot.Eligible)
	assert.Equal(t, 0, snapshot.Lot.Occupied)

	_, _, err = spots.Assign(ctx, "B1-1", ann.ID, occupy)
	require.NoError(t, err)
	assert.NotEqual(t, snapshot.Generation, db.Generation())

	after, err := db.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Eligible)
	assert.Equal(t, 1, after.Lot.Occupied)
}
