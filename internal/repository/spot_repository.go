package repository

import (
	"context"
	"time"

	"github.com/noah-isme/parking-permit-api/internal/models"
)

// LotStats summarises occupancy of the catalog.
type LotStats struct {
	Total                int `json:"total"`
	Occupied             int `json:"occupied"`
	Available            int `json:"available"`
	HandicappedAvailable int `json:"handicappedAvailable"`
}

// AssignFunc validates a pending assignment and mutates the copies it receives.
type AssignFunc func(spot *models.ParkingSpot, student *models.Student) error

// SpotRepository manages the spot catalog of the in-memory store.
type SpotRepository struct {
	db  *Store
	now func() time.Time
}

// NewSpotRepository constructs a SpotRepository.
func NewSpotRepository(db *Store) *SpotRepository {
	return &SpotRepository{db: db, now: time.Now}
}

// List returns spots matching the filter in layout order.
func (r *SpotRepository) List(ctx context.Context, filter models.SpotFilter) ([]models.ParkingSpot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	spots := make([]models.ParkingSpot, 0, len(r.db.spotOrder))
	for _, id := range r.db.spotOrder {
		spot := r.db.spots[id]
		if filter.Matches(*spot) {
			spots = append(spots, spot.Clone())
		}
	}
	return spots, nil
}

// FindByID returns a copy of the spot.
func (r *SpotRepository) FindByID(ctx context.Context, id string) (*models.ParkingSpot, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	spot, ok := r.db.spots[id]
	if !ok {
		return nil, ErrSpotNotFound
	}
	clone := spot.Clone()
	return &clone, nil
}

// Assign loads the spot and the student under one write lock, lets fn validate and mutate copies
// of both, and commits the pair only when fn succeeds.
func (r *SpotRepository) Assign(ctx context.Context, spotID, studentID string, fn AssignFunc) (*models.ParkingSpot, *models.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	currentSpot, ok := r.db.spots[spotID]
	if !ok {
		return nil, nil, ErrSpotNotFound
	}
	currentStudent, ok := r.db.students[studentID]
	if !ok {
		return nil, nil, ErrStudentNotFound
	}

	spot := currentSpot.Clone()
	student := currentStudent.Clone()
	if err := fn(&spot, &student); err != nil {
		return nil, nil, err
	}
	spot.ID = currentSpot.ID
	spot.Handicapped = currentSpot.Handicapped
	student.ID = currentStudent.ID
	student.UpdatedAt = r.now().UTC()
	student.Refresh()

	r.db.spots[spotID] = &spot
	r.db.students[studentID] = &student
	r.db.touch()

	spotOut, studentOut := spot.Clone(), student.Clone()
	return &spotOut, &studentOut, nil
}

// Stats computes occupancy totals.
func (r *SpotRepository) Stats(ctx context.Context) (LotStats, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.lotStats(), nil
}
