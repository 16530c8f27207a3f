package repository

import (
	"errors"
	"sync"

	"github.com/noah-isme/parking-permit-api/internal/models"
)

var (
	// ErrStudentNotFound is returned when no student matches the given id.
	ErrStudentNotFound = errors.New("student not found")
	// ErrSpotNotFound is returned when no spot matches the given id.
	ErrSpotNotFound = errors.New("parking spot not found")
	// ErrDuplicateID is returned when a record id is already taken.
	ErrDuplicateID = errors.New("duplicate id")
)

const defaultEventLimit = 500

// Store is the in-memory database shared by the roster and the lot.
// A single lock guards every table so cross-table updates are atomic.
type Store struct {
	mu sync.RWMutex

	students     map[string]*models.Student
	studentOrder []string

	spots     map[string]*models.ParkingSpot
	spotOrder []string

	events     []models.ActivityEvent
	eventLimit int

	// generation advances on every roster or lot write.
	generation uint64
}

// NewStore builds an empty roster and a free spot catalog generated from layout.
func NewStore(layout models.LotLayout, eventLimit int) *Store {
	if eventLimit <= 0 {
		eventLimit = defaultEventLimit
	}
	catalog := layout.Spots()
	s := &Store{
		students:   make(map[string]*models.Student),
		spots:      make(map[string]*models.ParkingSpot, len(catalog)),
		spotOrder:  make([]string, 0, len(catalog)),
		eventLimit: eventLimit,
	}
	for i := range catalog {
		spot := catalog[i]
		s.spots[spot.ID] = &spot
		s.spotOrder = append(s.spotOrder, spot.ID)
	}
	return s
}

// Generation returns the current mutation counter. Two equal readings mean no roster or lot write
// happened in between.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// touch must be called with mu held for writing.
func (s *Store) touch() {
	s.generation++
}
