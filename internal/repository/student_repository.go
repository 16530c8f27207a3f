package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/parking-permit-api/internal/models"
)

// StudentRepository manages the roster table of the in-memory store.
type StudentRepository struct {
	db  *Store
	now func() time.Time
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *Store) *StudentRepository {
	return &StudentRepository{db: db, now: time.Now}
}

// Create appends a student to the roster, assigning an id and timestamps when missing.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if _, exists := r.db.students[student.ID]; exists {
		return ErrDuplicateID
	}
	now := r.now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.Forms == nil {
		student.Forms = models.NewForms()
	}
	student.Refresh()

	stored := student.Clone()
	r.db.students[stored.ID] = &stored
	r.db.studentOrder = append(r.db.studentOrder, stored.ID)
	r.db.touch()
	return nil
}

// FindByID returns a copy of the student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	student, ok := r.db.students[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	clone := student.Clone()
	return &clone, nil
}

// List returns students matching the filter in insertion order along with the total match count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	students := make([]models.Student, 0, size)
	total := 0
	for _, id := range r.db.studentOrder {
		student := r.db.students[id]
		if filter.Status != "" && student.Status != filter.Status {
			continue
		}
		if search != "" && !matchesSearch(student, search) {
			continue
		}
		if total >= offset && len(students) < size {
			students = append(students, student.Clone())
		}
		total++
	}
	return students, total, nil
}

// Next returns the first student at or after cursor accepted by match, and the cursor to resume from.
// The lock is released before returning so callers may mutate the store between calls.
func (r *StudentRepository) Next(ctx context.Context, cursor int, match func(*models.Student) bool) (models.Student, int, bool) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for i := cursor; i < len(r.db.studentOrder); i++ {
		student := r.db.students[r.db.studentOrder[i]]
		if match(student) {
			return student.Clone(), i + 1, true
		}
	}
	return models.Student{}, len(r.db.studentOrder), false
}

// Update applies fn to a copy of the student under the write lock and commits it when fn succeeds.
// Status is re-derived before the copy is stored.
func (r *StudentRepository) Update(ctx context.Context, id string, fn func(*models.Student) error) (*models.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.students[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	draft := current.Clone()
	if err := fn(&draft); err != nil {
		return nil, err
	}
	draft.ID = current.ID
	draft.UpdatedAt = r.now().UTC()
	draft.Refresh()
	r.db.students[id] = &draft
	r.db.touch()

	result := draft.Clone()
	return &result, nil
}

// CountByStatus returns the number of students per status bucket.
func (r *StudentRepository) CountByStatus(ctx context.Context) (map[models.StudentStatus]int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.countByStatus(), nil
}

// Eligible returns the eligibility pool in insertion order.
func (r *StudentRepository) Eligible(ctx context.Context) ([]models.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	pool := make([]models.Student, 0)
	for _, id := range r.db.studentOrder {
		if student := r.db.students[id]; student.Eligible() {
			pool = append(pool, student.Clone())
		}
	}
	return pool, nil
}

func matchesSearch(student *models.Student, search string) bool {
	return strings.Contains(strings.ToLower(student.Name), search) ||
		strings.Contains(strings.ToLower(student.Email), search)
}
