package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/parking-permit-api/internal/models"
)

// ActivityRepository keeps the bounded operator activity log.
type ActivityRepository struct {
	db  *Store
	now func() time.Time
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *Store) *ActivityRepository {
	return &ActivityRepository{db: db, now: time.Now}
}

// Append records an event, dropping the oldest entries beyond the store limit.
func (r *ActivityRepository) Append(ctx context.Context, event *models.ActivityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now().UTC()
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.events = append(r.db.events, *event)
	if overflow := len(r.db.events) - r.db.eventLimit; overflow > 0 {
		r.db.events = append(r.db.events[:0:0], r.db.events[overflow:]...)
	}
	return nil
}

// List returns up to limit events, newest first. A non-positive limit returns everything retained.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]models.ActivityEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := len(r.db.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	events := make([]models.ActivityEvent, 0, limit)
	for i := n - 1; i >= 0 && len(events) < limit; i-- {
		events = append(events, r.db.events[i])
	}
	return events, nil
}
