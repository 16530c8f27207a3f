package service

import (
	"context"

	"github.com/noah-isme/parking-permit-api/internal/models"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

const defaultActivityPage = 50

type activityLister interface {
	List(ctx context.Context, limit int) ([]models.ActivityEvent, error)
}

// ActivityService exposes the operator activity log.
type ActivityService struct {
	repo activityLister
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityLister) *ActivityService {
	return &ActivityService{repo: repo}
}

// Recent returns up to limit events, newest first.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		limit = defaultActivityPage
	}
	events, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return events, nil
}
