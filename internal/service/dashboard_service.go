package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/internal/dto"
	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/repository"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

const (
	dashboardCacheKey     = "dash:summary"
	dashboardCachePattern = "dash:*"
)

type summarySource interface {
	Snapshot(ctx context.Context) (repository.Snapshot, error)
	Generation() uint64
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the dashboard summary and caches it between mutations.
type DashboardService struct {
	source summarySource
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Source summarySource
	Cache  *CacheService
	Logger *zap.Logger
	Config DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		source: params.Source,
		cache:  params.Cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Summary returns the dashboard summary and whether it was served from cache. A summary is only
// cached if no roster or lot write happened since it was read, so a concurrent mutation's
// invalidation is never overwritten.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	var cached dto.DashboardSummary
	hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read failed, composing fresh summary", zap.Error(err))
	} else if hit {
		return &cached, true, nil
	}

	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read dashboard figures")
	}
	summary := s.compose(snapshot)

	if !s.cache.Enabled() {
		return summary, false, nil
	}
	if s.source.Generation() != snapshot.Generation {
		s.logger.Debug("roster changed while composing, summary not cached")
		return summary, false, nil
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", dashboardCacheKey), zap.Error(err))
		return summary, false, nil
	}
	if s.source.Generation() != snapshot.Generation {
		s.cache.Invalidate(ctx, dashboardCachePattern)
	}
	return summary, false, nil
}

func (s *DashboardService) compose(snapshot repository.Snapshot) *dto.DashboardSummary {
	roster := dto.RosterSummary{ByStatus: make(map[string]int, len(models.StudentStatuses)), Eligible: snapshot.Eligible}
	for _, status := range models.StudentStatuses {
		n := snapshot.ByStatus[status]
		roster.ByStatus[string(status)] = n
		roster.Total += n
	}
	roster.Pending = snapshot.ByStatus[models.StudentStatusNotStarted] + snapshot.ByStatus[models.StudentStatusInProgress]

	stats := snapshot.Lot
	lot := dto.LotSummary{
		Total:                stats.Total,
		Occupied:             stats.Occupied,
		Available:            stats.Available,
		HandicappedAvailable: stats.HandicappedAvailable,
	}
	if stats.Total > 0 {
		lot.OccupancyRate = float64(stats.Occupied) / float64(stats.Total)
	}

	return &dto.DashboardSummary{Roster: roster, Lot: lot, GeneratedAt: s.now().UTC()}
}
