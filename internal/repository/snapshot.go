package repository

import (
	"context"

	"github.com/noah-isme/parking-permit-api/internal/models"
)

// Snapshot holds roster and lot totals read under a single lock, tagged with the store generation
// they were read at.
type Snapshot struct {
	Generation uint64
	ByStatus   map[models.StudentStatus]int
	Eligible   int
	Lot        LotStats
}

// Snapshot reads every dashboard figure in one consistent view.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eligible := 0
	for _, student := range s.students {
		if student.Eligible() {
			eligible++
		}
	}
	return Snapshot{
		Generation: s.generation,
		ByStatus:   s.countByStatus(),
		Eligible:   eligible,
		Lot:        s.lotStats(),
	}, nil
}

func (s *Store) countByStatus() map[models.StudentStatus]int {
	counts := make(map[models.StudentStatus]int, len(models.StudentStatuses))
	for _, status := range models.StudentStatuses {
		counts[status] = 0
	}
	for _, student := range s.students {
		counts[student.Status]++
	}
	return counts
}

func (s *Store) lotStats() LotStats {
	stats := LotStats{Total: len(s.spots)}
	for _, spot := range s.spots {
		if spot.Occupied {
			stats.Occupied++
			continue
		}
		if spot.Handicapped {
			stats.HandicappedAvailable++
		}
	}
	stats.Available = stats.Total - stats.Occupied
	return stats
}
