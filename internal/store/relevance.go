package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/memkeep/memkeep/internal/model"
)

// decayEpsilon is the minimum score change worth persisting; smaller
// deltas are dropped to avoid needless record writes.
const decayEpsilon = 0.01

// decayedScore applies the staleness decay: the old score halves on the
// configured timescale since last access, while a log-scaled access-count
// term lets frequently-retrieved memories resist decay.
func (s *FileStore) decayedScore(old float64, accessCount int, daysSinceAccess float64) float64 {
	decayed := old * math.Exp(-daysSinceAccess/s.cfg.DecayHalfLifeDays)
	usage := math.Log10(float64(accessCount)+1) * 0.1
	return model.Clamp01(decayed + usage)
}

// Decay recomputes the relevance score of every non-archived memory and
// persists scores that moved by more than the epsilon. The pass runs
// exclusively: no concurrent mutation is admitted while it scans.
func (s *FileStore) Decay(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	changed := 0

	for id, entry := range s.idx.byID {
		m, err := s.loadLocked(id)
		if err != nil {
			s.logger.Warn("skipping unreadable record in decay pass", "id", id, "error", err)
			continue
		}
		if m.Archived {
			continue
		}

		ref := m.Created
		if m.LastAccessed != nil {
			ref = *m.LastAccessed
		}
		days := now.Sub(ref).Hours() / 24

		next := s.decayedScore(m.RelevanceScore, m.AccessCount, days)
		if math.Abs(next-m.RelevanceScore) <= decayEpsilon {
			continue
		}

		m.RelevanceScore = next
		if err := s.writeRecord(m, entry.Location); err != nil {
			return changed, fmt.Errorf("decay: %w", err)
		}
		changed++
	}

	s.logger.Info("decay pass complete", "changed", changed)
	return changed, nil
}

// Archive soft-deletes memories that are old AND low-relevance AND rarely
// accessed. The criteria are conjunctive; any one alone is not enough.
func (s *FileStore) Archive(ctx context.Context, daysOld int) (int, error) {
	if daysOld <= 0 {
		return 0, fmt.Errorf("archive: daysOld must be positive, got %d", daysOld)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -daysOld)
	archived := 0

	for id, entry := range s.idx.byID {
		m, err := s.loadLocked(id)
		if err != nil {
			s.logger.Warn("skipping unreadable record in archive pass", "id", id, "error", err)
			continue
		}
		if m.Archived || !m.Created.Before(cutoff) {
			continue
		}
		if m.RelevanceScore >= s.cfg.ArchiveMinScore || m.AccessCount >= s.cfg.ArchiveMinAccess {
			continue
		}

		m.Archived = true
		if err := s.writeRecord(m, entry.Location); err != nil {
			return archived, fmt.Errorf("archive: %w", err)
		}
		archived++
	}

	s.logger.Info("archive pass complete", "archived", archived, "days_old", daysOld)
	return archived, nil
}
