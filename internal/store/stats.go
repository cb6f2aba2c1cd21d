package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Stats holds the aggregate counts kept in the stats file. Everything here
// is derivable from the index; the file is regenerated after every
// mutating index operation.
type Stats struct {
	TotalMemories int            `json:"total_memories"`
	ByType        map[string]int `json:"by_type"`
	ByProject     map[string]int `json:"by_project"`
	LastUpdated   time.Time      `json:"last_updated"`
}

func (s *FileStore) computeStatsLocked() *Stats {
	st := &Stats{
		TotalMemories: len(s.idx.byID),
		ByType:        make(map[string]int),
		ByProject:     make(map[string]int),
		LastUpdated:   time.Now().UTC(),
	}
	for _, e := range s.idx.byID {
		st.ByType[string(e.Type)]++
		if e.ProjectID != "" {
			st.ByProject[e.ProjectID]++
		}
	}
	return st
}

// writeStatsLocked regenerates the stats file from the index. Callers must
// hold s.mu for writing.
func (s *FileStore) writeStatsLocked() error {
	data, err := json.MarshalIndent(s.computeStatsLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(s.statsPath(), data, 0o644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

// Stats returns the persisted aggregate counts, recomputing them from the
// index when the stats file is missing or unreadable.
func (s *FileStore) Stats(ctx context.Context) (*Stats, error) {
	data, err := os.ReadFile(s.statsPath())
	if err == nil {
		var st Stats
		if err := json.Unmarshal(data, &st); err == nil {
			return &st, nil
		}
		s.logger.Warn("stats file corrupted, recomputing", "path", s.statsPath())
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.computeStatsLocked(), nil
}
