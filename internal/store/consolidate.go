package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/memkeep/memkeep/internal/model"
	"github.com/memkeep/memkeep/internal/textsim"
)

// Consolidate collapses near-duplicate memories within one index bucket.
// When two memories exceed the similarity threshold the higher-confidence
// one survives (tie-break: higher access count), the tags are unioned, and
// the loser is deleted. The merge is lossy: the discarded memory's content
// is gone, only its id is reported so callers can fix external references.
func (s *FileStore) Consolidate(ctx context.Context, scope ConsolidateScope) (*ConsolidateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.loadScopeLocked(scope)

	// Oldest first, so the earliest observation anchors each cluster.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Created.Before(candidates[j].Created)
	})

	var kept []model.Memory
	var discarded []string
	merged := make(map[string]bool) // kept ids whose tags changed

	for _, cand := range candidates {
		matched := false
		for i := range kept {
			sim := textsim.Similarity(mergeText(kept[i]), mergeText(cand))
			if sim < s.cfg.SimilarityThreshold {
				continue
			}

			winner, loser := pickWinner(kept[i], cand)
			winner.Tags = unionTags(kept[i].Tags, cand.Tags)
			kept[i] = winner
			merged[winner.ID] = true
			discarded = append(discarded, loser.ID)
			s.logger.Debug("consolidating near-duplicates",
				"kept", winner.ID, "discarded", loser.ID, "similarity", sim)
			matched = true
			break
		}
		if !matched {
			kept = append(kept, cand)
		}
	}

	if len(discarded) == 0 {
		return &ConsolidateResult{Kept: kept, DiscardedIDs: []string{}}, nil
	}

	// Persist tag unions on the survivors, then drop the losers.
	now := time.Now().UTC()
	for i := range kept {
		if !merged[kept[i].ID] {
			continue
		}
		entry, ok := s.idx.byID[kept[i].ID]
		if !ok {
			continue
		}
		kept[i].Supersedes = kept[i].ID
		kept[i].Version++
		kept[i].LastUpdated = &now
		if err := s.writeRecord(kept[i], entry.Location); err != nil {
			return nil, fmt.Errorf("consolidate: %w", err)
		}
		s.idx.remove(kept[i].ID)
		s.idx.add(indexEntryFor(kept[i], entry.Location))
	}

	for _, id := range discarded {
		entry, ok := s.idx.byID[id]
		if !ok {
			continue
		}
		if err := removeRecordFile(s.recordPath(entry.Location)); err != nil {
			return nil, fmt.Errorf("consolidate: %w", err)
		}
		s.cache.Remove(id)
		s.idx.remove(id)
	}

	if err := s.saveIndexLocked(); err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}

	s.logger.Info("consolidation complete", "kept", len(kept), "discarded", len(discarded))
	return &ConsolidateResult{Kept: kept, DiscardedIDs: discarded}, nil
}

// loadScopeLocked loads the active memories of the narrowest bucket the
// scope names: type, then tag, then project; an empty scope scans the
// whole corpus. Unreadable records and archived memories are skipped.
func (s *FileStore) loadScopeLocked(scope ConsolidateScope) []model.Memory {
	var ids []string
	switch {
	case scope.Type != "":
		ids = s.idx.byType[scope.Type]
	case scope.Tag != "":
		ids = s.idx.byTag[scope.Tag]
	case scope.ProjectID != "":
		ids = s.idx.byProject[scope.ProjectID]
	default:
		ids = s.idx.temporalIDs()
	}

	memories := make([]model.Memory, 0, len(ids))
	for _, id := range ids {
		m, err := s.loadLocked(id)
		if err != nil {
			s.logger.Warn("skipping unreadable record in consolidation", "id", id, "error", err)
			continue
		}
		if m.Archived {
			continue
		}
		memories = append(memories, m)
	}
	return memories
}

func removeRecordFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func mergeText(m model.Memory) string {
	return m.Summary + " " + m.Content
}

// pickWinner keeps the higher-confidence memory, breaking ties on access
// count and then on age (the original observation wins).
func pickWinner(a, b model.Memory) (winner, loser model.Memory) {
	if a.Confidence != b.Confidence {
		if a.Confidence > b.Confidence {
			return a, b
		}
		return b, a
	}
	if a.AccessCount != b.AccessCount {
		if a.AccessCount > b.AccessCount {
			return a, b
		}
		return b, a
	}
	if a.Created.After(b.Created) {
		return b, a
	}
	return a, b
}

func unionTags(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, tags := range [][]string{a, b} {
		for _, t := range tags {
			key := strings.ToLower(strings.TrimSpace(t))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}
