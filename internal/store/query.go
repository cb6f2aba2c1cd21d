package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/memkeep/memkeep/internal/model"
)

func validateQuery(p QueryParams) error {
	switch p.SortBy {
	case "", SortRelevance, SortRecency, SortAccessCount:
	default:
		return fmt.Errorf("invalid sort order %q", p.SortBy)
	}
	if p.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", p.Limit)
	}
	if p.Filters.MinRelevance < 0 || p.Filters.MinRelevance > 1 {
		return fmt.Errorf("min relevance must be in [0,1], got %v", p.Filters.MinRelevance)
	}
	for _, t := range p.Filters.Types {
		if !model.ValidTypes[t] {
			return fmt.Errorf("invalid type filter %q", t)
		}
	}
	if !p.Filters.CreatedAfter.IsZero() && !p.Filters.CreatedBefore.IsZero() &&
		p.Filters.CreatedAfter.After(p.Filters.CreatedBefore) {
		return fmt.Errorf("date range start is after end")
	}
	return nil
}

// Query runs the retrieval pipeline: index candidate selection, record
// load, secondary filters, free-text search, context boosting, sort, and
// pagination, in that order. Cheap index lookups eliminate the bulk of
// candidates before any full-record text work.
//
// Queries are pure reads: they never touch access tracking and never
// persist the boosted score.
func (s *FileStore) Query(ctx context.Context, p QueryParams) ([]QueryResult, error) {
	if err := validateQuery(p); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = SortRelevance
	}
	limit := p.Limit
	if limit == 0 {
		limit = s.cfg.DefaultQueryLimit
	}

	s.mu.RLock()
	ids := s.idx.candidates(p.Filters)
	s.mu.RUnlock()

	results := make([]QueryResult, 0, len(ids))
	for _, id := range ids {
		m, err := s.load(id)
		if err != nil {
			// Index/store divergence is tolerated as a non-fatal
			// inconsistency during bulk reads.
			s.logger.Debug("skipping unreadable record in query", "id", id, "error", err)
			continue
		}

		if !matchesSecondary(m, p.Filters) {
			continue
		}
		if p.SearchText != "" && !matchesSearch(m, p.SearchText) {
			continue
		}

		score := m.RelevanceScore
		if p.Context != nil {
			score = model.Clamp01(score + contextBoost(m, p.Context))
		}
		results = append(results, QueryResult{Memory: m, Score: score})
	}

	sortResults(results, sortBy)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// matchesSecondary applies the filters that have no index support.
func matchesSecondary(m model.Memory, f Filters) bool {
	if m.Archived && !f.IncludeArchived {
		return false
	}
	if !f.CreatedAfter.IsZero() && m.Created.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && m.Created.After(f.CreatedBefore) {
		return false
	}
	if f.MinRelevance > 0 && m.RelevanceScore < f.MinRelevance {
		return false
	}
	return true
}

// matchesSearch splits the search text on whitespace and matches if any
// word is a case-insensitive substring of content, summary, or a tag.
// OR semantics: permissive recall over precision.
func matchesSearch(m model.Memory, searchText string) bool {
	content := strings.ToLower(m.Content)
	summary := strings.ToLower(m.Summary)

	for _, word := range strings.Fields(strings.ToLower(searchText)) {
		if strings.Contains(content, word) || strings.Contains(summary, word) {
			return true
		}
		for _, tag := range m.Tags {
			if strings.Contains(strings.ToLower(tag), word) {
				return true
			}
		}
	}
	return false
}

// contextBoost computes the additive boost for the caller's working
// context. Empty context slices contribute zero rather than dividing by
// zero.
func contextBoost(m model.Memory, qc *QueryContext) float64 {
	boost := 0.0

	if qc.CurrentTask != "" && qc.CurrentTask == m.TaskID {
		boost += 0.3
	}

	if snap := m.ContextSnapshot; snap != nil {
		if n := len(qc.CurrentFiles); n > 0 {
			boost += 0.2 * float64(overlap(qc.CurrentFiles, snap.Files)) / float64(n)
		}
		if n := len(qc.RecentActions); n > 0 {
			boost += 0.1 * float64(overlap(qc.RecentActions, snap.RecentActions)) / float64(n)
		}
	}

	return boost
}

func overlap(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	n := 0
	for _, v := range a {
		if set[v] {
			n++
		}
	}
	return n
}

func sortResults(results []QueryResult, sortBy SortBy) {
	switch sortBy {
	case SortRecency:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Created.After(results[j].Created)
		})
	case SortAccessCount:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].AccessCount != results[j].AccessCount {
				return results[i].AccessCount > results[j].AccessCount
			}
			return results[i].Created.After(results[j].Created)
		})
	default: // SortRelevance
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return results[i].Created.After(results[j].Created)
		})
	}
}
