package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/memkeep/memkeep/internal/model"
)

// indexEntry is the per-memory row of the on-disk index file: the fields
// relevant to indexing plus the record's storage location. The index never
// sees memory content.
type indexEntry struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"project,omitempty"`
	Type      model.MemoryType `json:"type"`
	Tags      []string         `json:"tags,omitempty"`
	Entities  []string         `json:"entities,omitempty"`
	Created   time.Time        `json:"created"`
	Location  string           `json:"location"`
}

// indexFile is the persisted shape of the index.
type indexFile struct {
	Entries map[string]indexEntry `json:"entries"`
}

type temporalEntry struct {
	ID      string
	Created time.Time
}

// index maintains the five derived lookup structures over the id space.
// Only byID is persisted; the rest are rebuilt from it on load, so the
// index is always a rebuildable cache and never the source of truth.
type index struct {
	byID      map[string]indexEntry
	byProject map[string][]string
	byType    map[model.MemoryType][]string
	byTag     map[string][]string
	byEntity  map[string][]string
	temporal  []temporalEntry // sorted descending by Created
}

func newIndex() *index {
	return &index{
		byID:      make(map[string]indexEntry),
		byProject: make(map[string][]string),
		byType:    make(map[model.MemoryType][]string),
		byTag:     make(map[string][]string),
		byEntity:  make(map[string][]string),
	}
}

func indexEntryFor(m model.Memory, location string) indexEntry {
	return indexEntry{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		Type:      m.Type,
		Tags:      m.Tags,
		Entities:  m.Entities,
		Created:   m.Created,
		Location:  location,
	}
}

// add inserts or refreshes every structure for one memory. Stale entries
// for the same id are removed first, making the operation idempotent.
func (ix *index) add(e indexEntry) {
	ix.remove(e.ID)
	ix.byID[e.ID] = e

	if e.ProjectID != "" {
		ix.byProject[e.ProjectID] = append(ix.byProject[e.ProjectID], e.ID)
	}
	ix.byType[e.Type] = append(ix.byType[e.Type], e.ID)
	for _, tag := range e.Tags {
		ix.byTag[tag] = append(ix.byTag[tag], e.ID)
	}
	for _, ent := range e.Entities {
		ix.byEntity[ent] = append(ix.byEntity[ent], e.ID)
	}

	// Insert into the temporal list keeping descending created order.
	pos := sort.Search(len(ix.temporal), func(i int) bool {
		return ix.temporal[i].Created.Before(e.Created)
	})
	ix.temporal = append(ix.temporal, temporalEntry{})
	copy(ix.temporal[pos+1:], ix.temporal[pos:])
	ix.temporal[pos] = temporalEntry{ID: e.ID, Created: e.Created}
}

// remove drops the id from every structure. Unknown ids are a no-op.
func (ix *index) remove(id string) {
	e, ok := ix.byID[id]
	if !ok {
		return
	}
	delete(ix.byID, id)

	if e.ProjectID != "" {
		ix.byProject[e.ProjectID] = removeID(ix.byProject[e.ProjectID], id)
		if len(ix.byProject[e.ProjectID]) == 0 {
			delete(ix.byProject, e.ProjectID)
		}
	}
	ix.byType[e.Type] = removeID(ix.byType[e.Type], id)
	if len(ix.byType[e.Type]) == 0 {
		delete(ix.byType, e.Type)
	}
	for _, tag := range e.Tags {
		ix.byTag[tag] = removeID(ix.byTag[tag], id)
		if len(ix.byTag[tag]) == 0 {
			delete(ix.byTag, tag)
		}
	}
	for _, ent := range e.Entities {
		ix.byEntity[ent] = removeID(ix.byEntity[ent], id)
		if len(ix.byEntity[ent]) == 0 {
			delete(ix.byEntity, ent)
		}
	}

	for i, t := range ix.temporal {
		if t.ID == id {
			ix.temporal = append(ix.temporal[:i], ix.temporal[i+1:]...)
			break
		}
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// temporalIDs returns every indexed id, newest first.
func (ix *index) temporalIDs() []string {
	ids := make([]string, len(ix.temporal))
	for i, t := range ix.temporal {
		ids[i] = t.ID
	}
	return ids
}

// candidates selects the query candidate set. Structural filters union
// their index buckets; with no structural filter the full temporal index
// is the candidate set.
func (ix *index) candidates(f Filters) []string {
	structural := f.ProjectID != "" || len(f.Types) > 0 || len(f.Tags) > 0 || len(f.Entities) > 0
	if !structural {
		return ix.temporalIDs()
	}

	seen := make(map[string]bool)
	var ids []string
	union := func(bucket []string) {
		for _, id := range bucket {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if f.ProjectID != "" {
		union(ix.byProject[f.ProjectID])
	}
	for _, t := range f.Types {
		union(ix.byType[t])
	}
	for _, tag := range f.Tags {
		union(ix.byTag[tag])
	}
	for _, ent := range f.Entities {
		union(ix.byEntity[ent])
	}
	return ids
}

// loadIndexFile reads the persisted index and derives the lookup
// structures. A missing or corrupted file yields an empty index that is
// rebuilt progressively as records are created and updated.
func (s *FileStore) loadIndexFile() *index {
	ix := newIndex()

	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("index file unreadable, starting empty", "path", s.indexPath(), "error", err)
		}
		return ix
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.Warn("index file corrupted, starting empty", "path", s.indexPath(), "error", err)
		return ix
	}

	for _, e := range f.Entries {
		ix.add(e)
	}
	return ix
}

// saveIndexLocked persists the id map and regenerates the stats file.
// Callers must hold s.mu for writing.
func (s *FileStore) saveIndexLocked() error {
	data, err := json.MarshalIndent(indexFile{Entries: s.idx.byID}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := os.WriteFile(s.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return s.writeStatsLocked()
}

// RebuildIndex reconstructs every index structure from a full scan of the
// records directory. Unreadable record files are skipped.
func (s *FileStore) RebuildIndex(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.cfg.DataDir, recordsDirName)
	names, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("rebuild: scan records: %w", err)
	}

	ix := newIndex()
	count := 0
	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		m, err := s.readRecordAt(de.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable record during rebuild", "file", de.Name(), "error", err)
			continue
		}
		ix.add(indexEntryFor(m, de.Name()))
		count++
	}

	s.idx = ix
	s.cache.Purge()
	if err := s.saveIndexLocked(); err != nil {
		return count, fmt.Errorf("rebuild: %w", err)
	}

	s.logger.Info("index rebuilt", "records", count)
	return count, nil
}
