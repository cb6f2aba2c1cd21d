package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/memkeep/memkeep/internal/config"
	"github.com/memkeep/memkeep/internal/model"
)

const (
	recordsDirName = "records"
	indexFileName  = "index.json"
	statsFileName  = "stats.json"
)

// FileStore implements Store with one JSON file per memory plus a single
// index file and a single stats file, all under cfg.DataDir.
//
// All mutations are serialized through one in-process writer lock, so the
// read-modify-write cycle on the shared index file is safe within a single
// process. Nothing coordinates across processes.
type FileStore struct {
	cfg     config.Config
	logger  *slog.Logger
	entropy *rand.Rand
	cache   *lru.Cache[string, model.Memory]

	mu  sync.RWMutex
	idx *index
}

// New opens or creates a file store rooted at cfg.DataDir. A missing or
// corrupted index file is treated as empty, never as fatal.
func New(cfg config.Config, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(cfg.DataDir, recordsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, model.Memory](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}

	s := &FileStore{
		cfg:     cfg,
		logger:  logger,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   cache,
	}
	s.idx = s.loadIndexFile()

	return s, nil
}

// Close releases the store. The index and stats files are flushed on every
// mutation, so there is nothing pending to write.
func (s *FileStore) Close() error {
	s.cache.Purge()
	return nil
}

// newID must be called with s.mu held; the entropy source is not
// concurrency-safe.
func (s *FileStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *FileStore) indexPath() string {
	return filepath.Join(s.cfg.DataDir, indexFileName)
}

func (s *FileStore) statsPath() string {
	return filepath.Join(s.cfg.DataDir, statsFileName)
}

func (s *FileStore) recordPath(location string) string {
	return filepath.Join(s.cfg.DataDir, recordsDirName, location)
}

// allocateRecordLocation derives a record filename from the creation
// timestamp, appending a numeric suffix on collision. The location is
// stored in the index, never derived from the memory id.
func (s *FileStore) allocateRecordLocation(created time.Time) (string, error) {
	base := created.UTC().Format("20060102-150405.000000000")
	name := base + ".json"
	for n := 1; ; n++ {
		_, err := os.Stat(s.recordPath(name))
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe record path: %w", err)
		}
		name = fmt.Sprintf("%s-%d.json", base, n)
	}
}

func (s *FileStore) writeRecord(m model.Memory, location string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", m.ID, err)
	}
	if err := os.WriteFile(s.recordPath(location), data, 0o644); err != nil {
		return fmt.Errorf("write record %s: %w", m.ID, err)
	}
	s.cache.Add(m.ID, m)
	return nil
}

func (s *FileStore) readRecordAt(location string) (model.Memory, error) {
	var m model.Memory
	data, err := os.ReadFile(s.recordPath(location))
	if err != nil {
		return m, fmt.Errorf("read record at %s: %w", location, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse record at %s: %w", location, err)
	}
	return m, nil
}

// loadLocked resolves an id through the index's id -> location map and
// returns the record. It never touches access tracking. Callers must hold
// s.mu (read or write).
func (s *FileStore) loadLocked(id string) (model.Memory, error) {
	if m, ok := s.cache.Get(id); ok {
		return m, nil
	}
	entry, ok := s.idx.byID[id]
	if !ok {
		return model.Memory{}, ErrNotFound
	}
	m, err := s.readRecordAt(entry.Location)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Memory{}, ErrNotFound
		}
		return model.Memory{}, err
	}
	s.cache.Add(id, m)
	return m, nil
}

// load is loadLocked behind a read lock, for use outside mutations.
func (s *FileStore) load(id string) (model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func validateCreate(p CreateParams) error {
	if p.Content == "" {
		return fmt.Errorf("content is required")
	}
	if p.Summary == "" {
		return fmt.Errorf("summary is required")
	}
	if p.Author == "" {
		return fmt.Errorf("author is required")
	}
	if !model.ValidTypes[p.Type] {
		return fmt.Errorf("invalid type %q", p.Type)
	}
	return nil
}

// Create persists a new memory, indexes it, and regenerates the stats file.
func (s *FileStore) Create(ctx context.Context, p CreateParams) (*model.Memory, error) {
	if err := validateCreate(p); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	m := model.Memory{
		ID:              s.newID(),
		Content:         p.Content,
		Summary:         p.Summary,
		Type:            p.Type,
		Confidence:      model.Clamp01(p.Confidence),
		Tags:            p.Tags,
		Entities:        p.Entities,
		RelatedMemories: p.RelatedMemories,
		ContextSnapshot: p.ContextSnapshot,
		ProjectID:       p.ProjectID,
		TaskID:          p.TaskID,
		Author:          p.Author,
		Metadata:        p.Metadata,
		Created:         now,
		AccessCount:     0,
		RelevanceScore:  1.0,
		Version:         1,
	}

	location, err := s.allocateRecordLocation(now)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if err := s.writeRecord(m, location); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	s.idx.add(indexEntryFor(m, location))
	if err := s.saveIndexLocked(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	s.logger.Debug("memory created", "id", m.ID, "type", m.Type, "location", location)
	return &m, nil
}

// Get retrieves a memory by id. The access count bump and last-accessed
// refresh are persisted before the record is returned.
func (s *FileStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}

	entry := s.idx.byID[id]
	now := time.Now().UTC()
	m.AccessCount++
	m.LastAccessed = &now
	if err := s.writeRecord(m, entry.Location); err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return &m, nil
}

// Update merges partial fields into the record, preserves id and created,
// bumps the version, and drops-then-reinserts every index entry since the
// indexed fields may have changed.
func (s *FileStore) Update(ctx context.Context, id string, p UpdateParams) (*model.Memory, error) {
	if p.Type != nil && !model.ValidTypes[*p.Type] {
		return nil, fmt.Errorf("update: invalid type %q", *p.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}
	entry := s.idx.byID[id]

	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Summary != nil {
		m.Summary = *p.Summary
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	if p.Confidence != nil {
		m.Confidence = model.Clamp01(*p.Confidence)
	}
	if p.Tags != nil {
		m.Tags = p.Tags
	}
	if p.Entities != nil {
		m.Entities = p.Entities
	}
	if p.RelatedMemories != nil {
		m.RelatedMemories = p.RelatedMemories
	}
	if p.ContextSnapshot != nil {
		m.ContextSnapshot = p.ContextSnapshot
	}
	if p.ProjectID != nil {
		m.ProjectID = *p.ProjectID
	}
	if p.TaskID != nil {
		m.TaskID = *p.TaskID
	}
	if p.Author != nil {
		m.Author = *p.Author
	}
	if p.Metadata != nil {
		m.Metadata = p.Metadata
	}
	if p.Archived != nil {
		m.Archived = *p.Archived
	}

	now := time.Now().UTC()
	m.Supersedes = id // updated in place, not forked
	m.Version++
	m.LastUpdated = &now

	if err := s.writeRecord(m, entry.Location); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	s.idx.remove(id)
	s.idx.add(indexEntryFor(m, entry.Location))
	if err := s.saveIndexLocked(); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	s.logger.Debug("memory updated", "id", id, "version", m.Version)
	return &m, nil
}

// Delete removes the record file and every index reference. Returns false
// if the id did not exist.
func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.idx.byID[id]
	if !ok {
		return false, nil
	}

	if err := os.Remove(s.recordPath(entry.Location)); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("delete record %s: %w", id, err)
	}

	s.cache.Remove(id)
	s.idx.remove(id)
	if err := s.saveIndexLocked(); err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}

	s.logger.Debug("memory deleted", "id", id)
	return true, nil
}
