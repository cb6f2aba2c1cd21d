package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/memkeep/memkeep/internal/config"
	"github.com/memkeep/memkeep/internal/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// rewriteRecord edits a record file on disk (to backdate timestamps or
// force scores) and rebuilds the index so the store picks the change up.
func rewriteRecord(t *testing.T, s *FileStore, id string, mutate func(*model.Memory)) {
	t.Helper()
	dir := filepath.Join(s.cfg.DataDir, recordsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read records dir: %v", err)
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read record: %v", err)
		}
		var m model.Memory
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("parse record: %v", err)
		}
		if m.ID != id {
			continue
		}
		mutate(&m)
		out, _ := json.MarshalIndent(m, "", "  ")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			t.Fatalf("write record: %v", err)
		}
		if _, err := s.RebuildIndex(context.Background()); err != nil {
			t.Fatalf("rebuild index: %v", err)
		}
		return
	}
	t.Fatalf("record %s not found on disk", id)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, err := s.Create(ctx, CreateParams{
		Content:    "Switched the cache layer to write-through",
		Summary:    "Cache write-through decision",
		Type:       model.TypeDecision,
		Confidence: 0.9,
		Tags:       []string{"cache"},
		Author:     "agent",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if mem.ID == "" {
		t.Error("expected non-empty ID")
	}
	if mem.Version != 1 {
		t.Errorf("expected version 1, got %d", mem.Version)
	}
	if mem.RelevanceScore != 1.0 {
		t.Errorf("expected relevance 1.0, got %v", mem.RelevanceScore)
	}
	if mem.AccessCount != 0 {
		t.Errorf("expected access count 0 at creation, got %d", mem.AccessCount)
	}

	got, err := s.Get(ctx, mem.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != mem.Content || got.Summary != mem.Summary {
		t.Error("round trip lost caller-supplied fields")
	}
	if got.AccessCount != 1 {
		t.Errorf("expected access count 1 after first get, got %d", got.AccessCount)
	}
	if got.LastAccessed == nil {
		t.Error("expected last accessed to be set")
	}

	// The access bump must be persisted, not just returned.
	got2, _ := s.Get(ctx, mem.ID)
	if got2.AccessCount != 2 {
		t.Errorf("expected access count 2 after second get, got %d", got2.AccessCount)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cases := []CreateParams{
		{Summary: "s", Type: model.TypeDecision, Author: "a"},                  // no content
		{Content: "c", Type: model.TypeDecision, Author: "a"},                  // no summary
		{Content: "c", Summary: "s", Type: model.TypeDecision},                 // no author
		{Content: "c", Summary: "s", Type: model.MemoryType("x"), Author: "a"}, // bad type
	}
	for i, p := range cases {
		if _, err := s.Create(ctx, p); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}

	// Validation failures must not mutate state.
	results, _ := s.Query(ctx, QueryParams{})
	if len(results) != 0 {
		t.Errorf("expected empty store after rejected creates, got %d", len(results))
	}
}

func TestConfidenceClamped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, err := s.Create(ctx, CreateParams{
		Content: "c", Summary: "s", Type: model.TypePattern, Author: "a",
		Confidence: 3.5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if mem.Confidence != 1.0 {
		t.Errorf("expected confidence clamped to 1.0, got %v", mem.Confidence)
	}

	neg := -0.4
	updated, err := s.Update(ctx, mem.ID, UpdateParams{Confidence: &neg})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %v", updated.Confidence)
	}
}

func TestUpdateVersioning(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, err := s.Create(ctx, CreateParams{
		Content: "v1", Summary: "s", Type: model.TypeBreakthrough, Author: "a",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created := mem.Created

	const n = 3
	var last *model.Memory
	for i := 0; i < n; i++ {
		content := "revision"
		last, err = s.Update(ctx, mem.ID, UpdateParams{Content: &content})
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	if last.Version != 1+n {
		t.Errorf("expected version %d after %d updates, got %d", 1+n, n, last.Version)
	}
	if !last.Created.Equal(created) {
		t.Error("created must be immutable across updates")
	}
	if last.ID != mem.ID {
		t.Error("id must not change across updates")
	}
	if last.Supersedes != mem.ID {
		t.Errorf("expected supersedes to point at the memory's own id, got %q", last.Supersedes)
	}
	if last.LastUpdated == nil {
		t.Error("expected last updated to be set")
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t)
	content := "x"
	_, err := s.Update(context.Background(), "nope", UpdateParams{Content: &content})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateReindexes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, _ := s.Create(ctx, CreateParams{
		Content: "c", Summary: "s", Type: model.TypeDecision, Author: "a",
		Tags: []string{"old"},
	})

	if _, err := s.Update(ctx, mem.ID, UpdateParams{Tags: []string{"new"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	byOld, _ := s.Query(ctx, QueryParams{Filters: Filters{Tags: []string{"old"}}})
	if len(byOld) != 0 {
		t.Errorf("expected no results under dropped tag, got %d", len(byOld))
	}
	byNew, _ := s.Query(ctx, QueryParams{Filters: Filters{Tags: []string{"new"}}})
	if len(byNew) != 1 {
		t.Errorf("expected 1 result under new tag, got %d", len(byNew))
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, _ := s.Create(ctx, CreateParams{
		Content: "c", Summary: "s", Type: model.TypeFeedback, Author: "a",
		Tags: []string{"t"}, Entities: []string{"pkg/foo"}, ProjectID: "p1",
	})

	deleted, err := s.Delete(ctx, mem.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report true")
	}

	if _, err := s.Get(ctx, mem.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Absent from all future query results, even with no filters.
	all, _ := s.Query(ctx, QueryParams{})
	if len(all) != 0 {
		t.Errorf("expected no results after delete, got %d", len(all))
	}
	for _, f := range []Filters{
		{Tags: []string{"t"}},
		{Entities: []string{"pkg/foo"}},
		{ProjectID: "p1"},
		{Types: []model.MemoryType{model.TypeFeedback}},
	} {
		res, _ := s.Query(ctx, QueryParams{Filters: f})
		if len(res) != 0 {
			t.Errorf("expected no results for %+v after delete, got %d", f, len(res))
		}
	}

	deleted, err = s.Delete(ctx, mem.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report false")
	}
}

func TestRecordFilesOnDisk(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.Create(ctx, CreateParams{Content: "a", Summary: "a", Type: model.TypePattern, Author: "x"})
	b, _ := s.Create(ctx, CreateParams{Content: "b", Summary: "b", Type: model.TypePattern, Author: "x"})

	entries, err := os.ReadDir(filepath.Join(s.cfg.DataDir, recordsDirName))
	if err != nil {
		t.Fatalf("read records dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one file per memory, got %d files", len(entries))
	}
	if a.ID == b.ID {
		t.Error("ids must be unique")
	}

	// The index and stats files exist alongside the records.
	if _, err := os.Stat(s.indexPath()); err != nil {
		t.Errorf("expected index file: %v", err)
	}
	if _, err := os.Stat(s.statsPath()); err != nil {
		t.Errorf("expected stats file: %v", err)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s1, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mem, _ := s1.Create(ctx, CreateParams{
		Content: "persisted", Summary: "s", Type: model.TypeDecision, Author: "a",
	})
	s1.Close()

	s2, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()

	got, err := s2.Get(ctx, mem.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Content != "persisted" {
		t.Errorf("expected persisted content, got %q", got.Content)
	}
}
