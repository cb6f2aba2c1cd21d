package store

import (
	"context"
	"os"
	"testing"

	"github.com/memkeep/memkeep/internal/model"
)

func TestStatsTrackMutations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.Create(ctx, CreateParams{
		Content: "c", Summary: "s", Type: model.TypeDecision, Author: "x", ProjectID: "p1",
	})
	s.Create(ctx, CreateParams{
		Content: "c", Summary: "s", Type: model.TypeDecision, Author: "x", ProjectID: "p1",
	})
	s.Create(ctx, CreateParams{
		Content: "c", Summary: "s", Type: model.TypePattern, Author: "x",
	})

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalMemories != 3 {
		t.Errorf("expected 3 memories, got %d", st.TotalMemories)
	}
	if st.ByType[string(model.TypeDecision)] != 2 {
		t.Errorf("expected 2 decisions, got %d", st.ByType[string(model.TypeDecision)])
	}
	if st.ByProject["p1"] != 2 {
		t.Errorf("expected 2 in p1, got %d", st.ByProject["p1"])
	}

	if _, err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	st, _ = s.Stats(ctx)
	if st.TotalMemories != 2 {
		t.Errorf("expected 2 memories after delete, got %d", st.TotalMemories)
	}
	if st.ByType[string(model.TypeDecision)] != 1 {
		t.Errorf("expected 1 decision after delete, got %d", st.ByType[string(model.TypeDecision)])
	}
}

func TestStatsRecomputedWhenFileCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Create(ctx, CreateParams{Content: "c", Summary: "s", Type: model.TypeFeedback, Author: "x"})

	if err := os.WriteFile(s.statsPath(), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("corrupt stats file: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalMemories != 1 {
		t.Errorf("expected recomputed total 1, got %d", st.TotalMemories)
	}
}

func TestIndexSurvivesCorruption(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, _ := s.Create(ctx, CreateParams{Content: "c", Summary: "s", Type: model.TypePattern, Author: "x"})
	s.Close()

	if err := os.WriteFile(s.indexPath(), []byte("not json"), 0o644); err != nil {
		t.Fatalf("corrupt index file: %v", err)
	}

	// A corrupt index opens empty rather than failing.
	s2, err := New(s.cfg, s.logger)
	if err != nil {
		t.Fatalf("reopen with corrupt index: %v", err)
	}
	defer s2.Close()

	results, _ := s2.Query(ctx, QueryParams{})
	if len(results) != 0 {
		t.Fatalf("expected empty view from corrupt index, got %d", len(results))
	}

	// Rebuild recovers everything from the record files.
	n, err := s2.RebuildIndex(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record recovered, got %d", n)
	}
	if _, err := s2.Get(ctx, mem.ID); err != nil {
		t.Errorf("expected memory recoverable after rebuild: %v", err)
	}
}
