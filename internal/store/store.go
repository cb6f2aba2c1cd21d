// Package store implements the persistent, relevance-scored memory store:
// one durable record per memory, derived lookup indices, context-aware
// querying, decay/archive maintenance, similarity-based consolidation, and
// relationship-chain traversal.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/memkeep/memkeep/internal/model"
)

// ErrNotFound is returned when an id resolves to no stored memory.
// Not-found is a normal outcome; check it with errors.Is.
var ErrNotFound = errors.New("memory not found")

// CreateParams holds parameters for creating a memory.
type CreateParams struct {
	Content         string
	Summary         string
	Type            model.MemoryType
	Confidence      float64
	Tags            []string
	Entities        []string
	RelatedMemories []string
	ContextSnapshot *model.ContextSnapshot
	ProjectID       string
	TaskID          string
	Author          string
	Metadata        map[string]string
}

// UpdateParams holds the partial fields of an update. Nil pointers and nil
// slices leave the existing value unchanged.
type UpdateParams struct {
	Content         *string
	Summary         *string
	Type            *model.MemoryType
	Confidence      *float64
	Tags            []string
	Entities        []string
	RelatedMemories []string
	ContextSnapshot *model.ContextSnapshot
	ProjectID       *string
	TaskID          *string
	Author          *string
	Metadata        map[string]string
	Archived        *bool
}

// Filters narrows a query. Structural filters (ProjectID, Types, Tags,
// Entities) select candidates by index union; the rest are applied by
// scanning loaded records.
type Filters struct {
	ProjectID     string
	Types         []model.MemoryType
	Tags          []string
	Entities      []string
	CreatedAfter  time.Time // inclusive; zero means open-ended
	CreatedBefore time.Time // inclusive; zero means open-ended
	MinRelevance  float64
	// IncludeArchived makes archived memories visible; by default they
	// are excluded from results.
	IncludeArchived bool
}

// QueryContext describes the caller's current working context. Memories
// whose captured snapshot overlaps it get a transient score boost.
type QueryContext struct {
	CurrentTask   string
	CurrentFiles  []string
	RecentActions []string
}

// SortBy selects the query result ordering.
type SortBy string

// Supported sort orders.
const (
	SortRelevance   SortBy = "relevance"
	SortRecency     SortBy = "recency"
	SortAccessCount SortBy = "access_count"
)

// QueryParams holds the single retrieval operation's inputs.
type QueryParams struct {
	Filters    Filters
	SearchText string
	Context    *QueryContext
	SortBy     SortBy // defaults to SortRelevance
	Limit      int    // 0 means the configured default
}

// QueryResult wraps a memory with its (possibly context-boosted) transient
// score. The persisted relevance score is never mutated by a query.
type QueryResult struct {
	model.Memory
	Score float64 `json:"score"`
}

// ChainParams holds parameters for a relationship-chain traversal.
type ChainParams struct {
	ID             string
	Depth          int // hops from the root; 0 returns just the root
	IncludeContent bool
}

// ConsolidateScope bounds a consolidation pass to one index bucket.
// All zero fields mean the whole corpus.
type ConsolidateScope struct {
	Type      model.MemoryType
	Tag       string
	ProjectID string
}

// ConsolidateResult reports the surviving memories and the ids discarded
// by merging, so callers can update external references.
type ConsolidateResult struct {
	Kept         []model.Memory `json:"kept"`
	DiscardedIDs []string       `json:"discarded_ids"`
}

// Store defines the memory store operation surface.
type Store interface {
	// Create persists a new memory and indexes it.
	Create(ctx context.Context, p CreateParams) (*model.Memory, error)

	// Get retrieves a memory by id, incrementing its access count and
	// refreshing last-accessed before returning.
	Get(ctx context.Context, id string) (*model.Memory, error)

	// Update merges partial fields into an existing memory, bumps its
	// version, and re-indexes it.
	Update(ctx context.Context, id string, p UpdateParams) (*model.Memory, error)

	// Delete removes the record and every index reference. Returns false
	// if the id did not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// Query runs the filter/search/score/sort/limit pipeline.
	Query(ctx context.Context, p QueryParams) ([]QueryResult, error)

	// Chain returns the depth-bounded related-memory neighborhood of an
	// id in breadth-first visitation order.
	Chain(ctx context.Context, p ChainParams) ([]model.Memory, error)

	// Decay recomputes relevance scores from age and access patterns.
	// Returns the number of memories whose score changed.
	Decay(ctx context.Context) (int, error)

	// Archive soft-deletes old, low-relevance, rarely-accessed memories
	// created more than daysOld days ago. Returns the number archived.
	Archive(ctx context.Context, daysOld int) (int, error)

	// Consolidate merges near-duplicate memories within a scope.
	Consolidate(ctx context.Context, scope ConsolidateScope) (*ConsolidateResult, error)

	// RebuildIndex reconstructs every index structure from a full record
	// scan. Returns the number of records indexed.
	RebuildIndex(ctx context.Context) (int, error)

	// Stats returns the aggregate counts kept in the stats file.
	Stats(ctx context.Context) (*Stats, error)

	// ExportAll returns every stored memory, oldest first.
	ExportAll(ctx context.Context) ([]model.Memory, error)

	// Import re-creates memories from an export. Returns the count stored.
	Import(ctx context.Context, memories []model.Memory) (int, error)

	// Close releases the store.
	Close() error
}
