package store

import (
	"context"
	"fmt"

	"github.com/memkeep/memkeep/internal/model"
)

// Chain returns the related-memory neighborhood of an id: a breadth-first
// traversal of the relatedMemories edges, bounded by Depth hops. The
// relationship graph may contain cycles, so visited ids are tracked and
// each reachable memory appears exactly once, in visitation order.
func (s *FileStore) Chain(ctx context.Context, p ChainParams) ([]model.Memory, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("chain: id is required")
	}
	if p.Depth < 0 {
		return nil, fmt.Errorf("chain: depth must not be negative, got %d", p.Depth)
	}

	root, err := s.load(p.ID)
	if err != nil {
		return nil, err
	}

	type hop struct {
		memory model.Memory
		depth  int
	}

	visited := map[string]bool{root.ID: true}
	queue := []hop{{memory: root, depth: 0}}
	var chain []model.Memory

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		chain = append(chain, cur.memory)

		if cur.depth >= p.Depth {
			continue
		}
		for _, relID := range cur.memory.RelatedMemories {
			if visited[relID] {
				continue
			}
			visited[relID] = true

			rel, err := s.load(relID)
			if err != nil {
				// Dangling edges are tolerated; the rest of the
				// neighborhood is still returned.
				s.logger.Debug("skipping unresolvable related memory", "id", relID, "error", err)
				continue
			}
			queue = append(queue, hop{memory: rel, depth: cur.depth + 1})
		}
	}

	if !p.IncludeContent {
		for i := range chain {
			chain[i].Content = ""
		}
	}
	return chain, nil
}
