package store

import (
	"context"
	"fmt"

	"github.com/memkeep/memkeep/internal/model"
)

// ExportAll returns every stored memory, oldest first. Unreadable records
// are skipped so one corrupt file cannot block a backup.
func (s *FileStore) ExportAll(ctx context.Context) ([]model.Memory, error) {
	s.mu.RLock()
	ids := s.idx.temporalIDs()
	s.mu.RUnlock()

	memories := make([]model.Memory, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		m, err := s.load(ids[i])
		if err != nil {
			s.logger.Warn("skipping unreadable record in export", "id", ids[i], "error", err)
			continue
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// Import stores memories from an export through the normal create path,
// assigning fresh ids. Returns the number imported.
func (s *FileStore) Import(ctx context.Context, memories []model.Memory) (int, error) {
	imported := 0
	for _, m := range memories {
		_, err := s.Create(ctx, CreateParams{
			Content:         m.Content,
			Summary:         m.Summary,
			Type:            m.Type,
			Confidence:      m.Confidence,
			Tags:            m.Tags,
			Entities:        m.Entities,
			RelatedMemories: m.RelatedMemories,
			ContextSnapshot: m.ContextSnapshot,
			ProjectID:       m.ProjectID,
			TaskID:          m.TaskID,
			Author:          m.Author,
			Metadata:        m.Metadata,
		})
		if err != nil {
			return imported, fmt.Errorf("import: %w", err)
		}
		imported++
	}
	return imported, nil
}
