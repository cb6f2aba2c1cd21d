// Package model defines the core memory data types.
package model

import "time"

// MemoryType classifies a memory into one of a closed set of categories.
type MemoryType string

// The allowed memory types.
const (
	TypeBreakthrough   MemoryType = "breakthrough"
	TypeDecision       MemoryType = "decision"
	TypeFeedback       MemoryType = "feedback"
	TypeErrorRecovery  MemoryType = "error_recovery"
	TypePattern        MemoryType = "pattern"
	TypeUserPreference MemoryType = "user_preference"
)

// ValidTypes are the allowed memory types.
var ValidTypes = map[MemoryType]bool{
	TypeBreakthrough:   true,
	TypeDecision:       true,
	TypeFeedback:       true,
	TypeErrorRecovery:  true,
	TypePattern:        true,
	TypeUserPreference: true,
}

// ContextSnapshot captures the working context at creation time. Stored
// as-is and consulted later for context-aware relevance boosting.
type ContextSnapshot struct {
	CurrentTask   string            `json:"current_task,omitempty"`
	Files         []string          `json:"files,omitempty"`
	RecentActions []string          `json:"recent_actions,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Memory represents one persisted unit of agent-captured knowledge.
type Memory struct {
	ID              string            `json:"id"`
	Content         string            `json:"content"`
	Summary         string            `json:"summary"`
	Type            MemoryType        `json:"type"`
	Confidence      float64           `json:"confidence"`
	Tags            []string          `json:"tags,omitempty"`
	Entities        []string          `json:"entities,omitempty"`
	RelatedMemories []string          `json:"related_memories,omitempty"`
	ContextSnapshot *ContextSnapshot  `json:"context_snapshot,omitempty"`
	ProjectID       string            `json:"project_id,omitempty"`
	TaskID          string            `json:"task_id,omitempty"`
	Author          string            `json:"author"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Created         time.Time         `json:"created"`
	LastAccessed    *time.Time        `json:"last_accessed,omitempty"`
	LastUpdated     *time.Time        `json:"last_updated,omitempty"`
	AccessCount     int               `json:"access_count"`
	RelevanceScore  float64           `json:"relevance_score"`
	Version         int               `json:"version"`
	Supersedes      string            `json:"supersedes,omitempty"`
	Archived        bool              `json:"archived,omitempty"`
}

// Clamp01 bounds v to [0, 1]. Confidence and relevance scores must stay
// inside this range no matter what arithmetic produced them.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
