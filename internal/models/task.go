package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is the leaf container: an atomic work unit. It exclusively owns
// its sections and outgoing/incoming dependency rows (spec §3).
type Task struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	ProjectID            *uuid.UUID `json:"project_id,omitempty" db:"project_id"`
	FeatureID            *uuid.UUID `json:"feature_id,omitempty" db:"feature_id"`
	Title                string     `json:"title" db:"title"`
	Summary              string     `json:"summary" db:"summary"`
	Description          *string    `json:"description,omitempty" db:"description"`
	Status               string     `json:"status" db:"status"`
	Priority             int        `json:"priority" db:"priority"`
	Complexity           int        `json:"complexity" db:"complexity"`
	Tags                 []string   `json:"tags" db:"-"`
	RequiresVerification bool       `json:"requires_verification" db:"requires_verification"`
	Version              int64      `json:"version" db:"version"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	ModifiedAt           time.Time  `json:"modified_at" db:"modified_at"`

	TransitionCount  int        `json:"transition_count" db:"-"`
	LastTransitionAt *time.Time `json:"last_transition_at,omitempty" db:"-"`
}

// Validate validates the Task's own fields.
func (t *Task) Validate() error {
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if t.Summary == "" {
		return ErrEmptySummary
	}
	if t.Priority < 1 || t.Priority > 10 {
		return ErrInvalidPriority
	}
	if t.Complexity < 1 || t.Complexity > 10 {
		return ErrInvalidComplexity
	}
	if t.FeatureID != nil && t.ProjectID == nil {
		// Allowed: a task may belong to a feature with no project.
		// The store enforces feature_id -> project_id consistency
		// when the owning feature does have a project (spec §3).
	}
	return nil
}

// TaskCounts tallies tasks in a feature grouped by status, returned by
// the store's getTaskCountsByFeatureId query (spec §4.1).
type TaskCounts struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	Completed  int            `json:"completed"`
	Cancelled  int            `json:"cancelled"`
	NonTerminal int           `json:"non_terminal"`
}

// FeatureCounts tallies a project's features grouped by terminal/
// non-terminal state, used by the all_features_complete cascade rule
// and the project -> completed prerequisite.
type FeatureCounts struct {
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	ByStatus  map[string]int `json:"by_status,omitempty"`
}
