package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is the top-level container in the hierarchy (spec §3). It
// exclusively owns its features.
type Project struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Summary     string    `json:"summary" db:"summary"`
	Description *string   `json:"description,omitempty" db:"description"`
	Status      string    `json:"status" db:"status"`
	Tags        []string  `json:"tags" db:"-"`
	Version     int64     `json:"version" db:"version"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	ModifiedAt  time.Time `json:"modified_at" db:"modified_at"`

	// TransitionCount and LastTransitionAt are derived from the
	// role_transitions audit table, never stored on the row itself —
	// same "derived, not stored" convention the teacher uses for
	// Task.RejectionCount.
	TransitionCount  int        `json:"transition_count" db:"-"`
	LastTransitionAt *time.Time `json:"last_transition_at,omitempty" db:"-"`
}

// Validate validates the Project's own fields. It does not check
// cross-entity invariants (e.g. feature ownership) — those are the
// store's job at write time.
func (p *Project) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.Summary == "" {
		return ErrEmptySummary
	}
	return nil
}
