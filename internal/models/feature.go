package models

import (
	"time"

	"github.com/google/uuid"
)

// Feature is a mid-level container, optionally owned by a Project.
// It exclusively owns its tasks (spec §3).
type Feature struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	ProjectID            *uuid.UUID `json:"project_id,omitempty" db:"project_id"`
	Name                 string     `json:"name" db:"name"`
	Summary              string     `json:"summary" db:"summary"`
	Description          *string    `json:"description,omitempty" db:"description"`
	Status               string     `json:"status" db:"status"`
	Priority             int        `json:"priority" db:"priority"`
	Tags                 []string   `json:"tags" db:"-"`
	RequiresVerification bool       `json:"requires_verification" db:"requires_verification"`
	Version              int64      `json:"version" db:"version"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	ModifiedAt           time.Time  `json:"modified_at" db:"modified_at"`

	TransitionCount  int        `json:"transition_count" db:"-"`
	LastTransitionAt *time.Time `json:"last_transition_at,omitempty" db:"-"`
}

// Validate validates the Feature's own fields.
func (f *Feature) Validate() error {
	if f.Name == "" {
		return ErrEmptyName
	}
	if f.Summary == "" {
		return ErrEmptySummary
	}
	if f.Priority < 1 || f.Priority > 10 {
		return ErrInvalidPriority
	}
	return nil
}

// Progress returns a coarse 0.0-1.0 completion estimate for the
// feature, derived from the role distribution of its child tasks
// rather than stored — grounded on the teacher's
// internal/status/derivation.go weighting idiom (SPEC_FULL.md §3).
// Callers pass pre-computed counts; Progress performs no I/O.
func Progress(counts map[Role]int) float64 {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0.0
	}

	weights := map[Role]float64{
		RoleQueue:    0.0,
		RoleBlocked:  0.0,
		RoleWork:     0.5,
		RoleReview:   0.75,
		RoleTerminal: 1.0,
	}

	var sum float64
	for role, n := range counts {
		sum += weights[role] * float64(n)
	}
	return sum / float64(total)
}
