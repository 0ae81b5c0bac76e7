package models

import (
	"time"

	"github.com/google/uuid"
)

// Dependency is a directed, typed edge between two tasks. The graph is
// a multigraph: cycles among BLOCKS edges are permitted to exist (not
// prevented) but are broken by status — a completed/cancelled task no
// longer blocks (spec §3). Generalizes the teacher's TaskRelationship.
type Dependency struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	FromTaskID uuid.UUID      `json:"from_task_id" db:"from_task_id"`
	ToTaskID   uuid.UUID      `json:"to_task_id" db:"to_task_id"`
	Type       DependencyType `json:"type" db:"type"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// Validate validates the Dependency's own fields.
func (d *Dependency) Validate() error {
	if d.FromTaskID == d.ToTaskID {
		return ErrSelfDependency
	}
	switch d.Type {
	case DependencyBlocks, DependencyIsBlockedBy, DependencyRelatesTo:
	default:
		return ErrInvalidDependency
	}
	return nil
}
