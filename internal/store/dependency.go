package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// CreateDependency inserts a directed typed edge between two tasks.
// The (from, to, type) triple is unique; a duplicate insert surfaces
// as a ConflictError rather than a raw constraint violation.
func (s *Store) CreateDependency(ctx context.Context, d *models.Dependency) error {
	if err := d.Validate(); err != nil {
		return validationError(err)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()

	var existing int
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM dependencies WHERE from_task_id = ? AND to_task_id = ? AND type = ?
	`, d.FromTaskID.String(), d.ToTaskID.String(), string(d.Type))
	if err := row.Scan(&existing); err != nil {
		return databaseError(fmt.Errorf("check existing dependency: %w", err))
	}
	if existing > 0 {
		return conflictError("dependency %s -%s-> %s already exists", d.FromTaskID, d.Type, d.ToTaskID)
	}

	if _, err := s.db.Exec(ctx, `
		INSERT INTO dependencies (id, from_task_id, to_task_id, type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID.String(), d.FromTaskID.String(), d.ToTaskID.String(), string(d.Type), d.CreatedAt); err != nil {
		return databaseError(fmt.Errorf("insert dependency: %w", err))
	}
	return nil
}

// DeleteDependency removes an edge by id.
func (s *Store) DeleteDependency(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM dependencies WHERE id = ?`, id.String())
	if err != nil {
		return databaseError(fmt.Errorf("delete dependency: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		return notFound("dependency %s not found", id)
	}
	return nil
}

// DependenciesFrom lists the edges of the given type outgoing from
// taskID (the teacher's findByFromTaskId, spec §4.1), implementing
// cascade.Store.
func (s *Store) DependenciesFrom(ctx context.Context, taskID uuid.UUID, depType models.DependencyType) ([]models.Dependency, error) {
	return s.queryDependencies(ctx, `
		SELECT id, from_task_id, to_task_id, type, created_at FROM dependencies
		WHERE from_task_id = ? AND type = ? ORDER BY created_at
	`, taskID.String(), string(depType))
}

// DependenciesTo lists the edges of the given type incoming to taskID
// (the teacher's findByToTaskId, spec §4.1), implementing
// cascade.Store and backing statusvalidator's prerequisite check and
// BlockingTasks.
func (s *Store) DependenciesTo(ctx context.Context, taskID uuid.UUID, depType models.DependencyType) ([]models.Dependency, error) {
	return s.queryDependencies(ctx, `
		SELECT id, from_task_id, to_task_id, type, created_at FROM dependencies
		WHERE to_task_id = ? AND type = ? ORDER BY created_at
	`, taskID.String(), string(depType))
}

func (s *Store) queryDependencies(ctx context.Context, query string, args ...interface{}) ([]models.Dependency, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, databaseError(fmt.Errorf("query dependencies: %w", err))
	}
	defer rows.Close()

	var out []models.Dependency
	for rows.Next() {
		var idStr, fromStr, toStr, depType string
		var d models.Dependency
		if err := rows.Scan(&idStr, &fromStr, &toStr, &depType, &d.CreatedAt); err != nil {
			return nil, databaseError(fmt.Errorf("scan dependency: %w", err))
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse dependency id: %w", err))
		}
		from, err := uuid.Parse(fromStr)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse dependency.from_task_id: %w", err))
		}
		to, err := uuid.Parse(toStr)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse dependency.to_task_id: %w", err))
		}
		d.ID, d.FromTaskID, d.ToTaskID, d.Type = id, from, to, models.DependencyType(depType)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError(fmt.Errorf("iterate dependencies: %w", err))
	}
	return out, nil
}
