package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// UpdateStatus performs the optimistic compare-and-set status write
// the orchestrator (C7) and the cascade service (C6) drive, dispatching
// to the right table by container type. It is deliberately narrower
// than UpdateProject/UpdateFeature/UpdateTask: it writes only status,
// version and modified_at, so a caller holding just an id, a target
// status and a version can apply a status change without
// round-tripping the whole entity first.
func (s *Store) UpdateStatus(ctx context.Context, container workflowconfig.ContainerType, id uuid.UUID, newStatus string, expectedVersion int64) (int64, error) {
	table, err := statusTable(container)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET status = ?, version = version + 1, modified_at = ?
		WHERE id = ? AND version = ?
	`, table), newStatus, time.Now().UTC(), id.String(), expectedVersion)
	if err != nil {
		return 0, databaseError(fmt.Errorf("update %s status: %w", container, err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		if _, getErr := s.getByContainer(ctx, container, id); getErr != nil {
			return 0, getErr
		}
		return 0, versionConflict("%s %s: expected version %d", container, id, expectedVersion)
	}
	return expectedVersion + 1, nil
}

func statusTable(container workflowconfig.ContainerType) (string, error) {
	switch container {
	case workflowconfig.ContainerProject:
		return "projects", nil
	case workflowconfig.ContainerFeature:
		return "features", nil
	case workflowconfig.ContainerTask:
		return "tasks", nil
	default:
		return "", validationError(fmt.Errorf("unknown container type %q", container))
	}
}

func (s *Store) getByContainer(ctx context.Context, container workflowconfig.ContainerType, id uuid.UUID) (interface{}, error) {
	switch container {
	case workflowconfig.ContainerProject:
		return s.GetProject(ctx, id)
	case workflowconfig.ContainerFeature:
		return s.GetFeature(ctx, id)
	case workflowconfig.ContainerTask:
		return s.GetTask(ctx, id)
	default:
		return nil, validationError(fmt.Errorf("unknown container type %q", container))
	}
}
