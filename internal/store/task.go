package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// CreateTask inserts a new task, enforcing the feature_id -> project_id
// consistency invariant (spec §3): when a task names a feature that
// itself has a project, an unset project_id is filled in from the
// feature, and a project_id that differs from the feature's is
// rejected with a ValidationError.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin create task: %w", err))
	}
	defer tx.Rollback()

	if err := s.createTaskTx(ctx, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit create task: %w", err))
	}
	return nil
}

// CreateTasks inserts many tasks in a single transaction (spec §3's
// batch-creation supplement): either every task is written, or none
// are, rather than a partially-seeded feature if the Nth insert fails.
// Each task still goes through the same validation and
// feature/project-ownership reconciliation as CreateTask.
func (s *Store) CreateTasks(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin create tasks: %w", err))
	}
	defer tx.Rollback()

	for i, t := range tasks {
		if err := s.createTaskTx(ctx, tx, t); err != nil {
			return fmt.Errorf("create task %d of %d: %w", i+1, len(tasks), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit create tasks: %w", err))
	}
	return nil
}

// createTaskTx validates and inserts one task inside an already-open
// transaction, shared by CreateTask and CreateTasks.
func (s *Store) createTaskTx(ctx context.Context, tx querier, t *models.Task) error {
	if err := t.Validate(); err != nil {
		return validationError(err)
	}
	if err := s.reconcileTaskOwnership(ctx, t); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	now := time.Now().UTC()
	t.CreatedAt, t.ModifiedAt = now, now

	_, err := tx.Exec(ctx, `
		INSERT INTO tasks (id, project_id, feature_id, title, summary, description, status, priority, complexity, requires_verification, version, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID.String(), nullableUUID(t.ProjectID), nullableUUID(t.FeatureID), t.Title, t.Summary, t.Description,
		t.Status, t.Priority, t.Complexity, t.RequiresVerification, t.Version, t.CreatedAt, t.ModifiedAt)
	if err != nil {
		return databaseError(fmt.Errorf("insert task: %w", err))
	}

	return replaceTags(ctx, tx, models.ContainerTask, t.ID, t.Tags)
}

func (s *Store) reconcileTaskOwnership(ctx context.Context, t *models.Task) error {
	if t.FeatureID == nil {
		return nil
	}
	feature, err := s.GetFeature(ctx, *t.FeatureID)
	if err != nil {
		if IsNotFound(err) {
			return conflictError("feature %s does not exist", *t.FeatureID)
		}
		return err
	}
	if feature.ProjectID == nil {
		return nil
	}
	if t.ProjectID != nil && *t.ProjectID != *feature.ProjectID {
		return validationError(models.ErrFeatureProjectMismatch)
	}
	projectID := *feature.ProjectID
	t.ProjectID = &projectID
	return nil
}

// GetTask loads a task by id.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, err := s.getTask(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	count, last, err := s.TransitionStats(ctx, models.ContainerTask, t.ID)
	if err != nil {
		return nil, err
	}
	t.TransitionCount = count
	t.LastTransitionAt = last
	return t, nil
}

func (s *Store) getTask(ctx context.Context, q querier, id uuid.UUID) (*models.Task, error) {
	row := q.QueryRow(ctx, `
		SELECT id, project_id, feature_id, title, summary, description, status, priority, complexity, requires_verification, version, created_at, modified_at
		FROM tasks WHERE id = ?
	`, id.String())

	t := &models.Task{}
	var idStr string
	var projectIDStr, featureIDStr sql.NullString
	if err := row.Scan(&idStr, &projectIDStr, &featureIDStr, &t.Title, &t.Summary, &t.Description, &t.Status,
		&t.Priority, &t.Complexity, &t.RequiresVerification, &t.Version, &t.CreatedAt, &t.ModifiedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("task %s not found", id)
		}
		return nil, databaseError(fmt.Errorf("scan task: %w", err))
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, databaseError(fmt.Errorf("parse task id: %w", err))
	}
	t.ID = parsed

	if projectIDStr.Valid {
		pid, err := uuid.Parse(projectIDStr.String)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse task.project_id: %w", err))
		}
		t.ProjectID = &pid
	}
	if featureIDStr.Valid {
		fid, err := uuid.Parse(featureIDStr.String)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse task.feature_id: %w", err))
		}
		t.FeatureID = &fid
	}

	tags, err := loadTags(ctx, q, models.ContainerTask, t.ID)
	if err != nil {
		return nil, err
	}
	t.Tags = tags
	return t, nil
}

// UpdateTask performs the optimistic compare-and-set update.
func (s *Store) UpdateTask(ctx context.Context, t *models.Task) error {
	if err := t.Validate(); err != nil {
		return validationError(err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin update task: %w", err))
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.Exec(ctx, `
		UPDATE tasks SET title = ?, summary = ?, description = ?, status = ?, priority = ?, complexity = ?,
			requires_verification = ?, version = version + 1, modified_at = ?
		WHERE id = ? AND version = ?
	`, t.Title, t.Summary, t.Description, t.Status, t.Priority, t.Complexity, t.RequiresVerification, now, t.ID.String(), t.Version)
	if err != nil {
		return databaseError(fmt.Errorf("update task: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		if _, getErr := s.getTask(ctx, tx, t.ID); getErr != nil {
			return getErr
		}
		return versionConflict("task %s: expected version %d", t.ID, t.Version)
	}

	if err := replaceTags(ctx, tx, models.ContainerTask, t.ID, t.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit update task: %w", err))
	}

	t.Version++
	t.ModifiedAt = now
	return nil
}

// DeleteTask removes a task along with its sections and dependency
// edges, in one transaction. Dependency rows go through the schema's
// ON DELETE CASCADE; sections carry no foreign key, so they are
// deleted explicitly.
func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin delete task: %w", err))
	}
	defer tx.Rollback()

	result, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return databaseError(fmt.Errorf("delete task: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		return notFound("task %s not found", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sections WHERE entity_type = ? AND entity_id = ?`, string(models.ContainerTask), id.String()); err != nil {
		return databaseError(fmt.Errorf("delete task sections: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit delete task: %w", err))
	}
	return nil
}

// DeleteTaskCascade is DeleteTask under the name the cascade service's
// completion-cleanup sweep calls it by; deletion shape is identical.
func (s *Store) DeleteTaskCascade(ctx context.Context, id uuid.UUID) error {
	return s.DeleteTask(ctx, id)
}

// FindTasksByProject lists every task directly owned by projectID.
func (s *Store) FindTasksByProject(ctx context.Context, projectID uuid.UUID) ([]models.Task, error) {
	return s.findTasks(ctx, `SELECT id FROM tasks WHERE project_id = ? ORDER BY priority DESC, created_at ASC`, projectID.String())
}

// FindTasksByFeature lists every task owned by featureID.
func (s *Store) FindTasksByFeature(ctx context.Context, featureID uuid.UUID) ([]models.Task, error) {
	return s.findTasks(ctx, `SELECT id FROM tasks WHERE feature_id = ? ORDER BY priority DESC, created_at ASC`, featureID.String())
}

// TasksByFeature is FindTasksByFeature under the name cascade.Store
// calls it by.
func (s *Store) TasksByFeature(ctx context.Context, featureID uuid.UUID) ([]models.Task, error) {
	return s.FindTasksByFeature(ctx, featureID)
}

func (s *Store) findTasks(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, databaseError(fmt.Errorf("query tasks: %w", err))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, databaseError(fmt.Errorf("scan task id: %w", err))
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse task id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError(fmt.Errorf("iterate tasks: %w", err))
	}

	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// GetTaskCount returns the total number of tasks owned by featureID
// (spec §4.1's getTaskCount).
func (s *Store) GetTaskCount(ctx context.Context, featureID uuid.UUID) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE feature_id = ?`, featureID.String()).Scan(&count); err != nil {
		return 0, databaseError(fmt.Errorf("count tasks: %w", err))
	}
	return count, nil
}

// TaskCounts returns a feature's task counts grouped by status (spec
// §4.1's getTaskCountsByFeatureId), implementing
// statusvalidator.PrerequisiteStore and cascade.Store.
func (s *Store) TaskCounts(ctx context.Context, featureID uuid.UUID) (models.TaskCounts, error) {
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(*) FROM tasks WHERE feature_id = ? GROUP BY status`, featureID.String())
	if err != nil {
		return models.TaskCounts{}, databaseError(fmt.Errorf("count tasks by status: %w", err))
	}
	defer rows.Close()

	counts := models.TaskCounts{ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return models.TaskCounts{}, databaseError(fmt.Errorf("scan task count row: %w", err))
		}
		norm := models.NormalizeStatus(status)
		counts.ByStatus[norm] += n
		counts.Total += n
		switch norm {
		case "completed":
			counts.Completed += n
		case "cancelled":
			counts.Cancelled += n
		default:
			counts.NonTerminal += n
		}
	}
	if err := rows.Err(); err != nil {
		return models.TaskCounts{}, databaseError(fmt.Errorf("iterate task counts: %w", err))
	}
	return counts, nil
}

// NonTerminalTaskTitles lists the titles of featureID's tasks whose
// status is not among terminalStatuses, implementing
// statusvalidator.PrerequisiteStore.
func (s *Store) NonTerminalTaskTitles(ctx context.Context, featureID uuid.UUID, terminalStatuses []string) ([]string, error) {
	tasks, err := s.FindTasksByFeature(ctx, featureID)
	if err != nil {
		return nil, err
	}
	terminal := make(map[string]struct{}, len(terminalStatuses))
	for _, st := range terminalStatuses {
		terminal[models.NormalizeStatus(st)] = struct{}{}
	}
	var titles []string
	for _, t := range tasks {
		if _, ok := terminal[models.NormalizeStatus(t.Status)]; !ok {
			titles = append(titles, t.Title)
		}
	}
	return titles, nil
}

// BlockingTasks returns every task with a live BLOCKS edge into
// taskID, implementing statusvalidator.PrerequisiteStore.
func (s *Store) BlockingTasks(ctx context.Context, taskID uuid.UUID) ([]models.Task, error) {
	edges, err := s.DependenciesTo(ctx, taskID, models.DependencyBlocks)
	if err != nil {
		return nil, err
	}
	var blockers []models.Task
	for _, edge := range edges {
		upstream, err := s.GetTask(ctx, edge.FromTaskID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		switch models.NormalizeStatus(upstream.Status) {
		case "completed", "cancelled":
			continue
		default:
			blockers = append(blockers, *upstream)
		}
	}
	return blockers, nil
}
