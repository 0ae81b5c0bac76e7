package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// CreateFeature inserts a new feature, optionally owned by a project.
func (s *Store) CreateFeature(ctx context.Context, f *models.Feature) error {
	if err := f.Validate(); err != nil {
		return validationError(err)
	}
	if err := s.checkProjectExists(ctx, f.ProjectID); err != nil {
		return err
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Version == 0 {
		f.Version = 1
	}
	now := time.Now().UTC()
	f.CreatedAt, f.ModifiedAt = now, now

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin create feature: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.Exec(ctx, `
		INSERT INTO features (id, project_id, name, summary, description, status, priority, requires_verification, version, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID.String(), nullableUUID(f.ProjectID), f.Name, f.Summary, f.Description, f.Status, f.Priority, f.RequiresVerification, f.Version, f.CreatedAt, f.ModifiedAt)
	if err != nil {
		return databaseError(fmt.Errorf("insert feature: %w", err))
	}

	if err := replaceTags(ctx, tx, models.ContainerFeature, f.ID, f.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit create feature: %w", err))
	}
	return nil
}

// GetFeature loads a feature by id.
func (s *Store) GetFeature(ctx context.Context, id uuid.UUID) (*models.Feature, error) {
	f, err := s.getFeature(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	count, last, err := s.TransitionStats(ctx, models.ContainerFeature, f.ID)
	if err != nil {
		return nil, err
	}
	f.TransitionCount = count
	f.LastTransitionAt = last
	return f, nil
}

func (s *Store) getFeature(ctx context.Context, q querier, id uuid.UUID) (*models.Feature, error) {
	row := q.QueryRow(ctx, `
		SELECT id, project_id, name, summary, description, status, priority, requires_verification, version, created_at, modified_at
		FROM features WHERE id = ?
	`, id.String())

	f := &models.Feature{}
	var idStr string
	var projectIDStr sql.NullString
	if err := row.Scan(&idStr, &projectIDStr, &f.Name, &f.Summary, &f.Description, &f.Status, &f.Priority, &f.RequiresVerification, &f.Version, &f.CreatedAt, &f.ModifiedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("feature %s not found", id)
		}
		return nil, databaseError(fmt.Errorf("scan feature: %w", err))
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, databaseError(fmt.Errorf("parse feature id: %w", err))
	}
	f.ID = parsed

	if projectIDStr.Valid {
		pid, err := uuid.Parse(projectIDStr.String)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse feature.project_id: %w", err))
		}
		f.ProjectID = &pid
	}

	tags, err := loadTags(ctx, q, models.ContainerFeature, f.ID)
	if err != nil {
		return nil, err
	}
	f.Tags = tags
	return f, nil
}

// UpdateFeature performs the optimistic compare-and-set update.
func (s *Store) UpdateFeature(ctx context.Context, f *models.Feature) error {
	if err := f.Validate(); err != nil {
		return validationError(err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin update feature: %w", err))
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.Exec(ctx, `
		UPDATE features SET name = ?, summary = ?, description = ?, status = ?, priority = ?, requires_verification = ?,
			version = version + 1, modified_at = ?
		WHERE id = ? AND version = ?
	`, f.Name, f.Summary, f.Description, f.Status, f.Priority, f.RequiresVerification, now, f.ID.String(), f.Version)
	if err != nil {
		return databaseError(fmt.Errorf("update feature: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		if _, getErr := s.getFeature(ctx, tx, f.ID); getErr != nil {
			return getErr
		}
		return versionConflict("feature %s: expected version %d", f.ID, f.Version)
	}

	if err := replaceTags(ctx, tx, models.ContainerFeature, f.ID, f.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit update feature: %w", err))
	}

	f.Version++
	f.ModifiedAt = now
	return nil
}

// DeleteFeature removes a feature. Child tasks are cascaded by the
// schema's ON DELETE CASCADE foreign key.
func (s *Store) DeleteFeature(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM features WHERE id = ?`, id.String())
	if err != nil {
		return databaseError(fmt.Errorf("delete feature: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		return notFound("feature %s not found", id)
	}
	return nil
}

// FindFeaturesByProject lists every feature owned by projectID.
func (s *Store) FindFeaturesByProject(ctx context.Context, projectID uuid.UUID) ([]models.Feature, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM features WHERE project_id = ? ORDER BY created_at`, projectID.String())
	if err != nil {
		return nil, databaseError(fmt.Errorf("query features by project: %w", err))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, databaseError(fmt.Errorf("scan feature id: %w", err))
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, databaseError(fmt.Errorf("parse feature id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError(fmt.Errorf("iterate features: %w", err))
	}

	out := make([]models.Feature, 0, len(ids))
	for _, id := range ids {
		f, err := s.GetFeature(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

func (s *Store) checkProjectExists(ctx context.Context, projectID *uuid.UUID) error {
	if projectID == nil {
		return nil
	}
	if _, err := s.GetProject(ctx, *projectID); err != nil {
		if IsNotFound(err) {
			return conflictError("project %s does not exist", *projectID)
		}
		return err
	}
	return nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}
