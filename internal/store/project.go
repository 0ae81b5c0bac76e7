package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// CreateProject inserts a new project. Generates an id if unset.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	if err := p.Validate(); err != nil {
		return validationError(err)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	now := time.Now().UTC()
	p.CreatedAt, p.ModifiedAt = now, now

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin create project: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.Exec(ctx, `
		INSERT INTO projects (id, name, summary, description, status, version, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID.String(), p.Name, p.Summary, p.Description, p.Status, p.Version, p.CreatedAt, p.ModifiedAt)
	if err != nil {
		return databaseError(fmt.Errorf("insert project: %w", err))
	}

	if err := replaceTags(ctx, tx, models.ContainerProject, p.ID, p.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit create project: %w", err))
	}
	return nil
}

// GetProject loads a project by id.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := s.getProject(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	count, last, err := s.TransitionStats(ctx, models.ContainerProject, p.ID)
	if err != nil {
		return nil, err
	}
	p.TransitionCount = count
	p.LastTransitionAt = last
	return p, nil
}

func (s *Store) getProject(ctx context.Context, q querier, id uuid.UUID) (*models.Project, error) {
	row := q.QueryRow(ctx, `
		SELECT id, name, summary, description, status, version, created_at, modified_at
		FROM projects WHERE id = ?
	`, id.String())

	p := &models.Project{}
	var idStr string
	if err := row.Scan(&idStr, &p.Name, &p.Summary, &p.Description, &p.Status, &p.Version, &p.CreatedAt, &p.ModifiedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("project %s not found", id)
		}
		return nil, databaseError(fmt.Errorf("scan project: %w", err))
	}
	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, databaseError(fmt.Errorf("parse project id: %w", err))
	}
	p.ID = parsed

	tags, err := loadTags(ctx, q, models.ContainerProject, p.ID)
	if err != nil {
		return nil, err
	}
	p.Tags = tags
	return p, nil
}

// UpdateProject performs the optimistic compare-and-set update: it
// succeeds only if the stored version still equals p.Version, then
// bumps it by one.
func (s *Store) UpdateProject(ctx context.Context, p *models.Project) error {
	if err := p.Validate(); err != nil {
		return validationError(err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return databaseError(fmt.Errorf("begin update project: %w", err))
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.Exec(ctx, `
		UPDATE projects SET name = ?, summary = ?, description = ?, status = ?, version = version + 1, modified_at = ?
		WHERE id = ? AND version = ?
	`, p.Name, p.Summary, p.Description, p.Status, now, p.ID.String(), p.Version)
	if err != nil {
		return databaseError(fmt.Errorf("update project: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		if _, getErr := s.getProject(ctx, tx, p.ID); getErr != nil {
			return getErr
		}
		return versionConflict("project %s: expected version %d", p.ID, p.Version)
	}

	if err := replaceTags(ctx, tx, models.ContainerProject, p.ID, p.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return databaseError(fmt.Errorf("commit update project: %w", err))
	}

	p.Version++
	p.ModifiedAt = now
	return nil
}

// DeleteProject removes a project. Child features are cascaded by the
// schema's ON DELETE CASCADE foreign key.
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.Exec(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return databaseError(fmt.Errorf("delete project: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return databaseError(fmt.Errorf("check rows affected: %w", err))
	}
	if affected == 0 {
		return notFound("project %s not found", id)
	}
	return nil
}
