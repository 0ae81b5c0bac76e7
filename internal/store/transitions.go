package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// RecordTransition appends an immutable role_transitions row (spec §6's
// audit table). The orchestrator calls this once per successfully
// applied status change, after the store write and the role
// recomputation, so the row records the role the entity moved *into*.
// Append-only: there is no update or delete path, since the row is a
// fact about what happened, not current state.
func (s *Store) RecordTransition(ctx context.Context, entityType models.ContainerType, entityID uuid.UUID, fromStatus, toStatus, role string) error {
	var from sql.NullString
	if fromStatus != "" {
		from = sql.NullString{String: fromStatus, Valid: true}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO role_transitions (id, entity_type, entity_id, from_status, to_status, role, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), string(entityType), entityID.String(), from, toStatus, role, nil, time.Now().UTC())
	if err != nil {
		return databaseError(fmt.Errorf("insert role transition: %w", err))
	}
	s.logger.Debug("recorded transition",
		zap.String("entity", models.ShortID(entityID)),
		zap.String("from", fromStatus), zap.String("to", toStatus), zap.String("role", role))
	return nil
}

// TransitionStats counts the role_transitions rows recorded for an
// entity and reports the most recent one's timestamp, backing the
// derived TransitionCount/LastTransitionAt fields on
// Project/Feature/Task (SPEC_FULL.md §3) the same way the teacher
// derives RejectionCount from task_notes rather than a stored column.
func (s *Store) TransitionStats(ctx context.Context, entityType models.ContainerType, entityID uuid.UUID) (int, *time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM role_transitions WHERE entity_type = ? AND entity_id = ?
	`, string(entityType), entityID.String())

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, nil, databaseError(fmt.Errorf("scan transition stats: %w", err))
	}
	if count == 0 {
		return count, nil, nil
	}
	// created_at is read as a plain column rather than through MAX(): the
	// driver converts only DATETIME-typed columns to time.Time.
	var t time.Time
	if err := s.db.QueryRow(ctx, `
		SELECT created_at FROM role_transitions WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, string(entityType), entityID.String()).Scan(&t); err != nil {
		return 0, nil, databaseError(fmt.Errorf("scan last transition time: %w", err))
	}
	return count, &t, nil
}
