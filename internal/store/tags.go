package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// loadTags reads an entity's tag set from entity_tags, ordered for
// stable output.
func loadTags(ctx context.Context, q querier, entityType models.ContainerType, entityID uuid.UUID) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT tag FROM entity_tags WHERE entity_type = ? AND entity_id = ? ORDER BY tag`, string(entityType), entityID.String())
	if err != nil {
		return nil, databaseError(fmt.Errorf("load tags: %w", err))
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, databaseError(fmt.Errorf("scan tag: %w", err))
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, databaseError(fmt.Errorf("iterate tags: %w", err))
	}
	return tags, nil
}

// replaceTags overwrites an entity's tag set, normalizing and
// deduplicating first. Called inside the same transaction as the
// entity write it accompanies.
func replaceTags(ctx context.Context, q querier, entityType models.ContainerType, entityID uuid.UUID, tags []string) error {
	if _, err := q.Exec(ctx, `DELETE FROM entity_tags WHERE entity_type = ? AND entity_id = ?`, string(entityType), entityID.String()); err != nil {
		return databaseError(fmt.Errorf("clear tags: %w", err))
	}
	for _, tag := range models.NormalizeTags(tags) {
		if _, err := q.Exec(ctx, `INSERT INTO entity_tags (entity_type, entity_id, tag) VALUES (?, ?, ?)`, string(entityType), entityID.String(), tag); err != nil {
			return databaseError(fmt.Errorf("insert tag %q: %w", tag, err))
		}
	}
	return nil
}
