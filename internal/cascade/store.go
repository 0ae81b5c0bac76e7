package cascade

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// Store is the slice of the entity store (C1) the cascade service (C6)
// needs: reads to detect cascade-worthy state, an optimistic status
// write, dependency-edge lookups for unblock detection, and the
// cleanup delete. Satisfied by internal/store's Store.
type Store interface {
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetFeature(ctx context.Context, id uuid.UUID) (*models.Feature, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)

	TaskCounts(ctx context.Context, featureID uuid.UUID) (models.TaskCounts, error)
	FeatureCounts(ctx context.Context, projectID uuid.UUID) (models.FeatureCounts, error)
	TasksByFeature(ctx context.Context, featureID uuid.UUID) ([]models.Task, error)

	// UpdateStatus performs the optimistic compare-and-set write:
	// succeeds only if the stored version still equals expectedVersion.
	UpdateStatus(ctx context.Context, container workflowconfig.ContainerType, id uuid.UUID, newStatus string, expectedVersion int64) (newVersion int64, err error)

	// RecordTransition appends an audit row for a status change applied
	// outside the orchestrator's own direct transition (i.e. a cascaded
	// parent status change).
	RecordTransition(ctx context.Context, entityType models.ContainerType, entityID uuid.UUID, fromStatus, toStatus, role string) error

	DependenciesFrom(ctx context.Context, taskID uuid.UUID, depType models.DependencyType) ([]models.Dependency, error)
	DependenciesTo(ctx context.Context, taskID uuid.UUID, depType models.DependencyType) ([]models.Dependency, error)

	// DeleteTaskCascade removes a task along with its sections and
	// dependency rows (spec §3 ownership, §4.6 completion cleanup).
	DeleteTaskCascade(ctx context.Context, taskID uuid.UUID) error
}
