package statusvalidator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jwwelbor/shark-task-manager/internal/models"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// PrerequisiteStore is the narrow read-only slice of the entity store
// (C1) that C3's prerequisite rules need. It is satisfied by
// internal/store's full Store, kept separate here so statusvalidator
// never depends on the concrete store package (spec §4.3 prerequisite
// table; spec §9 "optional parent pointers, no object graph").
type PrerequisiteStore interface {
	TaskCounts(ctx context.Context, featureID uuid.UUID) (models.TaskCounts, error)
	NonTerminalTaskTitles(ctx context.Context, featureID uuid.UUID, terminalStatuses []string) ([]string, error)
	FeatureCounts(ctx context.Context, projectID uuid.UUID) (models.FeatureCounts, error)

	// BlockingTasks returns every task with a live BLOCKS edge into
	// taskID: upstream tasks that are neither completed nor cancelled
	// (spec §4.3 "task -> in-progress" rule).
	BlockingTasks(ctx context.Context, taskID uuid.UUID) ([]models.Task, error)
}

// PrerequisiteContext supplies the store handle and the summary text
// ValidateTransition needs to evaluate the prerequisite table without
// re-fetching the entity being transitioned.
type PrerequisiteContext struct {
	Store       PrerequisiteStore
	ContainerID uuid.UUID
	Summary     string
}

const (
	minCompletionSummaryLen = 300
	maxCompletionSummaryLen = 500
)

// CheckPrerequisite evaluates spec §4.3's prerequisite table for a
// given (container, targetStatus) pair. It returns Valid when no rule
// applies to this pair. Exported so the progression service (C4) can
// run the same checks speculatively against a candidate next status
// without duplicating the rule table (spec §4.4).
func CheckPrerequisite(ctx context.Context, container workflowconfig.ContainerType, target string, pctx *PrerequisiteContext) Result {
	if pctx == nil || pctx.Store == nil {
		return Valid()
	}
	target = workflowconfig.NormalizeStatus(target)

	switch container {
	case workflowconfig.ContainerFeature:
		switch target {
		case "in-development":
			counts, err := pctx.Store.TaskCounts(ctx, pctx.ContainerID)
			if err != nil {
				return Invalid(fmt.Sprintf("could not read task count: %v", err))
			}
			if counts.Total < 1 {
				return Invalid("feature has no tasks yet")
			}
		case "testing":
			counts, err := pctx.Store.TaskCounts(ctx, pctx.ContainerID)
			if err != nil {
				return Invalid(fmt.Sprintf("could not read task count: %v", err))
			}
			if counts.Total < 1 {
				return Invalid("feature has no tasks yet")
			}
			failing, err := pctx.Store.NonTerminalTaskTitles(ctx, pctx.ContainerID, []string{"completed", "cancelled", "deferred"})
			if err != nil {
				return Invalid(fmt.Sprintf("could not read task statuses: %v", err))
			}
			if len(failing) > 0 {
				return Invalid("tasks not yet terminal: " + strings.Join(failing, ", "))
			}
		case "completed":
			failing, err := pctx.Store.NonTerminalTaskTitles(ctx, pctx.ContainerID, []string{"completed", "cancelled", "deferred"})
			if err != nil {
				return Invalid(fmt.Sprintf("could not read task statuses: %v", err))
			}
			if len(failing) > 0 {
				return Invalid("tasks not yet terminal: " + strings.Join(failing, ", "))
			}
		}

	case workflowconfig.ContainerProject:
		if target == "completed" {
			counts, err := pctx.Store.FeatureCounts(ctx, pctx.ContainerID)
			if err != nil {
				return Invalid(fmt.Sprintf("could not read feature count: %v", err))
			}
			if counts.Total < 1 {
				return Invalid("project has no features yet")
			}
			terminal := counts.ByStatus["completed"] + counts.ByStatus["cancelled"] + counts.ByStatus["deferred"]
			if terminal < counts.Total {
				return Invalid(fmt.Sprintf("%d of %d features are not yet terminal", counts.Total-terminal, counts.Total))
			}
		}

	case workflowconfig.ContainerTask:
		switch target {
		case "in-progress":
			blockers, err := pctx.Store.BlockingTasks(ctx, pctx.ContainerID)
			if err != nil {
				return Invalid(fmt.Sprintf("could not read blocking tasks: %v", err))
			}
			if len(blockers) > 0 {
				titles := make([]string, len(blockers))
				for i, b := range blockers {
					titles[i] = b.Title
				}
				return Invalid("blocked by: " + strings.Join(titles, ", "))
			}
		case "completed":
			n := len(pctx.Summary)
			if n < minCompletionSummaryLen || n > maxCompletionSummaryLen {
				return Invalid(fmt.Sprintf("summary must be between %d and %d characters (got %d)", minCompletionSummaryLen, maxCompletionSummaryLen, n))
			}
		}
	}

	return Valid()
}
