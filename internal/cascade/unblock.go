package cascade

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// FindNewlyUnblockedTasks implements spec §4.6's findNewlyUnblockedTasks:
// walk taskID's outgoing BLOCKS edges, and for each downstream task not
// itself terminal, check whether every upstream BLOCKS predecessor is
// now terminal (or gone). Grounded on the teacher's
// internal/dependency/detector.go graph-walk idiom, adapted from cycle
// detection (DFS over the whole graph) to a one-hop, incoming-edge scan
// rooted at each downstream candidate.
func (s *Service) FindNewlyUnblockedTasks(ctx context.Context, workDir string, taskID uuid.UUID) ([]UnblockedTask, error) {
	outgoing, err := s.store.DependenciesFrom(ctx, taskID, models.DependencyBlocks)
	if err != nil {
		return nil, fmt.Errorf("cascade: load outgoing dependencies: %w", err)
	}

	var unblocked []UnblockedTask
	for _, edge := range outgoing {
		downstream, err := s.store.GetTask(ctx, edge.ToTaskID)
		if err != nil {
			continue
		}
		if s.isTerminalTask(workDir, downstream) {
			continue
		}

		incoming, err := s.store.DependenciesTo(ctx, downstream.ID, models.DependencyBlocks)
		if err != nil {
			continue
		}

		if s.allUpstreamTerminal(ctx, workDir, incoming) {
			unblocked = append(unblocked, UnblockedTask{TaskID: downstream.ID, Title: downstream.Title})
		}
	}
	return unblocked, nil
}

func (s *Service) allUpstreamTerminal(ctx context.Context, workDir string, incoming []models.Dependency) bool {
	for _, edge := range incoming {
		upstream, err := s.store.GetTask(ctx, edge.FromTaskID)
		if err != nil || upstream == nil {
			// A missing upstream task can no longer block anything.
			continue
		}
		if !s.isTerminalTask(workDir, upstream) {
			return false
		}
	}
	return true
}

func (s *Service) isTerminalTask(workDir string, task *models.Task) bool {
	path := s.progression.GetFlowPath(workDir, workflowconfig.ContainerTask, task.Tags, task.Status)
	return path.IsTerminal(task.Status)
}
