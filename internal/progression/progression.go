// Package progression implements the Status Progression Service (C4):
// given a container's current status and tags, it recommends the next
// status in its resolved flow, or reports that the container is
// blocked on a prerequisite or already terminal. Generalizes the
// teacher's internal/workflow/service.go (flat status_flow map,
// GetValidTransitions/IsValidTransition) to workflowconfig's
// tag-selected, multi-flow, prerequisite-aware model.
package progression

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/statusvalidator"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// Kind discriminates the three Recommendation variants (spec §4.4).
type Kind int

const (
	KindReady Kind = iota
	KindBlocked
	KindTerminal
)

// Recommendation is the sum type progression.Next returns.
type Recommendation struct {
	Kind Kind

	// Populated for KindReady.
	RecommendedStatus string

	// Populated for KindBlocked.
	Reason     string
	BlockerIDs []uuid.UUID

	// Populated for KindTerminal.
	Status string

	// Always populated.
	FlowPath workflowconfig.FlowPath
}

// Service resolves progression recommendations for one workDir's config.
type Service struct {
	loader *workflowconfig.Loader
}

// New builds a progression Service backed by loader.
func New(loader *workflowconfig.Loader) *Service {
	return &Service{loader: loader}
}

// GetFlowPath exposes the resolved FlowPath for response enrichment
// (spec §4.4), independent of computing a recommendation.
func (s *Service) GetFlowPath(workDir string, container workflowconfig.ContainerType, tags []string, currentStatus string) workflowconfig.FlowPath {
	cfg, v1Mode := s.loader.Load(workDir)
	if v1Mode {
		return workflowconfig.FlowPath{ActiveFlow: "default", CurrentPosition: -1}
	}
	return cfg.ResolveFlowPath(container, tags, currentStatus)
}

// GetRoleForStatus classifies status into queue/work/review/blocked/
// terminal for response enrichment. Returns ("", false) only in V1
// mode; a status outside the resolved flow that is neither terminal
// nor an emergency status classifies as queue.
func (s *Service) GetRoleForStatus(workDir string, status string, container workflowconfig.ContainerType, tags []string) (string, bool) {
	cfg, v1Mode := s.loader.Load(workDir)
	if v1Mode {
		return "", false
	}
	path := cfg.ResolveFlowPath(container, tags, status)
	return classifyRole(path, status), true
}

func classifyRole(path workflowconfig.FlowPath, status string) string {
	if path.IsTerminal(status) {
		return "terminal"
	}
	if path.IsEmergency(status) {
		return "blocked"
	}
	idx := path.IndexOf(status)
	if idx < 0 {
		return "queue"
	}
	n := len(path.FlowSequence)
	switch {
	case idx == 0:
		return "queue"
	case idx == n-1:
		return "review"
	default:
		return "work"
	}
}

// Next implements spec §4.4's algorithm: resolve the FlowPath; if
// current_status is terminal, return Terminal; otherwise the candidate
// is the next flow-sequence entry, speculatively checked against the
// prerequisite table (when prereq is non-nil) before being recommended.
func (s *Service) Next(ctx context.Context, workDir string, container workflowconfig.ContainerType, tags []string, currentStatus string, prereq *statusvalidator.PrerequisiteContext) Recommendation {
	cfg, v1Mode := s.loader.Load(workDir)
	if v1Mode {
		return Recommendation{Kind: KindTerminal, Status: currentStatus, FlowPath: workflowconfig.FlowPath{ActiveFlow: "default", CurrentPosition: -1}}
	}

	path := cfg.ResolveFlowPath(container, tags, currentStatus)

	if path.IsTerminal(currentStatus) {
		return Recommendation{Kind: KindTerminal, Status: currentStatus, FlowPath: path}
	}

	pos := path.CurrentPosition
	if pos < 0 || pos+1 >= len(path.FlowSequence) {
		return Recommendation{
			Kind:     KindBlocked,
			Reason:   "current status is not positioned in an active flow",
			FlowPath: path,
		}
	}

	next := path.FlowSequence[pos+1]

	if cfg.StatusValidation.ValidatePrerequisites && prereq != nil {
		result := statusvalidator.CheckPrerequisite(ctx, container, next, prereq)
		if !result.OK() {
			return Recommendation{
				Kind:       KindBlocked,
				Reason:     result.Message,
				BlockerIDs: blockerIDs(ctx, container, next, prereq),
				FlowPath:   path,
			}
		}
	}

	return Recommendation{
		Kind:              KindReady,
		RecommendedStatus: next,
		FlowPath:          path,
	}
}

// blockerIDs resolves the specific upstream task ids for the one
// prerequisite rule the spec calls out by id (task -> in-progress,
// spec §4.4); every other rule's Blocked carries Reason only.
func blockerIDs(ctx context.Context, container workflowconfig.ContainerType, next string, prereq *statusvalidator.PrerequisiteContext) []uuid.UUID {
	if container != workflowconfig.ContainerTask || workflowconfig.NormalizeStatus(next) != "in-progress" || prereq == nil || prereq.Store == nil {
		return nil
	}
	blockers, err := prereq.Store.BlockingTasks(ctx, prereq.ContainerID)
	if err != nil {
		return nil
	}
	ids := make([]uuid.UUID, len(blockers))
	for i, b := range blockers {
		ids[i] = b.ID
	}
	return ids
}
