// Package cascade implements the Cascade Service (C6): after a
// committed transition, it detects upward cascade events (task ->
// feature -> project), applies them recursively to a bounded depth,
// and runs the completion-cleanup sweep on a feature reaching a
// terminal status. Grounded on the teacher's
// internal/repository/status_calculator.go upward-rollup pattern and
// internal/dependency/detector.go's graph-walk idiom, generalized from
// a fixed parent-child rollup to workflowconfig's tag-selected flows.
package cascade

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
	"github.com/jwwelbor/shark-task-manager/internal/progression"
	"github.com/jwwelbor/shark-task-manager/internal/statusvalidator"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// CascadeEvent describes one candidate upward status change, detected
// but not yet applied.
type CascadeEvent struct {
	Event           string
	TargetType      workflowconfig.ContainerType
	TargetID        uuid.UUID
	CurrentStatus   string
	SuggestedStatus string
	Flow            string
	Reason          string
	Automatic       bool
}

// UnblockedTask is one downstream task whose last live BLOCKS
// predecessor just went terminal.
type UnblockedTask struct {
	TaskID uuid.UUID
	Title  string
}

// CleanupReport summarizes a completion-cleanup sweep over one
// feature's child tasks.
type CleanupReport struct {
	TasksDeleted    int
	TasksRetained   int
	RetainedTaskIDs []uuid.UUID
}

// AppliedCascade is the outcome of attempting to apply one
// CascadeEvent, including whatever it triggered beneath it.
type AppliedCascade struct {
	Event          CascadeEvent
	Applied        bool
	PreviousStatus string
	NewStatus      string
	Error          string
	ChildCascades  []AppliedCascade
	UnblockedTasks []UnblockedTask
	Cleanup        *CleanupReport
}

// Service implements detectCascadeEvents, applyCascades, and
// findNewlyUnblockedTasks against a Store and the shared C2-C4
// collaborators.
type Service struct {
	store       Store
	loader      *workflowconfig.Loader
	validator   *statusvalidator.Validator
	progression *progression.Service
}

// New builds a cascade Service.
func New(store Store, loader *workflowconfig.Loader, validator *statusvalidator.Validator, prog *progression.Service) *Service {
	return &Service{store: store, loader: loader, validator: validator, progression: prog}
}

// DetectCascadeEvents implements spec §4.6's three rule groups.
func (s *Service) DetectCascadeEvents(ctx context.Context, workDir string, containerID uuid.UUID, container workflowconfig.ContainerType) ([]CascadeEvent, error) {
	switch container {
	case workflowconfig.ContainerTask:
		return s.detectFromTask(ctx, workDir, containerID)
	case workflowconfig.ContainerFeature:
		return s.detectFromFeature(ctx, workDir, containerID)
	default:
		return nil, nil
	}
}

func (s *Service) detectFromTask(ctx context.Context, workDir string, taskID uuid.UUID) ([]CascadeEvent, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("cascade: load task: %w", err)
	}
	if task.FeatureID == nil {
		return nil, nil
	}
	featureID := *task.FeatureID

	feature, err := s.store.GetFeature(ctx, featureID)
	if err != nil {
		return nil, fmt.Errorf("cascade: load feature: %w", err)
	}
	counts, err := s.store.TaskCounts(ctx, featureID)
	if err != nil {
		return nil, fmt.Errorf("cascade: load task counts: %w", err)
	}

	featurePath := s.progression.GetFlowPath(workDir, workflowconfig.ContainerFeature, feature.Tags, feature.Status)

	var events []CascadeEvent

	terminalTasks := counts.ByStatus["completed"] + counts.ByStatus["cancelled"] + counts.ByStatus["deferred"]
	if counts.Total > 0 && terminalTasks == counts.Total && !featurePath.IsTerminal(feature.Status) {
		rec := s.progression.Next(ctx, workDir, workflowconfig.ContainerFeature, feature.Tags, feature.Status, nil)
		if rec.Kind == progression.KindReady {
			events = append(events, CascadeEvent{
				Event:           "all_tasks_complete",
				TargetType:      workflowconfig.ContainerFeature,
				TargetID:        featureID,
				CurrentStatus:   feature.Status,
				SuggestedStatus: rec.RecommendedStatus,
				Flow:            rec.FlowPath.ActiveFlow,
				Reason:          "every task in the feature reached a terminal status",
				Automatic:       true,
			})
		}
	}

	if workflowconfig.NormalizeStatus(task.Status) == "in-progress" && counts.ByStatus["in-progress"] == 1 && featurePath.CurrentPosition == 0 {
		rec := s.progression.Next(ctx, workDir, workflowconfig.ContainerFeature, feature.Tags, feature.Status, nil)
		if rec.Kind == progression.KindReady {
			events = append(events, CascadeEvent{
				Event:           "first_task_started",
				TargetType:      workflowconfig.ContainerFeature,
				TargetID:        featureID,
				CurrentStatus:   feature.Status,
				SuggestedStatus: rec.RecommendedStatus,
				Flow:            rec.FlowPath.ActiveFlow,
				Reason:          "first task in the feature started work",
				Automatic:       true,
			})
		}
	}

	return events, nil
}

func (s *Service) detectFromFeature(ctx context.Context, workDir string, featureID uuid.UUID) ([]CascadeEvent, error) {
	feature, err := s.store.GetFeature(ctx, featureID)
	if err != nil {
		return nil, fmt.Errorf("cascade: load feature: %w", err)
	}
	if feature.ProjectID == nil {
		return nil, nil
	}
	projectID := *feature.ProjectID

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cascade: load project: %w", err)
	}
	featureCounts, err := s.store.FeatureCounts(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cascade: load feature counts: %w", err)
	}

	featurePath := s.progression.GetFlowPath(workDir, workflowconfig.ContainerFeature, feature.Tags, feature.Status)
	projectPath := s.progression.GetFlowPath(workDir, workflowconfig.ContainerProject, project.Tags, project.Status)

	if !featurePath.IsTerminal(feature.Status) {
		return nil, nil
	}
	if featureCounts.Total == 0 || featureCounts.Completed != featureCounts.Total {
		return nil, nil
	}
	if projectPath.IsTerminal(project.Status) {
		return nil, nil
	}

	rec := s.progression.Next(ctx, workDir, workflowconfig.ContainerProject, project.Tags, project.Status, nil)
	if rec.Kind != progression.KindReady {
		return nil, nil
	}

	return []CascadeEvent{{
		Event:           "all_features_complete",
		TargetType:      workflowconfig.ContainerProject,
		TargetID:        projectID,
		CurrentStatus:   project.Status,
		SuggestedStatus: rec.RecommendedStatus,
		Flow:            rec.FlowPath.ActiveFlow,
		Reason:          "every feature in the project completed",
		Automatic:       true,
	}}, nil
}

// ApplyCascades implements spec §4.6's recursive apply algorithm.
func (s *Service) ApplyCascades(ctx context.Context, workDir string, containerID uuid.UUID, container workflowconfig.ContainerType, depth, maxDepth int) ([]AppliedCascade, error) {
	if depth >= maxDepth {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events, err := s.DetectCascadeEvents(ctx, workDir, containerID, container)
	if err != nil {
		return nil, err
	}

	results := make([]AppliedCascade, 0, len(events))
	for _, event := range events {
		results = append(results, s.applyOne(ctx, workDir, event, depth, maxDepth))
	}
	return results, nil
}

func (s *Service) applyOne(ctx context.Context, workDir string, event CascadeEvent, depth, maxDepth int) AppliedCascade {
	status, version, tags, err := s.loadTarget(ctx, event.TargetType, event.TargetID)
	if err != nil {
		return AppliedCascade{Event: event, Applied: false, Error: err.Error()}
	}

	if workflowconfig.NormalizeStatus(status) == workflowconfig.NormalizeStatus(event.SuggestedStatus) {
		return AppliedCascade{Event: event, Applied: false, PreviousStatus: status}
	}

	result := s.validator.ValidateTransition(ctx, workDir, status, event.SuggestedStatus, event.TargetType, tags, nil)
	if !result.OK() {
		return AppliedCascade{Event: event, Applied: false, PreviousStatus: status, Error: result.Message}
	}

	if _, err := s.store.UpdateStatus(ctx, event.TargetType, event.TargetID, event.SuggestedStatus, version); err != nil {
		return AppliedCascade{Event: event, Applied: false, PreviousStatus: status, Error: err.Error()}
	}

	ac := AppliedCascade{Event: event, Applied: true, PreviousStatus: status, NewStatus: event.SuggestedStatus}

	role, _ := s.progression.GetRoleForStatus(workDir, event.SuggestedStatus, event.TargetType, tags)
	_ = s.store.RecordTransition(ctx, models.ContainerType(event.TargetType), event.TargetID, status, event.SuggestedStatus, role)

	children, err := s.ApplyCascades(ctx, workDir, event.TargetID, event.TargetType, depth+1, maxDepth)
	if err != nil {
		ac.Error = err.Error()
	} else {
		ac.ChildCascades = children
	}

	if event.TargetType == workflowconfig.ContainerFeature {
		if report := s.maybeCleanup(ctx, workDir, event.TargetID, tags, event.SuggestedStatus); report != nil {
			ac.Cleanup = report
		}
	}

	return ac
}

// loadTarget fetches a cascade target's current status, version, and
// tags, dispatching on its container type.
func (s *Service) loadTarget(ctx context.Context, container workflowconfig.ContainerType, id uuid.UUID) (status string, version int64, tags []string, err error) {
	switch container {
	case workflowconfig.ContainerFeature:
		f, err := s.store.GetFeature(ctx, id)
		if err != nil {
			return "", 0, nil, err
		}
		return f.Status, f.Version, f.Tags, nil
	case workflowconfig.ContainerProject:
		p, err := s.store.GetProject(ctx, id)
		if err != nil {
			return "", 0, nil, err
		}
		return p.Status, p.Version, p.Tags, nil
	default:
		return "", 0, nil, fmt.Errorf("cascade: unsupported target container %q", container)
	}
}

// maybeCleanup runs the completion-cleanup sweep when the feature just
// reached a terminal status and the config enables it; returns nil
// when cleanup doesn't apply or fails (a failed cleanup is not a
// cascade failure — the status change already committed).
func (s *Service) maybeCleanup(ctx context.Context, workDir string, featureID uuid.UUID, tags []string, newStatus string) *CleanupReport {
	cfg, v1Mode := s.loader.Load(workDir)
	if v1Mode || !cfg.CompletionCleanup.Enabled {
		return nil
	}
	path := s.progression.GetFlowPath(workDir, workflowconfig.ContainerFeature, tags, newStatus)
	if !path.IsTerminal(newStatus) {
		return nil
	}
	report, err := s.cleanupFeature(ctx, featureID)
	if err != nil {
		return nil
	}
	return report
}

func (s *Service) cleanupFeature(ctx context.Context, featureID uuid.UUID) (*CleanupReport, error) {
	tasks, err := s.store.TasksByFeature(ctx, featureID)
	if err != nil {
		return nil, fmt.Errorf("cascade: load feature tasks for cleanup: %w", err)
	}

	report := &CleanupReport{}
	for _, t := range tasks {
		switch workflowconfig.NormalizeStatus(t.Status) {
		case "completed", "cancelled", "deferred":
			if err := s.store.DeleteTaskCascade(ctx, t.ID); err != nil {
				return nil, fmt.Errorf("cascade: delete task %s during cleanup: %w", t.ID, err)
			}
			report.TasksDeleted++
		default:
			report.RetainedTaskIDs = append(report.RetainedTaskIDs, t.ID)
		}
	}
	report.TasksRetained = len(report.RetainedTaskIDs)
	return report, nil
}
