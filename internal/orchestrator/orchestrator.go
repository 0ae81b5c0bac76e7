// Package orchestrator implements the Transition Orchestrator (C7): the
// single entry point that composes the entity store (C1), workflow
// config (C2), status validator (C3), status progression (C4),
// verification gate (C5), and cascade service (C6) to apply one or a
// batch of trigger-based transitions. New relative to the teacher: the
// teacher has no equivalent dispatch layer, its CLI commands call
// repository and validator directly per-command. Grounded in shape on
// the teacher's per-command flow (load -> validate -> mutate -> report,
// seen throughout internal/cli/commands) generalized into a batch loop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/cascade"
	"github.com/jwwelbor/shark-task-manager/internal/models"
	"github.com/jwwelbor/shark-task-manager/internal/progression"
	"github.com/jwwelbor/shark-task-manager/internal/statusvalidator"
	"github.com/jwwelbor/shark-task-manager/internal/store"
	"github.com/jwwelbor/shark-task-manager/internal/verification"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// Trigger is the closed set of orchestrator inputs (spec §4.7).
type Trigger string

const (
	TriggerStart    Trigger = "start"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
	TriggerBlock    Trigger = "block"
	TriggerHold     Trigger = "hold"
)

// fixedTargets maps every trigger but `start` directly to a status;
// `start` alone is resolved dynamically via C4 (spec §4.7 step 2).
var fixedTargets = map[Trigger]string{
	TriggerComplete: "completed",
	TriggerCancel:   "cancelled",
	TriggerBlock:    "blocked",
	TriggerHold:     "on-hold",
}

// TransitionRequest is one entry of an orchestrator batch.
type TransitionRequest struct {
	ContainerID   uuid.UUID
	ContainerType workflowconfig.ContainerType
	Trigger       Trigger
	Summary       string
}

// ItemResult is the per-item outcome (spec §6's per-item success/failure
// shapes, merged into one struct with Applied discriminating which
// fields are meaningful).
type ItemResult struct {
	ContainerID   uuid.UUID                   `json:"container_id"`
	ContainerType workflowconfig.ContainerType `json:"container_type"`
	Trigger       Trigger                      `json:"trigger"`
	Applied       bool                         `json:"applied"`

	PreviousStatus string `json:"previous_status,omitempty"`
	NewStatus      string `json:"new_status,omitempty"`
	CurrentStatus  string `json:"current_status,omitempty"`
	TargetStatus   string `json:"target_status,omitempty"`

	PreviousRole string `json:"previous_role,omitempty"`
	NewRole      string `json:"new_role,omitempty"`

	Summary  string `json:"summary,omitempty"`
	Advisory string `json:"advisory,omitempty"`

	ErrorCode string `json:"error,omitempty"`
	Reason    string `json:"reason,omitempty"`

	Suggestions     []string `json:"suggestions,omitempty"`
	Gate            string   `json:"gate,omitempty"`
	FailingCriteria []string `json:"failing_criteria,omitempty"`

	CascadeEvents  []cascade.AppliedCascade `json:"cascade_events,omitempty"`
	UnblockedTasks []cascade.UnblockedTask  `json:"unblocked_tasks,omitempty"`

	ActiveFlow   string   `json:"active_flow,omitempty"`
	FlowSequence []string `json:"flow_sequence,omitempty"`
	FlowPosition int      `json:"flow_position,omitempty"`

	// Progress is a 0.0-1.0 completion estimate over the entity's
	// children: a feature's tasks or a project's features. Attached only
	// when the transitioned entity is a feature or a project (spec §3's
	// Progress supplement).
	Progress *float64 `json:"progress,omitempty"`
}

// BatchSummary aggregates a batch's per-item outcomes (spec §6).
type BatchSummary struct {
	Total             int                     `json:"total"`
	Succeeded         int                     `json:"succeeded"`
	Failed            int                     `json:"failed"`
	AllUnblockedTasks []cascade.UnblockedTask `json:"all_unblocked_tasks,omitempty"`
	CascadesApplied   int                     `json:"cascades_applied"`
}

// BatchResult is the orchestrator's full response to one batch.
type BatchResult struct {
	Results []ItemResult `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// Store is the slice of the entity store (C1) the orchestrator needs:
// entity reads across all three container types plus the C3/C5/C6
// store-facing interfaces those collaborators require. Satisfied by
// internal/store's Store.
type Store interface {
	statusvalidator.PrerequisiteStore
	verification.SectionFinder
	cascade.Store

	RecordTransition(ctx context.Context, entityType models.ContainerType, entityID uuid.UUID, fromStatus, toStatus, role string) error
}

// Service wires C1-C6 behind ProcessOne/ProcessBatch.
type Service struct {
	store     Store
	loader    *workflowconfig.Loader
	validator *statusvalidator.Validator
	prog      *progression.Service
	cascade   *cascade.Service
}

// New builds an orchestrator Service.
func New(s Store, loader *workflowconfig.Loader, validator *statusvalidator.Validator, prog *progression.Service, cascadeSvc *cascade.Service) *Service {
	return &Service{store: s, loader: loader, validator: validator, prog: prog, cascade: cascadeSvc}
}

// ProcessBatch applies a batch of transitions in list order (spec §4.7,
// §5 "ordering guarantees"): each item observes the effect of
// preceding items, and a cancelled context aborts before the next
// item rather than mid-item.
func (s *Service) ProcessBatch(ctx context.Context, workDir string, items []TransitionRequest) BatchResult {
	results := make([]ItemResult, 0, len(items))
	summary := BatchSummary{Total: len(items)}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			break
		}
		result := s.ProcessOne(ctx, workDir, item)
		results = append(results, result)

		if result.Applied {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		for _, ac := range result.CascadeEvents {
			if ac.Applied {
				summary.CascadesApplied++
			}
		}
		summary.AllUnblockedTasks = append(summary.AllUnblockedTasks, result.UnblockedTasks...)
	}

	return BatchResult{Results: results, Summary: summary}
}

// ProcessOne runs the full per-item algorithm (spec §4.7).
func (s *Service) ProcessOne(ctx context.Context, workDir string, item TransitionRequest) ItemResult {
	result := ItemResult{ContainerID: item.ContainerID, ContainerType: item.ContainerType, Trigger: item.Trigger}

	entity, err := s.loadEntity(ctx, item.ContainerType, item.ContainerID)
	if err != nil {
		result.ErrorCode = errorCode(err)
		return result
	}

	flowPath := s.prog.GetFlowPath(workDir, item.ContainerType, entity.tags, entity.status)
	target, blockResult, ok := s.resolveTarget(ctx, workDir, item, entity)
	if !ok {
		result.CurrentStatus = entity.status
		result.Reason = blockResult.Reason
		result.ActiveFlow = blockResult.FlowPath.ActiveFlow
		result.FlowSequence = blockResult.FlowPath.FlowSequence
		result.FlowPosition = blockResult.FlowPath.CurrentPosition
		return result
	}

	if workflowconfig.NormalizeStatus(target) == workflowconfig.NormalizeStatus(entity.status) {
		result.CurrentStatus = entity.status
		result.Reason = "no-op"
		s.attachFlow(&result, flowPath)
		return result
	}

	prereq := &statusvalidator.PrerequisiteContext{Store: s.store, ContainerID: item.ContainerID, Summary: item.Summary}
	validation := s.validator.ValidateTransition(ctx, workDir, entity.status, target, item.ContainerType, entity.tags, prereq)
	if !validation.OK() {
		result.CurrentStatus = entity.status
		result.TargetStatus = target
		result.Reason = validation.Message
		result.Suggestions = validation.Suggestions
		s.attachFlow(&result, flowPath)
		return result
	}

	if item.Trigger == TriggerComplete && entity.requiresVerification {
		gate := verification.Check(ctx, s.store, models.ContainerType(item.ContainerType), item.ContainerID)
		if !gate.Passed() {
			result.CurrentStatus = entity.status
			result.TargetStatus = target
			result.Gate = "verification"
			result.FailingCriteria = gate.FailingCriteria
			if gate.Detail != "" {
				result.Reason = gate.Detail
			}
			s.attachFlow(&result, flowPath)
			return result
		}
	}

	if _, err := s.store.UpdateStatus(ctx, item.ContainerType, item.ContainerID, target, entity.version); err != nil {
		result.CurrentStatus = entity.status
		result.TargetStatus = target
		result.ErrorCode = errorCode(err)
		s.attachFlow(&result, flowPath)
		return result
	}

	result.Applied = true
	result.PreviousStatus = entity.status
	result.NewStatus = target
	result.Summary = item.Summary
	if validation.Kind == statusvalidator.KindValidWithAdvisory {
		result.Advisory = validation.Message
	}

	if role, ok := s.prog.GetRoleForStatus(workDir, entity.status, item.ContainerType, entity.tags); ok {
		result.PreviousRole = role
	}
	newFlowPath := s.prog.GetFlowPath(workDir, item.ContainerType, entity.tags, target)
	if role, ok := s.prog.GetRoleForStatus(workDir, target, item.ContainerType, entity.tags); ok {
		result.NewRole = role
	}

	// Best-effort: the audit trail never blocks the transition it records.
	_ = s.store.RecordTransition(ctx, models.ContainerType(item.ContainerType), item.ContainerID, result.PreviousStatus, result.NewStatus, result.NewRole)

	cfg, v1Mode := s.loader.Load(workDir)
	if !v1Mode && cfg.AutoCascade.Enabled {
		applied, err := s.cascade.ApplyCascades(ctx, workDir, item.ContainerID, item.ContainerType, 0, cfg.AutoCascade.MaxDepth)
		if err == nil {
			result.CascadeEvents = applied
		}
	} else {
		events, err := s.cascade.DetectCascadeEvents(ctx, workDir, item.ContainerID, item.ContainerType)
		if err == nil {
			suggestions := make([]cascade.AppliedCascade, 0, len(events))
			for _, e := range events {
				e.Automatic = false
				suggestions = append(suggestions, cascade.AppliedCascade{Event: e, Applied: false, PreviousStatus: e.CurrentStatus})
			}
			result.CascadeEvents = suggestions
		}
	}

	if item.ContainerType == workflowconfig.ContainerTask {
		switch workflowconfig.NormalizeStatus(target) {
		case "completed", "cancelled":
			unblocked, err := s.cascade.FindNewlyUnblockedTasks(ctx, workDir, item.ContainerID)
			if err == nil {
				result.UnblockedTasks = unblocked
			}
		}
	}

	switch item.ContainerType {
	case workflowconfig.ContainerFeature:
		if p, err := s.featureProgress(ctx, workDir, item.ContainerID); err == nil {
			result.Progress = &p
		}
	case workflowconfig.ContainerProject:
		if p, err := s.projectProgress(ctx, workDir, item.ContainerID); err == nil {
			result.Progress = &p
		}
	}

	s.attachFlow(&result, newFlowPath)
	return result
}

// featureProgress classifies the feature's child tasks by workflow
// role (the same classification GetRoleForStatus reports for
// PreviousRole/NewRole above) and reduces the distribution to a single
// completion estimate via models.Progress.
func (s *Service) featureProgress(ctx context.Context, workDir string, featureID uuid.UUID) (float64, error) {
	counts, err := s.store.TaskCounts(ctx, featureID)
	if err != nil {
		return 0, err
	}
	roleCounts := make(map[models.Role]int, len(counts.ByStatus))
	for status, n := range counts.ByStatus {
		role, ok := s.prog.GetRoleForStatus(workDir, status, workflowconfig.ContainerTask, nil)
		if !ok {
			continue
		}
		roleCounts[models.Role(role)] += n
	}
	return models.Progress(roleCounts), nil
}

// projectProgress is featureProgress's project-level counterpart: it
// classifies the project's child features by role instead of a
// feature's child tasks.
func (s *Service) projectProgress(ctx context.Context, workDir string, projectID uuid.UUID) (float64, error) {
	counts, err := s.store.FeatureCounts(ctx, projectID)
	if err != nil {
		return 0, err
	}
	roleCounts := make(map[models.Role]int, len(counts.ByStatus))
	for status, n := range counts.ByStatus {
		role, ok := s.prog.GetRoleForStatus(workDir, status, workflowconfig.ContainerFeature, nil)
		if !ok {
			continue
		}
		roleCounts[models.Role(role)] += n
	}
	return models.Progress(roleCounts), nil
}

func (s *Service) attachFlow(result *ItemResult, path workflowconfig.FlowPath) {
	result.ActiveFlow = path.ActiveFlow
	result.FlowSequence = path.FlowSequence
	result.FlowPosition = path.CurrentPosition
}

// resolveTarget implements spec §4.7 step 2. ok is false when the
// request cannot proceed (an unready `start`): the caller should stop
// and surface blockResult's Reason/FlowPath.
func (s *Service) resolveTarget(ctx context.Context, workDir string, item TransitionRequest, entity entitySnapshot) (target string, blocked progression.Recommendation, ok bool) {
	if item.Trigger != TriggerStart {
		status, known := fixedTargets[item.Trigger]
		if !known {
			return "", progression.Recommendation{Reason: fmt.Sprintf("unknown trigger %q", item.Trigger)}, false
		}
		return status, progression.Recommendation{}, true
	}

	prereq := &statusvalidator.PrerequisiteContext{Store: s.store, ContainerID: item.ContainerID, Summary: item.Summary}
	rec := s.prog.Next(ctx, workDir, item.ContainerType, entity.tags, entity.status, prereq)
	switch rec.Kind {
	case progression.KindReady:
		return rec.RecommendedStatus, rec, true
	case progression.KindBlocked:
		return "", rec, false
	default: // KindTerminal
		if rec.Reason == "" {
			rec.Reason = "container is in a terminal status"
		}
		return "", rec, false
	}
}

// entitySnapshot is the generic shape ProcessOne needs regardless of
// container type; Project has no requires_verification flag and
// always reports false.
type entitySnapshot struct {
	status               string
	version              int64
	tags                 []string
	requiresVerification bool
}

func (s *Service) loadEntity(ctx context.Context, container workflowconfig.ContainerType, id uuid.UUID) (entitySnapshot, error) {
	switch container {
	case workflowconfig.ContainerTask:
		t, err := s.store.GetTask(ctx, id)
		if err != nil {
			return entitySnapshot{}, err
		}
		return entitySnapshot{status: t.Status, version: t.Version, tags: t.Tags, requiresVerification: t.RequiresVerification}, nil
	case workflowconfig.ContainerFeature:
		f, err := s.store.GetFeature(ctx, id)
		if err != nil {
			return entitySnapshot{}, err
		}
		return entitySnapshot{status: f.Status, version: f.Version, tags: f.Tags, requiresVerification: f.RequiresVerification}, nil
	case workflowconfig.ContainerProject:
		p, err := s.store.GetProject(ctx, id)
		if err != nil {
			return entitySnapshot{}, err
		}
		return entitySnapshot{status: p.Status, version: p.Version, tags: p.Tags}, nil
	default:
		return entitySnapshot{}, fmt.Errorf("unknown container type %q", container)
	}
}

// errorCode maps a store error onto spec §6's tool-facing error-code
// enum. Non-store errors (config/internal failures) fall through to
// INTERNAL_ERROR.
func errorCode(err error) string {
	var se *store.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case store.KindNotFound:
			return "RESOURCE_NOT_FOUND"
		case store.KindVersionConflict:
			return "CONFLICT_ERROR"
		case store.KindValidationError:
			return "VALIDATION_ERROR"
		case store.KindConflictError:
			return "DEPENDENCY_ERROR"
		case store.KindDatabaseError:
			return "DATABASE_ERROR"
		}
	}
	return "INTERNAL_ERROR"
}
