// Package statusvalidator implements the Status Validator (C3):
// validating a bare status string against a container's allowed set,
// and validating a (from,to) transition against the active flow,
// emergency/backward/sequential policy, and the prerequisite table.
// Generalizes the teacher's internal/validation/workflow_validator.go,
// whose StatusValidator wrapped a single flat status_flow map, into the
// tag-selected multi-flow model workflowconfig resolves.
package statusvalidator

import (
	"context"

	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// environmentTags is the recognized set checked against a `deployed`
// status advisory (spec §4.3 rule 4).
var environmentTags = map[string]struct{}{
	"staging": {}, "production": {}, "prod": {}, "canary": {}, "dev": {}, "development": {},
}

// Validator evaluates status strings and transitions for one container
// type's entities, against a workflowconfig.Loader-resolved config. It
// holds no per-entity state and is safe for concurrent use.
type Validator struct {
	loader *workflowconfig.Loader
}

// New builds a Validator backed by loader.
func New(loader *workflowconfig.Loader) *Validator {
	return &Validator{loader: loader}
}

// ValidateStatus implements spec §4.3's validateStatus rule list.
func (v *Validator) ValidateStatus(workDir string, status string, container workflowconfig.ContainerType, tags []string) Result {
	status = workflowconfig.NormalizeStatus(status)
	if status == "" {
		return Invalid("status must not be empty")
	}

	cfg, v1Mode := v.loader.Load(workDir)

	if v1Mode {
		allowed := baselineStatuses[container]
		if !containsNormalized(allowed, status) {
			return Invalid("unknown status", allowed...)
		}
	} else {
		fc, ok := cfg.StatusProgression[container]
		if !ok {
			allowed := baselineStatuses[container]
			if !containsNormalized(allowed, status) {
				return Invalid("unknown status", allowed...)
			}
		} else {
			union := fc.AllStatuses()
			if _, ok := union[status]; !ok {
				suggestions := make([]string, 0, len(union))
				for s := range union {
					suggestions = append(suggestions, s)
				}
				return Invalid("status not defined in any flow, emergency or terminal set for this container", suggestions...)
			}
		}
	}

	if status == "deployed" {
		if !anyEnvironmentTag(tags) {
			return ValidWithAdvisory("deployed status has no recognized environment tag; consider tagging with staging/production/canary/dev")
		}
	}

	return Valid()
}

// ValidateTransition implements spec §4.3's validateTransition rule
// list. prereq may be nil when the caller has no store context to
// evaluate prerequisites against (the config's validate_prerequisites
// flag still gates whether they would have been checked).
func (v *Validator) ValidateTransition(ctx context.Context, workDir string, from, to string, container workflowconfig.ContainerType, tags []string, prereq *PrerequisiteContext) Result {
	from = workflowconfig.NormalizeStatus(from)
	to = workflowconfig.NormalizeStatus(to)

	if r := v.ValidateStatus(workDir, from, container, tags); !r.OK() {
		return r
	}
	toResult := v.ValidateStatus(workDir, to, container, tags)
	if !toResult.OK() {
		return toResult
	}

	if from == to {
		return Valid()
	}

	cfg, v1Mode := v.loader.Load(workDir)
	if v1Mode {
		return Valid()
	}

	path := cfg.ResolveFlowPath(container, tags, from)

	if path.IsTerminal(from) {
		return Invalid("transition out of terminal status")
	}

	if path.IsEmergency(to) && cfg.StatusValidation.AllowEmergency {
		return carryAdvisory(toResult)
	}

	fromIdx := path.IndexOf(from)
	toIdx := path.IndexOf(to)

	if fromIdx >= 0 && toIdx >= 0 {
		if toIdx < fromIdx {
			if cfg.StatusValidation.AllowBackward {
				return carryAdvisory(finishTransition(ctx, cfg, container, to, prereq, toResult))
			}
			return Invalid("backward transition disabled")
		}
		if toIdx > fromIdx+1 && cfg.StatusValidation.EnforceSequential {
			suggestion := ""
			if fromIdx+1 < len(path.FlowSequence) {
				suggestion = path.FlowSequence[fromIdx+1]
			}
			if suggestion != "" {
				return Invalid("cannot skip statuses", suggestion)
			}
			return Invalid("cannot skip statuses")
		}
		return carryAdvisory(finishTransition(ctx, cfg, container, to, prereq, toResult))
	}

	// One or both endpoints fall outside the resolved flow sequence but
	// passed validateStatus, i.e. a manual override against the
	// container's allowed set (spec §4.3 rule 8).
	return carryAdvisory(finishTransition(ctx, cfg, container, to, prereq, toResult))
}

func finishTransition(ctx context.Context, cfg *workflowconfig.Config, container workflowconfig.ContainerType, to string, prereq *PrerequisiteContext, toResult Result) Result {
	if cfg.StatusValidation.ValidatePrerequisites && prereq != nil {
		if r := CheckPrerequisite(ctx, container, to, prereq); !r.OK() {
			return r
		}
	}
	return toResult
}

// carryAdvisory passes an Invalid verdict (a failed prerequisite, rule
// 9) through unchanged and forwards toResult's advisory (rule 10);
// anything else becomes a plain Valid.
func carryAdvisory(toResult Result) Result {
	if toResult.Kind == KindValidWithAdvisory || toResult.Kind == KindInvalid {
		return toResult
	}
	return Valid()
}

func containsNormalized(set []string, status string) bool {
	for _, s := range set {
		if workflowconfig.NormalizeStatus(s) == status {
			return true
		}
	}
	return false
}

func anyEnvironmentTag(tags []string) bool {
	for _, t := range workflowconfig.NormalizeTags(tags) {
		if _, ok := environmentTags[t]; ok {
			return true
		}
	}
	return false
}
