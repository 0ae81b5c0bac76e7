package statusvalidator

import "github.com/jwwelbor/shark-task-manager/internal/workflowconfig"

// baselineStatuses is the fixed enum each container type falls back to
// in V1-compatibility mode (no config.yaml present or it failed to
// parse — spec §4.2, §4.3 rule 2). It mirrors the teacher's deprecated
// hardcoded TaskStatus/FeatureStatus/EpicStatus constants, which served
// exactly this role before workflow config existed.
var baselineStatuses = map[workflowconfig.ContainerType][]string{
	workflowconfig.ContainerProject: {
		"planning", "in-development", "completed", "cancelled", "archived",
	},
	workflowconfig.ContainerFeature: {
		"planning", "in-development", "testing", "completed", "cancelled", "deferred",
	},
	workflowconfig.ContainerTask: {
		"pending", "in-progress", "blocked", "ready-for-review", "deployed", "completed", "cancelled", "deferred",
	},
}
