package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/orchestrator"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

// transitionsToolSchema is the JSON Schema for apply_transitions'
// single parameter (spec §6's tool-facing input contract).
const transitionsToolSchema = `{
  "type": "object",
  "properties": {
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "containerId": {"type": "string", "format": "uuid"},
          "containerType": {"type": "string", "enum": ["project", "feature", "task"]},
          "trigger": {"type": "string", "enum": ["start", "complete", "cancel", "block", "hold"]},
          "summary": {"type": "string"}
        },
        "required": ["containerId", "containerType", "trigger"]
      }
    }
  },
  "required": ["transitions"]
}`

// transitionItem mirrors one entry of the tool's input array.
type transitionItem struct {
	ContainerID   string `json:"containerId"`
	ContainerType string `json:"containerType"`
	Trigger       string `json:"trigger"`
	Summary       string `json:"summary,omitempty"`
}

type transitionsInput struct {
	Transitions []transitionItem `json:"transitions"`
}

// toolOutput is spec §6's tool-facing response envelope.
type toolOutput struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    *orchestrator.BatchResult `json:"data,omitempty"`
}

// TransitionsTool exposes the orchestrator (C7) as the MCP tool
// "apply_transitions" — the one surface this repo's tool dispatch
// needs (spec §6).
type TransitionsTool struct {
	svc     *orchestrator.Service
	workDir string
}

// NewTransitionsTool builds the apply_transitions tool bound to svc,
// resolving workflow config relative to workDir.
func NewTransitionsTool(svc *orchestrator.Service, workDir string) *TransitionsTool {
	return &TransitionsTool{svc: svc, workDir: workDir}
}

func (t *TransitionsTool) Name() string { return "apply_transitions" }

func (t *TransitionsTool) Description() string {
	return "Applies one or more status transitions to projects, features, or tasks, validating each against the configured workflow, running the verification gate, and cascading status changes upward."
}

func (t *TransitionsTool) InputSchema() json.RawMessage {
	return json.RawMessage(transitionsToolSchema)
}

func (t *TransitionsTool) Execute(ctx context.Context, params json.RawMessage) (*ToolsCallResult, error) {
	var input transitionsInput
	if err := json.Unmarshal(params, &input); err != nil {
		return JSONResult(toolOutput{Success: false, Message: fmt.Sprintf("invalid arguments: %v", err)})
	}

	requests := make([]orchestrator.TransitionRequest, 0, len(input.Transitions))
	for i, item := range input.Transitions {
		id, err := uuid.Parse(item.ContainerID)
		if err != nil {
			return JSONResult(toolOutput{Success: false, Message: fmt.Sprintf("transitions[%d].containerId: %v", i, err)})
		}
		requests = append(requests, orchestrator.TransitionRequest{
			ContainerID:   id,
			ContainerType: workflowconfig.ContainerType(item.ContainerType),
			Trigger:       orchestrator.Trigger(item.Trigger),
			Summary:       item.Summary,
		})
	}

	result := t.svc.ProcessBatch(ctx, t.workDir, requests)

	message := fmt.Sprintf("%d of %d transitions applied", result.Summary.Succeeded, result.Summary.Total)
	return JSONResult(toolOutput{Success: result.Summary.Failed == 0, Message: message, Data: &result})
}
