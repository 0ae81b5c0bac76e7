package statusvalidator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwwelbor/shark-task-manager/internal/models"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

type fakeStore struct {
	taskCounts    models.TaskCounts
	nonTerminal   []string
	taskStatuses  map[string]string // title -> status; when set, NonTerminalTaskTitles filters honestly against the passed terminal set
	featureCounts models.FeatureCounts
	blockingTasks []models.Task
}

func (f *fakeStore) TaskCounts(ctx context.Context, featureID uuid.UUID) (models.TaskCounts, error) {
	return f.taskCounts, nil
}

func (f *fakeStore) NonTerminalTaskTitles(ctx context.Context, featureID uuid.UUID, terminal []string) ([]string, error) {
	if f.taskStatuses == nil {
		return f.nonTerminal, nil
	}
	terminalSet := make(map[string]bool, len(terminal))
	for _, s := range terminal {
		terminalSet[workflowconfig.NormalizeStatus(s)] = true
	}
	var out []string
	for title, status := range f.taskStatuses {
		if !terminalSet[workflowconfig.NormalizeStatus(status)] {
			out = append(out, title)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) FeatureCounts(ctx context.Context, projectID uuid.UUID) (models.FeatureCounts, error) {
	return f.featureCounts, nil
}

func (f *fakeStore) BlockingTasks(ctx context.Context, taskID uuid.UUID) ([]models.Task, error) {
	return f.blockingTasks, nil
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".taskorchestrator"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, workflowconfig.ConfigRelPath), []byte(yaml), 0o644))
	return dir
}

const testTaskFlowYAML = `
version: "1"
status_progression:
  task:
    default_flow: [pending, in-progress, ready-for-review, completed]
    emergency_transitions: [cancelled]
    terminal_statuses: [completed, cancelled]
status_validation:
  enforce_sequential: true
  allow_backward: false
  allow_emergency: true
  validate_prerequisites: true
auto_cascade:
  enabled: true
  max_depth: 3
`

func TestValidateStatus_V1ModeUsesBaselineEnum(t *testing.T) {
	dir := t.TempDir() // no config file -> V1 mode
	v := New(workflowconfig.NewLoader(nil))

	assert.Equal(t, KindValid, v.ValidateStatus(dir, "in_progress", workflowconfig.ContainerTask, nil).Kind)
	assert.Equal(t, KindInvalid, v.ValidateStatus(dir, "nonexistent-status", workflowconfig.ContainerTask, nil).Kind)
}

func TestValidateStatus_DeployedAdvisory(t *testing.T) {
	dir := t.TempDir()
	v := New(workflowconfig.NewLoader(nil))

	r := v.ValidateStatus(dir, "deployed", workflowconfig.ContainerTask, nil)
	assert.Equal(t, KindValidWithAdvisory, r.Kind)

	r = v.ValidateStatus(dir, "deployed", workflowconfig.ContainerTask, []string{"Production"})
	assert.Equal(t, KindValid, r.Kind)
}

func TestValidateTransition_SameStatusIsIdempotent(t *testing.T) {
	dir := writeConfig(t, testTaskFlowYAML)
	v := New(workflowconfig.NewLoader(nil))

	r := v.ValidateTransition(context.Background(), dir, "in-progress", "in-progress", workflowconfig.ContainerTask, nil, nil)
	assert.Equal(t, KindValid, r.Kind)
}

func TestValidateTransition_TerminalStatusBlocksOutgoing(t *testing.T) {
	dir := writeConfig(t, testTaskFlowYAML)
	v := New(workflowconfig.NewLoader(nil))

	r := v.ValidateTransition(context.Background(), dir, "completed", "in-progress", workflowconfig.ContainerTask, nil, nil)
	assert.Equal(t, KindInvalid, r.Kind)
}

func TestValidateTransition_SequentialSkipRejected(t *testing.T) {
	dir := writeConfig(t, testTaskFlowYAML)
	v := New(workflowconfig.NewLoader(nil))

	r := v.ValidateTransition(context.Background(), dir, "pending", "completed", workflowconfig.ContainerTask, nil, nil)
	require.Equal(t, KindInvalid, r.Kind)
	assert.Contains(t, r.Suggestions, "in-progress")
}

func TestValidateTransition_EmergencyBypassesSequencing(t *testing.T) {
	dir := writeConfig(t, testTaskFlowYAML)
	v := New(workflowconfig.NewLoader(nil))

	r := v.ValidateTransition(context.Background(), dir, "pending", "cancelled", workflowconfig.ContainerTask, nil, nil)
	assert.Equal(t, KindValid, r.Kind)
}

func TestValidateTransition_PrerequisiteBlocksCompletion(t *testing.T) {
	dir := writeConfig(t, testTaskFlowYAML)
	v := New(workflowconfig.NewLoader(nil))

	prereq := &PrerequisiteContext{
		Store:       &fakeStore{},
		ContainerID: uuid.New(),
		Summary:     "too short",
	}
	r := v.ValidateTransition(context.Background(), dir, "ready-for-review", "completed", workflowconfig.ContainerTask, nil, prereq)
	assert.Equal(t, KindInvalid, r.Kind)
}

func TestValidateTransition_PrerequisiteAllowsValidSummary(t *testing.T) {
	dir := writeConfig(t, testTaskFlowYAML)
	v := New(workflowconfig.NewLoader(nil))

	longSummary := make([]byte, 320)
	for i := range longSummary {
		longSummary[i] = 'a'
	}

	prereq := &PrerequisiteContext{
		Store:       &fakeStore{},
		ContainerID: uuid.New(),
		Summary:     string(longSummary),
	}
	r := v.ValidateTransition(context.Background(), dir, "ready-for-review", "completed", workflowconfig.ContainerTask, nil, prereq)
	assert.Equal(t, KindValid, r.Kind)
}
