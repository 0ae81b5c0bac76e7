package workflowconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	data := []byte(`
version: "1"
status_progression:
  task:
    default_flow: [pending, in-progress, ready-for-review, completed]
    hotfix_flow: [pending, in-progress, completed]
    flow_mappings:
      - tags: [hotfix, urgent]
        flow: hotfix
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
`)
	cfg, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestResolveFlowPath_DefaultFlow(t *testing.T) {
	cfg := testConfig()

	path := cfg.ResolveFlowPath(ContainerTask, []string{"backend"}, "in-progress")

	assert.Equal(t, "default", path.ActiveFlow)
	assert.Equal(t, []string{"pending", "in-progress", "ready-for-review", "completed"}, path.FlowSequence)
	assert.Equal(t, 1, path.CurrentPosition)
}

func TestResolveFlowPath_TagMappingFirstMatchWins(t *testing.T) {
	cfg := testConfig()

	path := cfg.ResolveFlowPath(ContainerTask, []string{"Urgent", "backend"}, "pending")

	assert.Equal(t, "hotfix", path.ActiveFlow)
	assert.Equal(t, []string{"pending", "in-progress", "completed"}, path.FlowSequence)
	assert.Contains(t, path.MatchedTags, "urgent")
}

func TestResolveFlowPath_UnknownContainerFallsBackEmpty(t *testing.T) {
	cfg := testConfig()

	path := cfg.ResolveFlowPath(ContainerProject, nil, "planning")

	assert.Equal(t, "default", path.ActiveFlow)
	assert.Nil(t, path.FlowSequence)
	assert.Equal(t, -1, path.CurrentPosition)
}

func TestFlowPath_IsTerminal(t *testing.T) {
	cfg := testConfig()
	path := cfg.ResolveFlowPath(ContainerTask, nil, "completed")

	assert.True(t, path.IsTerminal("completed"))
	assert.True(t, path.IsTerminal("COMPLETED"))
	assert.False(t, path.IsTerminal("pending"))
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"in_progress": "in-progress",
		"IN_PROGRESS": "in-progress",
		"in-progress": "in-progress",
		" Blocked ":   "blocked",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeStatus(in), "input %q", in)
	}
}

func TestNormalizeTags_DedupesAndLowercases(t *testing.T) {
	got := NormalizeTags([]string{"Backend", "backend", " QA ", ""})
	assert.Equal(t, []string{"backend", "qa"}, got)
}

func TestParse_DefaultsVersionAndMaxDepth(t *testing.T) {
	cfg, err := Parse([]byte(`status_progression: {}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigVersion, cfg.Version)
	assert.Equal(t, 3, cfg.AutoCascade.MaxDepth)
}
