package workflowconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllStatuses_NormalizesUnderscoreAndHyphenVariants(t *testing.T) {
	data := []byte(`
version: "1"
status_progression:
  task:
    default_flow: [pending, in_progress, ready-for-review, completed]
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
	require.NoError(t, err)

	union := cfg.StatusProgression[ContainerTask].AllStatuses()

	_, hasHyphen := union[NormalizeStatus("in_progress")]
	assert.True(t, hasHyphen, "union must store the normalized form so membership checks against normalized input succeed")

	_, ok := union["in-progress"]
	assert.True(t, ok, "in_progress as written in YAML must normalize to in-progress in the union")
}
