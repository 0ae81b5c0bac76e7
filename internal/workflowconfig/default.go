package workflowconfig

// Default returns the bundled flow config, the same document
// BundledYAML spells out. It is deliberately conservative: a single
// unnamed default flow per container, no tag mappings, emergency
// transitions only for tasks (blocked, cancelled), sequential and
// prerequisite enforcement on, and backward transitions disallowed.
// The loader also returns it, flagged as V1 mode, when no
// .taskorchestrator/config.yaml exists or it fails to parse; in that
// mode callers apply none of its flows or policies.
func Default() *Config {
	return &Config{
		Version: DefaultConfigVersion,
		StatusProgression: map[ContainerType]*FlowConfig{
			ContainerProject: {
				DefaultFlow: []string{"planning", "in-development", "completed"},
				NamedFlows: map[string][]string{
					"default": {"planning", "in-development", "completed"},
				},
				TerminalStatuses: []string{"completed", "cancelled", "archived"},
			},
			ContainerFeature: {
				DefaultFlow: []string{"planning", "in-development", "testing", "completed"},
				NamedFlows: map[string][]string{
					"default": {"planning", "in-development", "testing", "completed"},
				},
				TerminalStatuses: []string{"completed", "cancelled", "deferred"},
			},
			ContainerTask: {
				DefaultFlow: []string{"pending", "in-progress", "ready-for-review", "completed"},
				NamedFlows: map[string][]string{
					"default": {"pending", "in-progress", "ready-for-review", "completed"},
				},
				EmergencyTransitions: []string{"blocked", "cancelled"},
				TerminalStatuses:     []string{"completed", "cancelled", "deferred"},
			},
		},
		StatusValidation: ValidationConfig{
			EnforceSequential:     true,
			AllowBackward:         false,
			AllowEmergency:        true,
			ValidatePrerequisites: true,
		},
		AutoCascade: CascadeConfig{
			Enabled:  true,
			MaxDepth: 3,
		},
		CompletionCleanup: CompletionCleanupConfig{
			Enabled: false,
		},
	}
}

// BundledYAML is the on-disk representation of Default(), written by
// the CLI bootstrap's `taskctl config init` when no config.yaml exists
// yet (or over an existing one with --force).
const BundledYAML = `version: "1"

status_progression:
  project:
    default_flow: [planning, in-development, completed]
    terminal_statuses: [completed, cancelled, archived]

  feature:
    default_flow: [planning, in-development, testing, completed]
    terminal_statuses: [completed, cancelled, deferred]

  task:
    default_flow: [pending, in-progress, ready-for-review, completed]
    emergency_transitions: [blocked, cancelled]
    terminal_statuses: [completed, cancelled, deferred]

status_validation:
  enforce_sequential: true
  allow_backward: false
  allow_emergency: true
  validate_prerequisites: true

auto_cascade:
  enabled: true
  max_depth: 3

completion_cleanup:
  enabled: false
`
