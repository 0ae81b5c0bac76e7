// Package workflowconfig loads and caches the YAML document that drives
// tag-selected status flows, transition-validation flags, and cascade
// policy. It generalizes the teacher's internal/config package (JSON,
// single flat status_flow map) into the nested, per-container,
// tag-mapped shape the workflow engine needs.
package workflowconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultConfigVersion is written into the bundled default and accepted
// on load; unlike the teacher's strict "1.0 or error" check, an unknown
// version does not fail the load — it is a hint, not a contract, since
// this schema has no breaking revisions yet.
const DefaultConfigVersion = "1"

// ContainerType names one of the three hierarchy levels a flow config
// section applies to.
type ContainerType string

const (
	ContainerProject ContainerType = "project"
	ContainerFeature ContainerType = "feature"
	ContainerTask    ContainerType = "task"
)

// Config is the parsed form of .taskorchestrator/config.yaml (spec §4.2).
type Config struct {
	Version           string                            `yaml:"version"`
	StatusProgression map[ContainerType]*FlowConfig      `yaml:"status_progression"`
	StatusValidation  ValidationConfig                   `yaml:"status_validation"`
	AutoCascade       CascadeConfig                      `yaml:"auto_cascade"`
	CompletionCleanup CompletionCleanupConfig            `yaml:"completion_cleanup"`
}

// ValidationConfig carries the C3 rule-enablement flags.
type ValidationConfig struct {
	EnforceSequential   bool `yaml:"enforce_sequential"`
	AllowBackward       bool `yaml:"allow_backward"`
	AllowEmergency      bool `yaml:"allow_emergency"`
	ValidatePrerequisites bool `yaml:"validate_prerequisites"`
}

// CascadeConfig carries C6's auto-apply policy.
type CascadeConfig struct {
	Enabled  bool `yaml:"enabled"`
	MaxDepth int  `yaml:"max_depth"`
}

// CompletionCleanupConfig carries C6's terminal-feature cleanup policy.
type CompletionCleanupConfig struct {
	Enabled bool `yaml:"enabled"`
}

// FlowMapping is one entry of an ordered flow_mappings list: the first
// mapping whose Tags intersect the container's normalized tags wins.
type FlowMapping struct {
	Tags []string `yaml:"tags"`
	Flow string   `yaml:"flow"`
}

// FlowConfig is the status_progression.<container> section: a default
// flow, any number of additional named flows, an ordered tag-to-flow
// mapping table, and the emergency/terminal status sets.
type FlowConfig struct {
	DefaultFlow          []string               `yaml:"-"`
	NamedFlows           map[string][]string    `yaml:"-"`
	FlowMappings         []FlowMapping          `yaml:"-"`
	EmergencyTransitions []string               `yaml:"-"`
	TerminalStatuses     []string               `yaml:"-"`
}

// UnmarshalYAML parses a FlowConfig section. The section mixes
// fixed-name keys (flow_mappings, emergency_transitions,
// terminal_statuses) with an open-ended family of "<name>_flow" keys,
// so it is decoded into a generic map first and then sorted by key
// shape rather than via a struct with fixed field names.
func (f *FlowConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("workflowconfig: decode flow section: %w", err)
	}

	f.NamedFlows = make(map[string][]string)

	for key, node := range raw {
		switch key {
		case "flow_mappings":
			var mappings []FlowMapping
			if err := node.Decode(&mappings); err != nil {
				return fmt.Errorf("workflowconfig: decode flow_mappings: %w", err)
			}
			f.FlowMappings = mappings
		case "emergency_transitions":
			var statuses []string
			if err := node.Decode(&statuses); err != nil {
				return fmt.Errorf("workflowconfig: decode emergency_transitions: %w", err)
			}
			f.EmergencyTransitions = statuses
		case "terminal_statuses":
			var statuses []string
			if err := node.Decode(&statuses); err != nil {
				return fmt.Errorf("workflowconfig: decode terminal_statuses: %w", err)
			}
			f.TerminalStatuses = statuses
		case "default_flow":
			var seq []string
			if err := node.Decode(&seq); err != nil {
				return fmt.Errorf("workflowconfig: decode default_flow: %w", err)
			}
			f.DefaultFlow = seq
			f.NamedFlows["default"] = seq
		default:
			var seq []string
			if err := node.Decode(&seq); err != nil {
				return fmt.Errorf("workflowconfig: decode flow %q: %w", key, err)
			}
			name := trimFlowSuffix(key)
			f.NamedFlows[name] = seq
		}
	}
	return nil
}

func trimFlowSuffix(key string) string {
	const suffix = "_flow"
	if len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix {
		return key[:len(key)-len(suffix)]
	}
	return key
}

// AllStatuses returns the union of every status this container's
// section names: each named flow's statuses plus its emergency and
// terminal statuses, used by validateStatus's V2 membership check.
func (f *FlowConfig) AllStatuses() map[string]struct{} {
	seen := make(map[string]struct{})
	for _, seq := range f.NamedFlows {
		for _, s := range seq {
			seen[NormalizeStatus(s)] = struct{}{}
		}
	}
	for _, s := range f.EmergencyTransitions {
		seen[NormalizeStatus(s)] = struct{}{}
	}
	for _, s := range f.TerminalStatuses {
		seen[NormalizeStatus(s)] = struct{}{}
	}
	return seen
}

// Parse parses raw YAML bytes into a Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("workflowconfig: parse yaml: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = DefaultConfigVersion
	}
	if cfg.AutoCascade.MaxDepth == 0 {
		cfg.AutoCascade.MaxDepth = 3
	}
	return &cfg, nil
}

// FlowFor returns the named flow sequence for a container type, falling
// back to its default flow when name is "" or "default".
func (c *Config) FlowFor(container ContainerType, name string) ([]string, bool) {
	fc, ok := c.StatusProgression[container]
	if !ok {
		return nil, false
	}
	if name == "" || name == "default" {
		return fc.DefaultFlow, fc.DefaultFlow != nil
	}
	seq, ok := fc.NamedFlows[name]
	return seq, ok
}
