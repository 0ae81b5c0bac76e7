package workflowconfig

import "strings"

// FlowPath is the resolved view of a (containerType, tags, currentStatus)
// query: which flow is active, its ordered sequence, where the current
// status sits in it, and the terminal/emergency sets that gate
// transitions out of it (spec §4.2, GLOSSARY).
type FlowPath struct {
	ActiveFlow           string
	FlowSequence         []string
	CurrentPosition      int
	TerminalStatuses     []string
	EmergencyTransitions []string
	MatchedTags          []string
}

// IsTerminal reports whether status is in the resolved terminal set.
func (p FlowPath) IsTerminal(status string) bool {
	status = NormalizeStatus(status)
	for _, s := range p.TerminalStatuses {
		if NormalizeStatus(s) == status {
			return true
		}
	}
	return false
}

// IsEmergency reports whether status is reachable via an emergency
// transition from any non-terminal status.
func (p FlowPath) IsEmergency(status string) bool {
	status = NormalizeStatus(status)
	for _, s := range p.EmergencyTransitions {
		if NormalizeStatus(s) == status {
			return true
		}
	}
	return false
}

// IndexOf returns the position of status in FlowSequence, or -1.
func (p FlowPath) IndexOf(status string) int {
	status = NormalizeStatus(status)
	for i, s := range p.FlowSequence {
		if NormalizeStatus(s) == status {
			return i
		}
	}
	return -1
}

// NormalizeStatus lowercases a status and maps underscores to hyphens,
// so "in_progress", "in-progress", and "IN_PROGRESS" compare equal
// (spec §3 invariant).
func NormalizeStatus(status string) string {
	status = strings.TrimSpace(status)
	status = strings.ToLower(status)
	return strings.ReplaceAll(status, "_", "-")
}

// NormalizeTags lowercases, trims, and deduplicates a tag set while
// preserving first-seen order (stable iteration for flow_mappings).
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := strings.ToLower(strings.TrimSpace(t))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func tagsIntersect(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// ResolveFlowPath implements the flow resolution algorithm of spec
// §4.2: normalize and dedupe tags, walk flow_mappings in order and
// select the first whose tags intersect, otherwise fall back to
// default_flow.
func (c *Config) ResolveFlowPath(container ContainerType, tags []string, currentStatus string) FlowPath {
	normTags := NormalizeTags(tags)

	fc, ok := c.StatusProgression[container]
	if !ok || fc == nil {
		return FlowPath{
			ActiveFlow:      "default",
			FlowSequence:    nil,
			CurrentPosition: -1,
			MatchedTags:     normTags,
		}
	}

	activeName := "default"
	var matched []string
	for _, mapping := range fc.FlowMappings {
		mappingTags := NormalizeTags(mapping.Tags)
		if tagsIntersect(normTags, mappingTags) {
			activeName = mapping.Flow
			matched = mappingTags
			break
		}
	}

	seq, ok := c.FlowFor(container, activeName)
	if !ok {
		seq = fc.DefaultFlow
		activeName = "default"
	}

	return FlowPath{
		ActiveFlow:           activeName,
		FlowSequence:         seq,
		CurrentPosition:      indexOfNormalized(seq, currentStatus),
		TerminalStatuses:     fc.TerminalStatuses,
		EmergencyTransitions: fc.EmergencyTransitions,
		MatchedTags:          matched,
	}
}

func indexOfNormalized(seq []string, status string) int {
	status = NormalizeStatus(status)
	for i, s := range seq {
		if NormalizeStatus(s) == status {
			return i
		}
	}
	return -1
}
