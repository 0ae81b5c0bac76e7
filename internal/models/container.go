package models

import "strings"

// ContainerType identifies which level of the project/feature/task
// hierarchy an entity belongs to. The engine treats all three as
// "containers" wherever a status transition is concerned (spec glossary).
type ContainerType string

const (
	ContainerProject ContainerType = "project"
	ContainerFeature ContainerType = "feature"
	ContainerTask    ContainerType = "task"
)

// ValidContainerType reports whether ct is one of the three recognized
// container kinds.
func ValidContainerType(ct string) bool {
	switch ContainerType(NormalizeStatus(ct)) {
	case ContainerProject, ContainerFeature, ContainerTask:
		return true
	default:
		return false
	}
}

// Role is the coarse classification every status maps to: queue, work,
// review, blocked, or terminal. The mapping itself is config-driven
// (internal/workflowconfig); Role is just the closed set of outcomes.
type Role string

const (
	RoleQueue    Role = "queue"
	RoleWork     Role = "work"
	RoleReview   Role = "review"
	RoleBlocked  Role = "blocked"
	RoleTerminal Role = "terminal"
)

// DependencyType enumerates the three relationships a Dependency row
// can carry between two tasks.
type DependencyType string

const (
	DependencyBlocks      DependencyType = "blocks"
	DependencyIsBlockedBy DependencyType = "is_blocked_by"
	DependencyRelatesTo   DependencyType = "relates_to"
)

// ContentFormat enumerates how a Section's content should be
// interpreted by callers.
type ContentFormat string

const (
	ContentMarkdown ContentFormat = "markdown"
	ContentJSON     ContentFormat = "json"
	ContentPlain    ContentFormat = "plain"
)

// NormalizeStatus case-normalizes a status (or tag, or container type)
// string to lowercase with hyphens, per spec §3: "in_progress" ≡
// "in-progress" ≡ "IN_PROGRESS". Trims surrounding whitespace first.
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", "-")
}

// NormalizeTags lowercases every tag and removes duplicates, preserving
// first-seen order. Used by flow resolution (spec §4.2) so that tag
// matching is case-insensitive and stable.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		norm := strings.ToLower(strings.TrimSpace(t))
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	return out
}

// TagsIntersect reports whether a and b share at least one element.
// Both slices are assumed already normalized (NormalizeTags).
func TagsIntersect(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		if set[t] {
			return true
		}
	}
	return false
}
