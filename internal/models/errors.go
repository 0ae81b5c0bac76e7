package models

import (
	"errors"
	"regexp"
)

// Field-level validation errors. Mirrors the teacher's sentinel-error
// idiom: a package-level errors.New value, wrapped with context via
// fmt.Errorf("%w: ...") at the call site.
var (
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrEmptyTitle          = errors.New("title cannot be empty")
	ErrEmptySummary        = errors.New("summary cannot be empty")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidPriority     = errors.New("invalid priority: must be between 1 and 10")
	ErrInvalidComplexity   = errors.New("invalid complexity: must be between 1 and 10")
	ErrInvalidContentKind  = errors.New("invalid content_format: must be markdown, json, or plain")
	ErrInvalidEntityType   = errors.New("invalid entity_type: must be project, feature, or task")
	ErrInvalidDependency   = errors.New("invalid dependency type: must be blocks, is_blocked_by, or relates_to")
	ErrSelfDependency      = errors.New("task cannot depend on itself")
	ErrFeatureProjectMismatch = errors.New("feature_id implies project_id must equal feature's project_id")
)

// slugPattern matches the shape slug.Generate produces. Section
// lookups by slug (store.FindSectionBySlug) compare against
// Section.Slug() directly and do not call ValidSlug.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s looks like a generated slug.
func ValidSlug(s string) bool {
	return s != "" && slugPattern.MatchString(s)
}
