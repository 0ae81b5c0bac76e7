package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/slug"
)

// Section is a titled, typed block of content attached to a Project,
// Feature, or Task. It generalizes the teacher's Document/TaskCriteria
// rows into a single attachable-content entity (SPEC_FULL.md, Models).
// The Verification gate (C5) reads the Section titled "Verification"
// with ContentFormat json off of the entity being completed.
type Section struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	EntityType        ContainerType `json:"entity_type" db:"entity_type"`
	EntityID          uuid.UUID     `json:"entity_id" db:"entity_id"`
	Title             string        `json:"title" db:"title"`
	UsageDescription  string        `json:"usage_description" db:"usage_description"`
	Content           string        `json:"content" db:"content"`
	ContentFormat     ContentFormat `json:"content_format" db:"content_format"`
	Ordinal           int           `json:"ordinal" db:"ordinal"`
	Version           int64         `json:"version" db:"version"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	ModifiedAt        time.Time     `json:"modified_at" db:"modified_at"`
}

// Validate validates the Section's own fields.
func (s *Section) Validate() error {
	if s.Title == "" {
		return ErrEmptyTitle
	}
	switch s.ContentFormat {
	case ContentMarkdown, ContentJSON, ContentPlain:
	default:
		return ErrInvalidContentKind
	}
	switch s.EntityType {
	case ContainerProject, ContainerFeature, ContainerTask:
	default:
		return ErrInvalidEntityType
	}
	return nil
}

// VerificationSectionTitle is the well-known title the gate looks for
// (spec §4.5).
const VerificationSectionTitle = "Verification"

// Slug returns the section's title normalized into a URL-friendly
// secondary lookup key, derived rather than stored (db:"-" equivalent:
// there is no backing column). Two sections with differently-cased or
// differently-punctuated titles ("Verification Criteria" vs
// "verification-criteria") collide on the same slug.
func (s *Section) Slug() string {
	return slug.Generate(s.Title)
}

// ShortID returns the first 8 hex characters of the entity's UUID, the
// same truncated form used in debug/log output throughout the teacher's
// codebase (full IDs are too long to scan in a terminal).
func ShortID(id uuid.UUID) string {
	s := id.String()
	if len(s) < 8 {
		return s
	}
	return s[:8]
}
