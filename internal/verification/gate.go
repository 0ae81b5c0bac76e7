// Package verification implements the Verification Gate (C5): on a
// `complete` trigger for an entity with requires_verification=true, it
// loads the entity's "Verification" section and checks that every
// declared criterion passed. Grounded on the teacher's
// internal/models/task_criteria.go (criterion/status shape), adapted
// from a dedicated criteria table to criteria parsed out of a generic
// Section's JSON content (spec §4.5).
package verification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

// Outcome discriminates the four Result variants spec §4.5 defines.
type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeMissingSection
	OutcomeMalformedJSON
	OutcomeFailed
)

// Result is the verification gate's answer for one entity.
type Result struct {
	Outcome         Outcome
	Detail          string
	FailingCriteria []string
}

// Passed reports whether the gate permits completion.
func (r Result) Passed() bool {
	return r.Outcome == OutcomeOk
}

// Criterion is one entry of the Verification section's JSON array.
type Criterion struct {
	Criteria string `json:"criteria"`
	Pass     bool   `json:"pass"`
}

// SectionFinder is the narrow store slice the gate needs: look up a
// titled section on an entity. Satisfied by internal/store's Store.
type SectionFinder interface {
	FindSection(ctx context.Context, entityType models.ContainerType, entityID uuid.UUID, title string) (*models.Section, error)
}

// Check loads entityID's "Verification" section and evaluates its
// criteria. Only entities with requires_verification=true should call
// this; the gate itself does not re-check that flag.
func Check(ctx context.Context, store SectionFinder, entityType models.ContainerType, entityID uuid.UUID) Result {
	section, err := store.FindSection(ctx, entityType, entityID, models.VerificationSectionTitle)
	if err != nil || section == nil {
		return Result{Outcome: OutcomeMissingSection, Detail: "no Verification section found"}
	}
	if section.ContentFormat != models.ContentJSON {
		return Result{Outcome: OutcomeMissingSection, Detail: "Verification section is not content_format=json"}
	}

	var criteria []Criterion
	if err := json.Unmarshal([]byte(section.Content), &criteria); err != nil {
		return Result{Outcome: OutcomeMalformedJSON, Detail: fmt.Sprintf("invalid Verification JSON: %v", err)}
	}

	var failing []string
	for _, c := range criteria {
		if !c.Pass {
			failing = append(failing, c.Criteria)
		}
	}
	if len(failing) > 0 {
		return Result{Outcome: OutcomeFailed, FailingCriteria: failing}
	}

	return Result{Outcome: OutcomeOk}
}
