package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSectionSlugNormalizesTitle(t *testing.T) {
	sec := &Section{Title: "Verification Criteria"}
	assert.Equal(t, "verification-criteria", sec.Slug())

	sec2 := &Section{Title: "  Design Notes: v2  "}
	assert.Equal(t, "design-notes-v2", sec2.Slug())
}

func TestShortIDTruncatesToEightChars(t *testing.T) {
	id := uuid.New()
	short := ShortID(id)
	assert.Len(t, short, 8)
	assert.Equal(t, id.String()[:8], short)
}
