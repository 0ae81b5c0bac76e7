package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

func TestSectionRoundTripAndOrdinalAssignment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	first := &models.Section{EntityType: models.ContainerFeature, EntityID: f.ID, Title: "Design", Content: "notes", ContentFormat: models.ContentMarkdown}
	require.NoError(t, s.CreateSection(ctx, first))
	assert.Equal(t, 1, first.Ordinal)

	second := &models.Section{EntityType: models.ContainerFeature, EntityID: f.ID, Title: models.VerificationSectionTitle,
		Content: `[{"criteria":"tests pass","pass":true}]`, ContentFormat: models.ContentJSON}
	require.NoError(t, s.CreateSection(ctx, second))
	assert.Equal(t, 2, second.Ordinal)

	found, err := s.FindSection(ctx, models.ContainerFeature, f.ID, models.VerificationSectionTitle)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
	assert.Equal(t, models.ContentJSON, found.ContentFormat)

	all, err := s.FindSectionsByEntity(ctx, models.ContainerFeature, f.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Design", all[0].Title)

	require.NoError(t, s.DeleteSection(ctx, first.ID))
	_, err = s.GetSection(ctx, first.ID)
	assert.True(t, IsNotFound(err))
}

func TestCreateSectionRejectsDuplicateExplicitOrdinal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	first := &models.Section{EntityType: models.ContainerFeature, EntityID: f.ID, Title: "Design", Ordinal: 5,
		Content: "notes", ContentFormat: models.ContentMarkdown}
	require.NoError(t, s.CreateSection(ctx, first))

	second := &models.Section{EntityType: models.ContainerFeature, EntityID: f.ID, Title: "Other", Ordinal: 5,
		Content: "notes", ContentFormat: models.ContentMarkdown}
	err := s.CreateSection(ctx, second)
	require.Error(t, err)
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindDatabaseError, storeErr.Kind)
}

func TestFindSectionMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	f := seedFeature(t, s)

	_, err := s.FindSection(context.Background(), models.ContainerFeature, f.ID, "Verification")
	assert.True(t, IsNotFound(err))
}

func TestFindSectionBySlugMatchesNormalizedTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	sec := &models.Section{EntityType: models.ContainerFeature, EntityID: f.ID, Title: "Verification Criteria",
		Content: "notes", ContentFormat: models.ContentMarkdown}
	require.NoError(t, s.CreateSection(ctx, sec))

	found, err := s.FindSectionBySlug(ctx, models.ContainerFeature, f.ID, "verification-criteria")
	require.NoError(t, err)
	assert.Equal(t, sec.ID, found.ID)

	_, err = s.FindSectionBySlug(ctx, models.ContainerFeature, f.ID, "no-such-slug")
	assert.True(t, IsNotFound(err))
}
