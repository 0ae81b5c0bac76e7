package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

func TestProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "Orchestrator", Summary: "Track the rewrite", Status: "draft", Tags: []string{"infra", "Infra", "infra"}}
	require.NoError(t, s.CreateProject(ctx, p))
	assert.NotEqual(t, p.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.EqualValues(t, 1, p.Version)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orchestrator", got.Name)
	assert.Equal(t, "draft", got.Status)
	assert.Equal(t, []string{"infra"}, got.Tags)

	got.Status = "active"
	require.NoError(t, s.UpdateProject(ctx, got))
	assert.EqualValues(t, 2, got.Version)

	reloaded, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", reloaded.Status)
	assert.EqualValues(t, 2, reloaded.Version)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	assert.True(t, IsNotFound(err))
}

func TestProjectUpdateVersionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "Orchestrator", Summary: "v", Status: "draft"}
	require.NoError(t, s.CreateProject(ctx, p))

	first, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	second, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)

	first.Status = "active"
	require.NoError(t, s.UpdateProject(ctx, first))

	second.Status = "cancelled"
	err = s.UpdateProject(ctx, second)
	assert.True(t, IsVersionConflict(err))
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProject(context.Background(), models.Project{}.ID)
	assert.True(t, IsNotFound(err))
}
