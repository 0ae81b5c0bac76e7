package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwwelbor/shark-task-manager/internal/models"
)

func TestRecordTransitionAndTransitionStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	task := &models.Task{FeatureID: &f.ID, Title: "Write transitions.go", Summary: "C1", Status: "pending", Priority: 5, Complexity: 2}
	require.NoError(t, s.CreateTask(ctx, task))

	count, last, err := s.TransitionStats(ctx, models.ContainerTask, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Nil(t, last)

	require.NoError(t, s.RecordTransition(ctx, models.ContainerTask, task.ID, "", "pending", "builder"))
	require.NoError(t, s.RecordTransition(ctx, models.ContainerTask, task.ID, "pending", "in-progress", "builder"))

	count, last, err = s.TransitionStats(ctx, models.ContainerTask, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NotNil(t, last)
	assert.WithinDuration(t, time.Now(), *last, 10*time.Second)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TransitionCount)
	require.NotNil(t, got.LastTransitionAt)
	assert.WithinDuration(t, time.Now(), *got.LastTransitionAt, 10*time.Second)
}

func TestTransitionStatsIsolatedPerEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	taskA := &models.Task{FeatureID: &f.ID, Title: "A", Summary: "s", Status: "pending", Priority: 5, Complexity: 1}
	taskB := &models.Task{FeatureID: &f.ID, Title: "B", Summary: "s", Status: "pending", Priority: 5, Complexity: 1}
	require.NoError(t, s.CreateTask(ctx, taskA))
	require.NoError(t, s.CreateTask(ctx, taskB))

	require.NoError(t, s.RecordTransition(ctx, models.ContainerTask, taskA.ID, "pending", "in-progress", "builder"))

	countA, _, err := s.TransitionStats(ctx, models.ContainerTask, taskA.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, countA)

	countB, lastB, err := s.TransitionStats(ctx, models.ContainerTask, taskB.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, countB)
	assert.Nil(t, lastB)

	require.NoError(t, s.RecordTransition(ctx, models.ContainerFeature, f.ID, "planning", "in-development", "lead"))

	gotFeature, err := s.GetFeature(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotFeature.TransitionCount)
}
