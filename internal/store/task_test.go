package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwwelbor/shark-task-manager/internal/models"
	"github.com/jwwelbor/shark-task-manager/internal/workflowconfig"
)

func seedFeature(t *testing.T, s *Store) *models.Feature {
	t.Helper()
	ctx := context.Background()
	p := &models.Project{Name: "Orchestrator", Summary: "s", Status: "draft"}
	require.NoError(t, s.CreateProject(ctx, p))
	f := &models.Feature{ProjectID: &p.ID, Name: "Entity store", Summary: "C1", Status: "draft", Priority: 5}
	require.NoError(t, s.CreateFeature(ctx, f))
	return f
}

func TestTaskRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	task := &models.Task{FeatureID: &f.ID, Title: "Write store.go", Summary: "Scaffold", Status: "pending", Priority: 5, Complexity: 3}
	require.NoError(t, s.CreateTask(ctx, task))

	require.NotNil(t, task.ProjectID)
	assert.Equal(t, *f.ProjectID, *task.ProjectID, "task.project_id is inherited from its feature")

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write store.go", got.Title)

	got.Status = "in-progress"
	require.NoError(t, s.UpdateTask(ctx, got))

	byFeature, err := s.FindTasksByFeature(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, byFeature, 1)
	assert.Equal(t, "in-progress", byFeature[0].Status)

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	_, err = s.GetTask(ctx, task.ID)
	assert.True(t, IsNotFound(err))
}

func TestCreateTaskRejectsProjectFeatureMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	otherProject := &models.Project{Name: "Other", Summary: "s", Status: "draft"}
	require.NoError(t, s.CreateProject(ctx, otherProject))

	task := &models.Task{FeatureID: &f.ID, ProjectID: &otherProject.ID, Title: "Mismatched task", Summary: "s", Status: "pending", Priority: 5, Complexity: 3}
	err := s.CreateTask(ctx, task)
	require.Error(t, err)
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindValidationError, storeErr.Kind)
}

func TestCreateTasksInsertsAllInOneTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	tasks := []*models.Task{
		{FeatureID: &f.ID, Title: "One", Summary: "s", Status: "pending", Priority: 5, Complexity: 1},
		{FeatureID: &f.ID, Title: "Two", Summary: "s", Status: "pending", Priority: 5, Complexity: 1},
		{FeatureID: &f.ID, Title: "Three", Summary: "s", Status: "pending", Priority: 5, Complexity: 1},
	}
	require.NoError(t, s.CreateTasks(ctx, tasks))

	for _, task := range tasks {
		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.NotNil(t, task.ProjectID, "batch-created tasks still inherit project_id from the feature")
	}

	byFeature, err := s.FindTasksByFeature(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, byFeature, 3)
}

func TestCreateTasksRollsBackAllOnOneFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	tasks := []*models.Task{
		{FeatureID: &f.ID, Title: "Valid", Summary: "s", Status: "pending", Priority: 5, Complexity: 1},
		{FeatureID: &f.ID, Title: "", Summary: "s", Status: "pending", Priority: 5, Complexity: 1},
	}
	err := s.CreateTasks(ctx, tasks)
	require.Error(t, err)

	byFeature, err := s.FindTasksByFeature(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, byFeature, "a failed batch leaves no partially-created tasks")
}

func TestTaskCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	statuses := []string{"completed", "completed", "in-progress", "cancelled"}
	for _, status := range statuses {
		task := &models.Task{FeatureID: &f.ID, Title: "t-" + status, Summary: "s", Status: status, Priority: 5, Complexity: 3}
		require.NoError(t, s.CreateTask(ctx, task))
	}

	counts, err := s.TaskCounts(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Total)
	assert.Equal(t, 2, counts.Completed)
	assert.Equal(t, 1, counts.Cancelled)
	assert.Equal(t, 1, counts.NonTerminal)

	titles, err := s.NonTerminalTaskTitles(ctx, f.ID, []string{"completed", "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t-in-progress"}, titles)
}

func TestUpdateStatusOptimisticLock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := seedFeature(t, s)

	task := &models.Task{FeatureID: &f.ID, Title: "t", Summary: "s", Status: "pending", Priority: 5, Complexity: 3}
	require.NoError(t, s.CreateTask(ctx, task))

	newVersion, err := s.UpdateStatus(ctx, workflowconfig.ContainerTask, task.ID, "in-progress", task.Version)
	require.NoError(t, err)
	assert.EqualValues(t, task.Version+1, newVersion)

	_, err = s.UpdateStatus(ctx, workflowconfig.ContainerTask, task.ID, "completed", task.Version)
	assert.True(t, IsVersionConflict(err))
}
