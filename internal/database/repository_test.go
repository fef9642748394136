package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func TestTaskRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	deadline := time.Date(2025, 6, 30, 17, 0, 0, 0, time.UTC)
	completed := deadline.AddDate(0, 0, -2)
	task := &types.Task{
		Title:       "Quarterly budget review",
		Status:      types.StatusCompleted,
		Progress:    100,
		Deadline:    deadline,
		CompletedAt: &completed,
		Priority:    types.PriorityImportant,
	}
	require.NoError(t, repo.CreateTask(ctx, task))
	require.NotEmpty(t, task.ID)

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, types.PriorityImportant, got.Priority)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(completed))
	assert.Empty(t, got.ParentTaskID)
}

func TestGetTaskNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTask(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStatusNormalizedOnRead(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Raw strings written by an importer come back as closed enums.
	task := &types.Task{
		Title:    "Imported task",
		Status:   types.TaskStatus("Done"),
		Deadline: time.Now().UTC(),
		Priority: types.TaskPriority("HIGH"),
	}
	require.NoError(t, repo.CreateTask(ctx, task))

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, types.PriorityImportant, got.Priority)
}

func TestAssignmentsByTaskAndUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &types.Task{Title: "t", Status: types.StatusInProgress, Deadline: time.Now().UTC(), Priority: types.PriorityNormal}
	require.NoError(t, repo.CreateTask(ctx, task))

	lead := &types.Assignment{TaskID: task.ID, UserID: "u1", Role: types.RoleLead}
	collab := &types.Assignment{TaskID: task.ID, UserID: "u2", Role: types.RoleCollaborator}
	require.NoError(t, repo.CreateAssignment(ctx, lead))
	require.NoError(t, repo.CreateAssignment(ctx, collab))

	byTask, err := repo.GetTaskAssignments(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, byTask, 2)

	byUser, err := repo.GetUserAssignments(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, types.RoleCollaborator, byUser[0].Role)
}

func TestUpsertEvaluationOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &types.Task{Title: "t", Status: types.StatusCompleted, Deadline: time.Now().UTC(), Priority: types.PriorityNormal}
	require.NoError(t, repo.CreateTask(ctx, task))
	as := &types.Assignment{TaskID: task.ID, UserID: "u1", Role: types.RoleLead}
	require.NoError(t, repo.CreateAssignment(ctx, as))

	first, err := repo.UpsertEvaluation(ctx, task.ID, as.ID, "boss", 7, "solid")
	require.NoError(t, err)
	assert.Equal(t, 7.0, first.Score)

	second, err := repo.UpsertEvaluation(ctx, task.ID, as.ID, "boss", 9, "better than I thought")
	require.NoError(t, err)
	assert.Equal(t, 9.0, second.Score)
	assert.Equal(t, "better than I thought", second.Comments)

	all, err := repo.GetEvaluations(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "re-submission must replace, not append")
}

func TestUpsertEvaluationResubmissionKeepsTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &types.Task{Title: "t", Status: types.StatusCompleted, Deadline: time.Now().UTC(), Priority: types.PriorityNormal}
	require.NoError(t, repo.CreateTask(ctx, task))
	as := &types.Assignment{TaskID: task.ID, UserID: "u1", Role: types.RoleLead}
	require.NoError(t, repo.CreateAssignment(ctx, as))

	first, err := repo.UpsertEvaluation(ctx, task.ID, as.ID, "boss", 8, "good")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second, err := repo.UpsertEvaluation(ctx, task.ID, as.ID, "boss", 8, "good")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.EvaluatedAt.Equal(first.EvaluatedAt),
		"an unchanged re-submission must not move the evaluation in time")

	// A changed score is a new evaluation as far as the timestamp is
	// concerned.
	third, err := repo.UpsertEvaluation(ctx, task.ID, as.ID, "boss", 9, "good")
	require.NoError(t, err)
	assert.True(t, third.EvaluatedAt.After(first.EvaluatedAt))
}

func TestGetEvaluationNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetEvaluation(context.Background(), "t", "a")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestActivityCollections(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &types.Task{Title: "t", Status: types.StatusInProgress, Deadline: time.Now().UTC(), Priority: types.PriorityNormal}
	require.NoError(t, repo.CreateTask(ctx, task))

	require.NoError(t, repo.AddProgressUpdate(ctx, &types.ProgressUpdate{TaskID: task.ID, UserID: "u1", Content: "drafted the outline", Progress: 25}))
	require.NoError(t, repo.AddComment(ctx, &types.Comment{TaskID: task.ID, UserID: "u2", Content: "looks good"}))
	require.NoError(t, repo.AddAttachment(ctx, &types.Attachment{TaskID: task.ID, UserID: "u1", FileName: "outline.docx"}))

	updates, err := repo.GetProgressUpdates(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 25.0, updates[0].Progress)

	comments, err := repo.GetComments(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	attachments, err := repo.GetAttachments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "outline.docx", attachments[0].FileName)
}

func TestUsersByDepartmentAndRole(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateDepartment(ctx, &types.Department{ID: "d1", Name: "Planning"}))
	require.NoError(t, repo.CreateUser(ctx, &types.User{ID: "u1", Name: "An", Role: types.RoleStaff, DepartmentID: "d1"}))
	require.NoError(t, repo.CreateUser(ctx, &types.User{ID: "u2", Name: "Binh", Role: types.RoleDepartmentHead, DepartmentID: "d1"}))
	require.NoError(t, repo.CreateUser(ctx, &types.User{ID: "u3", Name: "Chi", Role: types.RoleDirector}))

	heads, err := repo.GetUsersByDepartmentAndRole(ctx, "d1", types.RoleDepartmentHead)
	require.NoError(t, err)
	require.Len(t, heads, 1)
	assert.Equal(t, "u2", heads[0].ID)

	directors, err := repo.GetUsersByDepartmentAndRole(ctx, "", types.RoleDirector)
	require.NoError(t, err)
	require.Len(t, directors, 1)
	assert.Equal(t, "u3", directors[0].ID)

	everyone, err := repo.GetUsersByDepartmentAndRole(ctx, "d1", "")
	require.NoError(t, err)
	assert.Len(t, everyone, 2)
}

func TestNextTaskNumber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n1, err := repo.NextTaskNumber(ctx, "2025-Q2")
	require.NoError(t, err)
	assert.Equal(t, "2025-Q2-0001", n1)

	n2, err := repo.NextTaskNumber(ctx, "2025-Q2")
	require.NoError(t, err)
	assert.Equal(t, "2025-Q2-0002", n2)

	other, err := repo.NextTaskNumber(ctx, "2025-Q3")
	require.NoError(t, err)
	assert.Equal(t, "2025-Q3-0001", other, "counters are independent per period")
}
