package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Quybuom/hcckpi-tasks-sub000/internal/errors"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/scoring"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

var statsDeadline = time.Date(2025, 6, 10, 17, 0, 0, 0, time.UTC)

// fakeStore implements scoring.Store over maps.
type fakeStore struct {
	tasks       map[string]*types.Task
	assignments map[string][]types.Assignment
	users       map[string]*types.User
	departments map[string]*types.Department
	evaluations map[string]*types.Evaluation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:       make(map[string]*types.Task),
		assignments: make(map[string][]types.Assignment),
		users:       make(map[string]*types.User),
		departments: make(map[string]*types.Department),
		evaluations: make(map[string]*types.Evaluation),
	}
}

func (f *fakeStore) GetTask(_ context.Context, id string) (*types.Task, error) {
	if t, ok := f.tasks[id]; ok {
		return t, nil
	}
	return nil, types.ErrNotFound
}

func (f *fakeStore) GetTaskAssignments(_ context.Context, taskID string) ([]types.Assignment, error) {
	return f.assignments[taskID], nil
}

func (f *fakeStore) GetUserAssignments(_ context.Context, userID string) ([]types.Assignment, error) {
	var out []types.Assignment
	for _, as := range f.assignments {
		for _, a := range as {
			if a.UserID == userID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetProgressUpdates(_ context.Context, _ string) ([]types.ProgressUpdate, error) {
	return nil, nil
}

func (f *fakeStore) GetComments(_ context.Context, _ string) ([]types.Comment, error) {
	return nil, nil
}

func (f *fakeStore) GetAttachments(_ context.Context, _ string) ([]types.Attachment, error) {
	return nil, nil
}

func (f *fakeStore) GetEvaluation(_ context.Context, taskID, assignmentID string) (*types.Evaluation, error) {
	if ev, ok := f.evaluations[taskID+"/"+assignmentID]; ok {
		return ev, nil
	}
	return nil, types.ErrNotFound
}

func (f *fakeStore) GetEvaluations(_ context.Context, taskID string) ([]types.Evaluation, error) {
	var out []types.Evaluation
	for _, ev := range f.evaluations {
		if ev.TaskID == taskID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*types.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, types.ErrNotFound
}

func (f *fakeStore) GetDepartment(_ context.Context, id string) (*types.Department, error) {
	if d, ok := f.departments[id]; ok {
		return d, nil
	}
	return nil, types.ErrNotFound
}

func (f *fakeStore) GetUsersByDepartmentAndRole(_ context.Context, departmentID string, role types.UserRole) ([]types.User, error) {
	var out []types.User
	for _, u := range f.users {
		if departmentID != "" && u.DepartmentID != departmentID {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) UpsertEvaluation(_ context.Context, taskID, assignmentID, evaluatorID string, score float64, comments string) (*types.Evaluation, error) {
	key := taskID + "/" + assignmentID
	ev := &types.Evaluation{
		ID: key, TaskID: taskID, AssignmentID: assignmentID,
		EvaluatorID: evaluatorID, Score: score, Comments: comments,
		EvaluatedAt: time.Now().UTC(),
	}
	f.evaluations[key] = ev
	return ev, nil
}

// completedTask builds a completed task whose completion timestamp sits
// the given number of days relative to the deadline.
func (f *fakeStore) completedTask(id string, daysLate float64) {
	completedAt := statsDeadline.Add(time.Duration(daysLate * 24 * float64(time.Hour)))
	f.tasks[id] = &types.Task{
		ID:          id,
		Status:      types.StatusCompleted,
		Deadline:    statsDeadline,
		CompletedAt: &completedAt,
		Priority:    types.PriorityNormal,
	}
}

func (f *fakeStore) assign(id, taskID, userID string, role types.AssignmentRole) {
	f.assignments[taskID] = append(f.assignments[taskID], types.Assignment{
		ID: id, TaskID: taskID, UserID: userID, Role: role,
	})
}

// fixture: two staff members with one completed task each, plus a head
// with no assignments. u2 finished two days early, u1 exactly on time.
func deptFixture() (*Service, *fakeStore) {
	store := newFakeStore()
	store.departments["d1"] = &types.Department{ID: "d1", Name: "Planning"}
	store.users["u1"] = &types.User{ID: "u1", Name: "An", Role: types.RoleStaff, DepartmentID: "d1"}
	store.users["u2"] = &types.User{ID: "u2", Name: "Binh", Role: types.RoleStaff, DepartmentID: "d1"}
	store.users["head1"] = &types.User{ID: "head1", Name: "Chi", Role: types.RoleDepartmentHead, DepartmentID: "d1"}

	store.completedTask("t1", 0)
	store.assign("a1", "t1", "u1", types.RoleLead)

	store.completedTask("t2", -2)
	store.assign("a2", "t2", "u2", types.RoleLead)

	return NewService(store, time.Minute), store
}

func TestForDepartmentRanksUsers(t *testing.T) {
	svc, _ := deptFixture()

	stats, err := svc.ForDepartment(context.Background(), "d1", nil, 50)
	require.NoError(t, err)

	assert.Equal(t, "Planning", stats.DepartmentName)
	assert.Equal(t, 3, stats.TotalUsers)
	require.Len(t, stats.Standings, 2)

	// No activity on either task, so the blended score is completion
	// only: 0.7*120 for the early finish, 0.7*100 for on time.
	assert.Equal(t, 1, stats.Standings[0].Rank)
	assert.Equal(t, "u2", stats.Standings[0].UserID)
	assert.InDelta(t, 84.0, stats.Standings[0].AverageScore, 0.001)

	assert.Equal(t, 2, stats.Standings[1].Rank)
	assert.Equal(t, "u1", stats.Standings[1].UserID)
	assert.InDelta(t, 70.0, stats.Standings[1].AverageScore, 0.001)
}

func TestForDepartmentUnknownDepartment(t *testing.T) {
	svc, _ := deptFixture()

	_, err := svc.ForDepartment(context.Background(), "ghost", nil, 50)
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryNotFound, apperrors.ToAppError(err).Category)
}

func TestForDepartmentCollaboratorDiscount(t *testing.T) {
	store := newFakeStore()
	store.departments["d1"] = &types.Department{ID: "d1", Name: "Planning"}
	store.users["u1"] = &types.User{ID: "u1", Role: types.RoleStaff, DepartmentID: "d1"}
	store.users["u2"] = &types.User{ID: "u2", Role: types.RoleStaff, DepartmentID: "d1"}
	store.completedTask("t1", 0)
	store.assign("a1", "t1", "u1", types.RoleLead)
	store.assign("a2", "t1", "u2", types.RoleCollaborator)
	svc := NewService(store, time.Minute)

	stats, err := svc.ForDepartment(context.Background(), "d1", nil, 50)
	require.NoError(t, err)
	require.Len(t, stats.Standings, 2)

	assert.Equal(t, "u1", stats.Standings[0].UserID)
	assert.InDelta(t, 70.0, stats.Standings[0].AverageScore, 0.001)
	assert.Equal(t, "u2", stats.Standings[1].UserID)
	assert.InDelta(t, 21.0, stats.Standings[1].AverageScore, 0.001)
}

func TestForDepartmentPeriodFiltering(t *testing.T) {
	svc, store := deptFixture()

	// Push u2's task out of the window; with no activity inside it the
	// task drops out entirely instead of becoming a skip.
	old := statsDeadline.AddDate(0, -3, 0)
	store.tasks["t2"].Deadline = old
	store.tasks["t2"].CompletedAt = &old

	period := &scoring.Period{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC),
	}
	stats, err := svc.ForDepartment(context.Background(), "d1", period, 50)
	require.NoError(t, err)

	require.Len(t, stats.Standings, 1)
	assert.Equal(t, "u1", stats.Standings[0].UserID)
	assert.Empty(t, stats.Skipped)
}

func TestForDepartmentDanglingAssignment(t *testing.T) {
	svc, store := deptFixture()
	store.assign("a9", "ghost", "u1", types.RoleLead)

	stats, err := svc.ForDepartment(context.Background(), "d1", nil, 50)
	require.NoError(t, err)

	require.Len(t, stats.Skipped, 1)
	assert.Equal(t, "ghost", stats.Skipped[0].TaskID)
	assert.Equal(t, scoring.SkipMissingTask, stats.Skipped[0].Reason)

	// The dangling assignment contributes nothing to u1's average.
	for _, st := range stats.Standings {
		if st.UserID == "u1" {
			assert.Equal(t, 1, st.TaskCount)
		}
	}
}

func TestForDepartmentLimit(t *testing.T) {
	svc, _ := deptFixture()

	stats, err := svc.ForDepartment(context.Background(), "d1", nil, 1)
	require.NoError(t, err)

	require.Len(t, stats.Standings, 1)
	assert.Equal(t, 1, stats.Standings[0].Rank)
	assert.Equal(t, "u2", stats.Standings[0].UserID)
}

func TestForDepartmentCachesResults(t *testing.T) {
	svc, store := deptFixture()
	ctx := context.Background()

	first, err := svc.ForDepartment(ctx, "d1", nil, 50)
	require.NoError(t, err)

	// Mutating the store must not affect a cached response.
	store.completedTask("t3", 0)
	store.assign("a3", "t3", "head1", types.RoleLead)

	second, err := svc.ForDepartment(ctx, "d1", nil, 50)
	require.NoError(t, err)
	assert.Equal(t, len(first.Standings), len(second.Standings))
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt))
}
