package scoring

import (
	"context"
	"sort"
	"sync"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu sync.Mutex

	tasks           map[string]*types.Task
	taskAssignments map[string][]types.Assignment
	userAssignments map[string][]types.Assignment
	updates         map[string][]types.ProgressUpdate
	comments        map[string][]types.Comment
	attachments     map[string][]types.Attachment
	evaluations     map[string]*types.Evaluation // taskID + "/" + assignmentID
	users           map[string]*types.User
	departments     map[string]*types.Department
}

func newMemStore() *memStore {
	return &memStore{
		tasks:           make(map[string]*types.Task),
		taskAssignments: make(map[string][]types.Assignment),
		userAssignments: make(map[string][]types.Assignment),
		updates:         make(map[string][]types.ProgressUpdate),
		comments:        make(map[string][]types.Comment),
		attachments:     make(map[string][]types.Attachment),
		evaluations:     make(map[string]*types.Evaluation),
		users:           make(map[string]*types.User),
		departments:     make(map[string]*types.Department),
	}
}

func (m *memStore) addTask(t *types.Task) { m.tasks[t.ID] = t }

func (m *memStore) addAssignment(a types.Assignment) {
	m.taskAssignments[a.TaskID] = append(m.taskAssignments[a.TaskID], a)
	m.userAssignments[a.UserID] = append(m.userAssignments[a.UserID], a)
}

func (m *memStore) addUser(u *types.User)             { m.users[u.ID] = u }
func (m *memStore) addDepartment(d *types.Department) { m.departments[d.ID] = d }

func (m *memStore) GetTask(_ context.Context, id string) (*types.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok {
		return t, nil
	}
	return nil, types.ErrNotFound
}

func (m *memStore) GetTaskAssignments(_ context.Context, taskID string) ([]types.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taskAssignments[taskID], nil
}

func (m *memStore) GetUserAssignments(_ context.Context, userID string) ([]types.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userAssignments[userID], nil
}

func (m *memStore) GetProgressUpdates(_ context.Context, taskID string) ([]types.ProgressUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[taskID], nil
}

func (m *memStore) GetComments(_ context.Context, taskID string) ([]types.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.comments[taskID], nil
}

func (m *memStore) GetAttachments(_ context.Context, taskID string) ([]types.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachments[taskID], nil
}

func (m *memStore) GetEvaluation(_ context.Context, taskID, assignmentID string) (*types.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.evaluations[taskID+"/"+assignmentID]; ok {
		return ev, nil
	}
	return nil, types.ErrNotFound
}

func (m *memStore) GetEvaluations(_ context.Context, taskID string) ([]types.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Evaluation
	for _, ev := range m.evaluations {
		if ev.TaskID == taskID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, types.ErrNotFound
}

func (m *memStore) GetDepartment(_ context.Context, id string) (*types.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, types.ErrNotFound
}

func (m *memStore) GetUsersByDepartmentAndRole(_ context.Context, departmentID string, role types.UserRole) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.User
	for _, u := range m.users {
		if departmentID != "" && u.DepartmentID != departmentID {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpsertEvaluation(_ context.Context, taskID, assignmentID, evaluatorID string, score float64, comments string) (*types.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := taskID + "/" + assignmentID
	ev, ok := m.evaluations[key]
	if !ok {
		ev = &types.Evaluation{ID: key, TaskID: taskID, AssignmentID: assignmentID}
		m.evaluations[key] = ev
	}
	ev.EvaluatorID = evaluatorID
	ev.Score = score
	ev.Comments = comments
	return ev, nil
}
