package scoring

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// SkipReason explains why an assignment contributed nothing to a KPI
// aggregate. Skips are returned, not swallowed, so callers can alert on
// data gaps like dangling assignments.
type SkipReason string

const (
	SkipMissingTask     SkipReason = "missing_task"
	SkipMissingActivity SkipReason = "missing_activity"
)

// SkippedAssignment records one excluded contribution.
type SkippedAssignment struct {
	AssignmentID string     `json:"assignment_id"`
	TaskID       string     `json:"task_id"`
	Reason       SkipReason `json:"reason"`
}

// Result is a user's aggregated KPI over a set of tasks.
type Result struct {
	UserID       string              `json:"user_id"`
	TotalScore   float64             `json:"total_score"`
	TaskCount    int                 `json:"task_count"`
	AverageScore float64             `json:"average_score"`
	TaskScores   []TaskScore         `json:"task_scores"`
	Skipped      []SkippedAssignment `json:"skipped,omitempty"`
}

// Aggregator turns assignments into priority-weighted average KPI
// scores. Two entry points share the inner loop: ForUser fetches and
// filters a single user's tasks; ForTaskSet scores a pre-filtered task
// set against a shared activity cache.
type Aggregator struct {
	store     Store
	preloader *Preloader
	now       func() time.Time
}

// NewAggregator creates an aggregator backed by the given store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{
		store:     store,
		preloader: NewPreloader(store),
		now:       time.Now,
	}
}

// ForUser computes the KPI for one user, optionally bounded by a period
// window. Task fetches and activity preloading fan out concurrently.
func (a *Aggregator) ForUser(ctx context.Context, userID string, period *Period) (*Result, error) {
	assignments, err := a.store.GetUserAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}

	tasks, err := a.fetchTasks(ctx, assignments)
	if err != nil {
		return nil, err
	}

	taskList := make([]*types.Task, 0, len(tasks))
	for _, t := range tasks {
		taskList = append(taskList, t)
	}
	cache, err := a.preloader.Load(ctx, taskList)
	if err != nil {
		return nil, err
	}

	return a.aggregate(userID, assignments, tasks, cache, period, false), nil
}

// ForTaskSet scores an already-filtered task set, grouping assignments
// by user. The caller supplies the activity cache so department-wide
// statistics preload each task exactly once.
func (a *Aggregator) ForTaskSet(tasks []*types.Task, assignments []types.Assignment, cache ActivityCache, period *Period) map[string]*Result {
	byID := make(map[string]*types.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	byUser := make(map[string][]types.Assignment)
	for _, as := range assignments {
		byUser[as.UserID] = append(byUser[as.UserID], as)
	}

	results := make(map[string]*Result, len(byUser))
	for userID, userAssignments := range byUser {
		results[userID] = a.aggregate(userID, userAssignments, byID, cache, period, true)
	}
	return results
}

// fetchTasks resolves each assignment's task concurrently. A dangling
// assignment whose task no longer exists is left out of the map and
// surfaces later as a skip, not an error.
func (a *Aggregator) fetchTasks(ctx context.Context, assignments []types.Assignment) (map[string]*types.Task, error) {
	tasks := make(map[string]*types.Task, len(assignments))
	seen := make(map[string]bool, len(assignments))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, as := range assignments {
		if seen[as.TaskID] {
			continue
		}
		seen[as.TaskID] = true
		taskID := as.TaskID
		g.Go(func() error {
			task, err := a.store.GetTask(ctx, taskID)
			if errors.Is(err, types.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			tasks[taskID] = task
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// includeTask applies the period inclusion rules: completed tasks count
// by completion date, open tasks by deadline, and an out-of-window task
// still counts if it saw activity during the window.
func includeTask(task *types.Task, activity *TaskActivity, period *Period) bool {
	if period == nil {
		return true
	}
	if task.Status == types.StatusCompleted && task.CompletedAt != nil {
		return period.Contains(*task.CompletedAt)
	}
	if period.Contains(task.Deadline) {
		return true
	}
	return activity.HasActivityIn(period)
}

// FilterTasks returns the subset of tasks inside the period under the
// same inclusion rules ForUser applies. Callers feeding ForTaskSet use
// this so filtered-out tasks do not show up as missing-task skips.
func FilterTasks(tasks []*types.Task, cache ActivityCache, period *Period) []*types.Task {
	if period == nil {
		return tasks
	}
	kept := make([]*types.Task, 0, len(tasks))
	for _, t := range tasks {
		if includeTask(t, cache[t.ID], period) {
			kept = append(kept, t)
		}
	}
	return kept
}

func (a *Aggregator) aggregate(userID string, assignments []types.Assignment, tasks map[string]*types.Task, cache ActivityCache, period *Period, prefiltered bool) *Result {
	now := a.now()
	res := &Result{UserID: userID}

	var weightSum float64
	for _, as := range assignments {
		task, ok := tasks[as.TaskID]
		if !ok {
			res.Skipped = append(res.Skipped, SkippedAssignment{
				AssignmentID: as.ID, TaskID: as.TaskID, Reason: SkipMissingTask,
			})
			continue
		}
		activity, ok := cache[as.TaskID]
		if !ok {
			res.Skipped = append(res.Skipped, SkippedAssignment{
				AssignmentID: as.ID, TaskID: as.TaskID, Reason: SkipMissingActivity,
			})
			continue
		}
		if !prefiltered && !includeTask(task, activity, period) {
			continue
		}

		ts := ScoreTask(task, as, activity, period, now)
		res.TaskScores = append(res.TaskScores, ts)
		res.TotalScore += ts.RoleWeightedScore * ts.PriorityWeight
		weightSum += ts.PriorityWeight
	}

	res.TaskCount = len(res.TaskScores)
	if weightSum > 0 {
		res.AverageScore = res.TotalScore / weightSum
	}
	return res
}
