package stats

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Quybuom/hcckpi-tasks-sub000/internal/errors"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/scoring"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// UserStanding is one user's ranked position within a department.
type UserStanding struct {
	Rank         int            `json:"rank"`
	UserID       string         `json:"user_id"`
	UserName     string         `json:"user_name"`
	Role         types.UserRole `json:"role"`
	AverageScore float64        `json:"average_score"`
	TotalScore   float64        `json:"total_score"`
	TaskCount    int            `json:"task_count"`
}

// DepartmentStats is the ranked KPI summary for one department.
type DepartmentStats struct {
	DepartmentID   string                      `json:"department_id"`
	DepartmentName string                      `json:"department_name"`
	Period         *scoring.Period             `json:"period,omitempty"`
	Standings      []UserStanding              `json:"standings"`
	TotalUsers     int                         `json:"total_users"`
	Skipped        []scoring.SkippedAssignment `json:"skipped,omitempty"`
	GeneratedAt    time.Time                   `json:"generated_at"`
}

// Service computes department-wide KPI statistics. Each request builds
// one activity cache for the whole department's task set, so a task
// shared by several members is preloaded exactly once.
type Service struct {
	store      scoring.Store
	aggregator *scoring.Aggregator
	preloader  *scoring.Preloader
	cache      *StatsCache
}

// NewService creates a statistics service backed by the given store.
func NewService(store scoring.Store, cacheTTL time.Duration) *Service {
	return &Service{
		store:      store,
		aggregator: scoring.NewAggregator(store),
		preloader:  scoring.NewPreloader(store),
		cache:      NewStatsCache(cacheTTL),
	}
}

// ForDepartment computes ranked per-user KPI statistics for a
// department, optionally bounded by a period window. Results are cached
// by department, window and limit.
func (s *Service) ForDepartment(ctx context.Context, departmentID string, period *scoring.Period, limit int) (*DepartmentStats, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	if cached, found := s.cache.GetDepartment(departmentID, period, limit); found {
		return cached, nil
	}

	start := time.Now()

	dept, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("department", departmentID)
		}
		return nil, err
	}

	users, err := s.store.GetUsersByDepartmentAndRole(ctx, departmentID, "")
	if err != nil {
		return nil, err
	}

	assignments, err := s.collectAssignments(ctx, users)
	if err != nil {
		return nil, err
	}

	tasks, err := s.fetchTasks(ctx, assignments)
	if err != nil {
		return nil, err
	}

	activity, err := s.preloader.Load(ctx, tasks)
	if err != nil {
		return nil, err
	}

	inWindow := scoring.FilterTasks(tasks, activity, period)
	kept := make(map[string]bool, len(inWindow))
	for _, t := range inWindow {
		kept[t.ID] = true
	}

	// Assignments whose task fell outside the window are dropped here,
	// not passed through, so they do not surface as missing-task skips.
	// Dangling assignments keep flowing so ForTaskSet can report them.
	scored := make([]types.Assignment, 0, len(assignments))
	for _, as := range assignments {
		if kept[as.TaskID] || !taskExists(tasks, as.TaskID) {
			scored = append(scored, as)
		}
	}

	results := s.aggregator.ForTaskSet(inWindow, scored, activity, period)
	stats := s.rank(dept, users, results, period, limit)

	slog.Info("Department statistics computed",
		"department_id", departmentID,
		"users", len(users),
		"tasks", len(inWindow),
		"skipped", len(stats.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.cache.SetDepartment(departmentID, period, limit, stats)
	return stats, nil
}

// CacheStats returns statistics cache metrics.
func (s *Service) CacheStats() map[string]interface{} {
	return s.cache.GetStats()
}

// collectAssignments fans out one assignment fetch per department
// member.
func (s *Service) collectAssignments(ctx context.Context, users []types.User) ([]types.Assignment, error) {
	var mu sync.Mutex
	var all []types.Assignment

	g, ctx := errgroup.WithContext(ctx)
	for _, u := range users {
		userID := u.ID
		g.Go(func() error {
			assignments, err := s.store.GetUserAssignments(ctx, userID)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, assignments...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// fetchTasks resolves the unique task set behind the assignments. A
// dangling assignment's task is simply absent from the result.
func (s *Service) fetchTasks(ctx context.Context, assignments []types.Assignment) ([]*types.Task, error) {
	seen := make(map[string]bool, len(assignments))

	var mu sync.Mutex
	var tasks []*types.Task

	g, ctx := errgroup.WithContext(ctx)
	for _, as := range assignments {
		if seen[as.TaskID] {
			continue
		}
		seen[as.TaskID] = true
		taskID := as.TaskID
		g.Go(func() error {
			task, err := s.store.GetTask(ctx, taskID)
			if errors.Is(err, types.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// rank orders users by average score, ties broken by task count then
// user id so rankings are stable across runs.
func (s *Service) rank(dept *types.Department, users []types.User, results map[string]*scoring.Result, period *scoring.Period, limit int) *DepartmentStats {
	stats := &DepartmentStats{
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Period:         period,
		TotalUsers:     len(users),
		GeneratedAt:    time.Now().UTC(),
	}

	for _, u := range users {
		res, ok := results[u.ID]
		if !ok {
			continue
		}
		stats.Skipped = append(stats.Skipped, res.Skipped...)
		if res.TaskCount == 0 {
			continue
		}
		stats.Standings = append(stats.Standings, UserStanding{
			UserID:       u.ID,
			UserName:     u.Name,
			Role:         u.Role,
			AverageScore: res.AverageScore,
			TotalScore:   res.TotalScore,
			TaskCount:    res.TaskCount,
		})
	}

	sort.Slice(stats.Standings, func(i, j int) bool {
		a, b := stats.Standings[i], stats.Standings[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		if a.TaskCount != b.TaskCount {
			return a.TaskCount > b.TaskCount
		}
		return a.UserID < b.UserID
	})

	if len(stats.Standings) > limit {
		stats.Standings = stats.Standings[:limit]
	}
	for i := range stats.Standings {
		stats.Standings[i].Rank = i + 1
	}
	return stats
}

func taskExists(tasks []*types.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
