package scoring

import (
	"time"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

const hoursPerDay = 24

// CompletionScore measures deadline adherence on a 0..120 scale.
// Finishing more than one full day early earns the 120 bonus tier;
// anything still open past its deadline scores zero.
func CompletionScore(task *types.Task, now time.Time) float64 {
	switch task.Status {
	case types.StatusCompleted:
		if task.CompletedAt == nil {
			// Completed but the timestamp was never recorded.
			return 100
		}
		d := task.CompletedAt.Sub(task.Deadline).Hours() / hoursPerDay
		switch {
		case d < -1:
			return 120
		case d < 0:
			return 110
		case d == 0:
			return 100
		case d <= 3:
			return 90
		default:
			return 80
		}
	case types.StatusInProgress:
		if now.After(task.Deadline) {
			return 0
		}
		return 50 + task.Progress*0.5
	case types.StatusNotStarted:
		if now.After(task.Deadline) {
			return 0
		}
		return 30
	default:
		return 0
	}
}

// LeadershipCap converts a completion score into the maximum evaluation
// score (out of 10) allowed to contribute to quality. The cap keeps a
// generous evaluator from inflating the KPI of a task that missed its
// deadline; it is applied exactly once, at quality-score time.
func LeadershipCap(completion float64) int {
	switch {
	case completion >= 110:
		return 10
	case completion >= 100:
		return 8
	case completion >= 90:
		return 6
	case completion >= 80:
		return 4
	case completion > 0:
		return 2
	default:
		return 1
	}
}
