package scoring

import (
	"time"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

const (
	completionWeight = 0.7
	qualityWeight    = 0.3

	collaboratorCoefficient = 0.3
	defaultCoefficient      = 1.0
)

// TaskScore is the fully broken-down score for one assignment on one
// task. Every intermediate stays inspectable for auditing.
type TaskScore struct {
	TaskID            string  `json:"task_id"`
	CompletionScore   float64 `json:"completion_score"`
	QualityScore      float64 `json:"quality_score"`
	Score             float64 `json:"score"`
	RoleCoefficient   float64 `json:"role_coefficient"`
	PriorityWeight    float64 `json:"priority_weight"`
	RoleWeightedScore float64 `json:"role_weighted_score"`
}

// RoleCoefficient discounts collaborator assignments; every other role
// counts in full.
func RoleCoefficient(role types.AssignmentRole) float64 {
	if role == types.RoleCollaborator {
		return collaboratorCoefficient
	}
	return defaultCoefficient
}

// PriorityWeight maps task priority to its aggregation weight.
func PriorityWeight(p types.TaskPriority) float64 {
	switch p {
	case types.PriorityUrgent:
		return 3
	case types.PriorityImportant:
		return 2
	default:
		return 1
	}
}

// ScoreTask blends completion and quality into a per-assignment score
// and applies the role coefficient.
func ScoreTask(task *types.Task, assignment types.Assignment, activity *TaskActivity, period *Period, now time.Time) TaskScore {
	completion := CompletionScore(task, now)
	quality := QualityScore(task, assignment.ID, activity, period, now)
	score := completion*completionWeight + quality*qualityWeight
	coeff := RoleCoefficient(assignment.Role)

	return TaskScore{
		TaskID:            task.ID,
		CompletionScore:   completion,
		QualityScore:      quality,
		Score:             score,
		RoleCoefficient:   coeff,
		PriorityWeight:    PriorityWeight(task.Priority),
		RoleWeightedScore: score * coeff,
	}
}
