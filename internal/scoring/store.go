package scoring

import (
	"context"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// OrgDirectory is the organization lookup the evaluator resolver needs.
type OrgDirectory interface {
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetDepartment(ctx context.Context, id string) (*types.Department, error)
	// GetUsersByDepartmentAndRole filters users by department and role.
	// An empty departmentID or role means "any".
	GetUsersByDepartmentAndRole(ctx context.Context, departmentID string, role types.UserRole) ([]types.User, error)
}

// Store is the storage collaborator the engine reads from. The engine
// owns none of these records; UpsertEvaluation is its only write.
type Store interface {
	OrgDirectory

	GetTask(ctx context.Context, id string) (*types.Task, error)
	GetTaskAssignments(ctx context.Context, taskID string) ([]types.Assignment, error)
	GetUserAssignments(ctx context.Context, userID string) ([]types.Assignment, error)

	GetProgressUpdates(ctx context.Context, taskID string) ([]types.ProgressUpdate, error)
	GetComments(ctx context.Context, taskID string) ([]types.Comment, error)
	GetAttachments(ctx context.Context, taskID string) ([]types.Attachment, error)
	GetEvaluation(ctx context.Context, taskID, assignmentID string) (*types.Evaluation, error)
	GetEvaluations(ctx context.Context, taskID string) ([]types.Evaluation, error)

	// UpsertEvaluation creates or replaces the evaluation keyed by
	// (taskID, assignmentID). Must be atomic on that key.
	UpsertEvaluation(ctx context.Context, taskID, assignmentID, evaluatorID string, score float64, comments string) (*types.Evaluation, error)
}
