package scoring

import (
	"context"
	"errors"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// Resolver decides, from a task's assignment list and the organization
// hierarchy, who is authorized to evaluate a given assignment.
//
// Resolution order, first match wins:
//  1. Collaborators are always judged by the task's Lead.
//  2. A Supervisor on the task judges every other assignee.
//  3. Otherwise escalate by the assignee's own organizational role:
//     Staff -> department head, DepartmentHead -> assigned deputy
//     director (or any deputy, or any director), DeputyDirector -> any
//     director, Director -> nobody.
//
// Resolve never returns the target assignment's own user.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve fetches the task's assignments and resolves the evaluator for
// assignmentID. A nil user with nil error means no evaluator exists.
func (r *Resolver) Resolve(ctx context.Context, taskID, assignmentID string) (*types.User, error) {
	assignments, err := r.store.GetTaskAssignments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return r.ResolveFromAssignments(ctx, assignments, assignmentID)
}

// ResolveFromAssignments resolves the evaluator for the target
// assignment given the task's full assignment list.
func (r *Resolver) ResolveFromAssignments(ctx context.Context, assignments []types.Assignment, assignmentID string) (*types.User, error) {
	var target *types.Assignment
	for i := range assignments {
		if assignments[i].ID == assignmentID {
			target = &assignments[i]
			break
		}
	}
	if target == nil {
		return nil, nil
	}

	evaluator, err := r.resolveTarget(ctx, assignments, target)
	if err != nil {
		return nil, err
	}
	// Anti-self-evaluation guard. Every branch above is already
	// irreflexive for well-formed data; this holds it for dirty data
	// too (e.g. one user holding two assignments on the same task).
	if evaluator != nil && evaluator.ID == target.UserID {
		return nil, nil
	}
	return evaluator, nil
}

func (r *Resolver) resolveTarget(ctx context.Context, assignments []types.Assignment, target *types.Assignment) (*types.User, error) {
	if target.Role == types.RoleCollaborator {
		for _, a := range assignments {
			if a.Role == types.RoleLead {
				return r.userOrNone(ctx, a.UserID)
			}
		}
		return nil, nil
	}

	for _, a := range assignments {
		if a.Role == types.RoleSupervisor && a.UserID != target.UserID {
			return r.userOrNone(ctx, a.UserID)
		}
	}

	// Lead, Supervisor judging themself, or no Supervisor on the task:
	// escalate through the organization hierarchy.
	assignee, err := r.userOrNone(ctx, target.UserID)
	if err != nil || assignee == nil {
		return nil, err
	}
	return r.resolveHierarchy(ctx, assignee)
}

func (r *Resolver) resolveHierarchy(ctx context.Context, assignee *types.User) (*types.User, error) {
	switch assignee.Role {
	case types.RoleStaff:
		if assignee.DepartmentID == "" {
			return nil, nil
		}
		return r.firstByRole(ctx, assignee.DepartmentID, types.RoleDepartmentHead)

	case types.RoleDepartmentHead:
		if assignee.DepartmentID != "" {
			dept, err := r.store.GetDepartment(ctx, assignee.DepartmentID)
			if err != nil && !errors.Is(err, types.ErrNotFound) {
				return nil, err
			}
			if dept != nil && dept.AssignedDeputyDirectorID != "" {
				if u, err := r.userOrNone(ctx, dept.AssignedDeputyDirectorID); err != nil || u != nil {
					return u, err
				}
			}
		}
		if u, err := r.firstByRole(ctx, "", types.RoleDeputyDirector); err != nil || u != nil {
			return u, err
		}
		return r.firstByRole(ctx, "", types.RoleDirector)

	case types.RoleDeputyDirector:
		return r.firstByRole(ctx, "", types.RoleDirector)

	default:
		// Directors sit at the apex and are never evaluated.
		return nil, nil
	}
}

func (r *Resolver) firstByRole(ctx context.Context, departmentID string, role types.UserRole) (*types.User, error) {
	users, err := r.store.GetUsersByDepartmentAndRole(ctx, departmentID, role)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *Resolver) userOrNone(ctx context.Context, id string) (*types.User, error) {
	u, err := r.store.GetUser(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// CanEvaluate reports whether userID is the authorized evaluator for
// the given assignment. "No evaluator" and "wrong evaluator" are both
// regular false results, not errors.
func (r *Resolver) CanEvaluate(ctx context.Context, userID, taskID, assignmentID string) (bool, error) {
	evaluator, err := r.Resolve(ctx, taskID, assignmentID)
	if err != nil {
		return false, err
	}
	return evaluator != nil && evaluator.ID == userID, nil
}
