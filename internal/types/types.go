package types

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by storage lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusPaused     TaskStatus = "paused"
	StatusOverdue    TaskStatus = "overdue"
)

// TaskPriority weights a task's contribution to aggregate scores.
type TaskPriority string

const (
	PriorityUrgent    TaskPriority = "urgent"
	PriorityImportant TaskPriority = "important"
	PriorityNormal    TaskPriority = "normal"
)

// AssignmentRole is a user's role on a single task.
type AssignmentRole string

const (
	RoleLead         AssignmentRole = "lead"
	RoleCollaborator AssignmentRole = "collaborator"
	RoleSupervisor   AssignmentRole = "supervisor"
)

// UserRole is a user's position in the organization hierarchy.
type UserRole string

const (
	RoleStaff          UserRole = "staff"
	RoleDepartmentHead UserRole = "department_head"
	RoleDeputyDirector UserRole = "deputy_director"
	RoleDirector       UserRole = "director"
)

// ParseTaskStatus normalizes a raw status string to a closed enum value.
// Normalization happens here, at the storage boundary, never downstream.
func ParseTaskStatus(s string) TaskStatus {
	switch normalize(s) {
	case "not_started", "notstarted", "new":
		return StatusNotStarted
	case "in_progress", "inprogress", "doing":
		return StatusInProgress
	case "completed", "done":
		return StatusCompleted
	case "paused", "on_hold":
		return StatusPaused
	case "overdue":
		return StatusOverdue
	default:
		return TaskStatus(normalize(s))
	}
}

// ParseTaskPriority normalizes a raw priority string.
func ParseTaskPriority(s string) TaskPriority {
	switch normalize(s) {
	case "urgent", "critical":
		return PriorityUrgent
	case "important", "high":
		return PriorityImportant
	default:
		return PriorityNormal
	}
}

// ParseAssignmentRole normalizes a raw assignment role string.
func ParseAssignmentRole(s string) AssignmentRole {
	switch normalize(s) {
	case "lead", "owner", "main":
		return RoleLead
	case "collaborator", "support":
		return RoleCollaborator
	case "supervisor", "overseer":
		return RoleSupervisor
	default:
		return AssignmentRole(normalize(s))
	}
}

// ParseUserRole normalizes a raw organization role string.
func ParseUserRole(s string) UserRole {
	switch normalize(s) {
	case "staff", "employee":
		return RoleStaff
	case "department_head", "departmenthead", "head":
		return RoleDepartmentHead
	case "deputy_director", "deputydirector", "deputy":
		return RoleDeputyDirector
	case "director":
		return RoleDirector
	default:
		return UserRole(normalize(s))
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Task is a unit of tracked work. CompletedAt is set iff the task is
// completed; the scorer assumes this but does not enforce it.
type Task struct {
	ID           string       `json:"id"`
	Number       string       `json:"number,omitempty"`
	Title        string       `json:"title"`
	Status       TaskStatus   `json:"status"`
	Progress     float64      `json:"progress"` // 0..100
	Deadline     time.Time    `json:"deadline"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	Priority     TaskPriority `json:"priority"`
	ParentTaskID string       `json:"parent_task_id,omitempty"` // depth <= 1
	CreatedAt    time.Time    `json:"created_at"`
}

// Assignment links one user to one task under a role.
type Assignment struct {
	ID     string         `json:"id"`
	TaskID string         `json:"task_id"`
	UserID string         `json:"user_id"`
	Role   AssignmentRole `json:"role"`
}

// Evaluation is a superior's score for one assignment on one task.
// Unique per (task, assignment); written only through the upsert.
type Evaluation struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	AssignmentID string    `json:"assignment_id"`
	EvaluatorID  string    `json:"evaluator_id"`
	Score        float64   `json:"score"` // 0..10, raw as submitted
	Comments     string    `json:"comments,omitempty"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// ProgressUpdate is a timestamped free-text report on a task.
type ProgressUpdate struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Progress  float64   `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a discussion entry on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is a file reference on a task.
type Attachment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a staff member.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role"`
	DepartmentID string   `json:"department_id,omitempty"`
}

// Department groups users and optionally designates a deputy director
// as the escalation target for its head.
type Department struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	AssignedDeputyDirectorID string `json:"assigned_deputy_director_id,omitempty"`
}
