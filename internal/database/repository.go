package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// Repository handles database operations. It satisfies scoring.Store:
// the scoring engine reads through it and evaluation writes go through
// UpsertEvaluation only.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetTask fetches one task by id.
func (r *Repository) GetTask(ctx context.Context, id string) (*types.Task, error) {
	stmt, err := r.db.GetPreparedStatement("get_task")
	if err != nil {
		return nil, err
	}

	task, err := scanTask(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetTaskAssignments returns all assignments on a task in creation order.
func (r *Repository) GetTaskAssignments(ctx context.Context, taskID string) ([]types.Assignment, error) {
	return r.queryAssignments(ctx, "get_task_assignments", taskID)
}

// GetUserAssignments returns all of a user's assignments in creation order.
func (r *Repository) GetUserAssignments(ctx context.Context, userID string) ([]types.Assignment, error) {
	return r.queryAssignments(ctx, "get_user_assignments", userID)
}

func (r *Repository) queryAssignments(ctx context.Context, stmtName, key string) ([]types.Assignment, error) {
	stmt, err := r.db.GetPreparedStatement(stmtName)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []types.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetProgressUpdates returns a task's progress updates, oldest first.
func (r *Repository) GetProgressUpdates(ctx context.Context, taskID string) ([]types.ProgressUpdate, error) {
	stmt, err := r.db.GetPreparedStatement("get_progress_updates")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress updates: %w", err)
	}
	defer rows.Close()

	var out []types.ProgressUpdate
	for rows.Next() {
		pu, err := scanProgressUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress update: %w", err)
		}
		out = append(out, pu)
	}
	return out, rows.Err()
}

// GetComments returns a task's comments, oldest first.
func (r *Repository) GetComments(ctx context.Context, taskID string) ([]types.Comment, error) {
	stmt, err := r.db.GetPreparedStatement("get_comments")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var out []types.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetAttachments returns a task's attachments, oldest first.
func (r *Repository) GetAttachments(ctx context.Context, taskID string) ([]types.Attachment, error) {
	stmt, err := r.db.GetPreparedStatement("get_attachments")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var out []types.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetEvaluation fetches the single evaluation for one assignment on one
// task, or types.ErrNotFound when none has been submitted.
func (r *Repository) GetEvaluation(ctx context.Context, taskID, assignmentID string) (*types.Evaluation, error) {
	stmt, err := r.db.GetPreparedStatement("get_evaluation")
	if err != nil {
		return nil, err
	}

	ev, err := scanEvaluation(stmt.QueryRowContext(ctx, taskID, assignmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return ev, nil
}

// GetEvaluations returns all evaluations on a task.
func (r *Repository) GetEvaluations(ctx context.Context, taskID string) ([]types.Evaluation, error) {
	stmt, err := r.db.GetPreparedStatement("get_evaluations")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var out []types.Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

// UpsertEvaluation writes or replaces the evaluation for one assignment.
// The (task, assignment) pair is unique so re-submission overwrites in
// place rather than accumulating rows. A re-submission that changes
// nothing leaves the stored row alone, so evaluated_at only moves when
// the content does.
func (r *Repository) UpsertEvaluation(ctx context.Context, taskID, assignmentID, evaluatorID string, score float64, comments string) (*types.Evaluation, error) {
	stmt, err := r.db.GetPreparedStatement("upsert_evaluation")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = stmt.ExecContext(ctx, uuid.New().String(), taskID, assignmentID,
		evaluatorID, score, nullable(comments), now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert evaluation: %w", err)
	}

	return r.GetEvaluation(ctx, taskID, assignmentID)
}

// GetUser fetches one user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (*types.User, error) {
	stmt, err := r.db.GetPreparedStatement("get_user")
	if err != nil {
		return nil, err
	}

	user, err := scanUser(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetDepartment fetches one department by id.
func (r *Repository) GetDepartment(ctx context.Context, id string) (*types.Department, error) {
	stmt, err := r.db.GetPreparedStatement("get_department")
	if err != nil {
		return nil, err
	}

	dept, err := scanDepartment(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return dept, nil
}

// GetUsersByDepartmentAndRole lists users filtered by department and
// role. Either filter may be empty to mean "any". Results are ordered
// by id so "first match" is deterministic.
func (r *Repository) GetUsersByDepartmentAndRole(ctx context.Context, departmentID string, role types.UserRole) ([]types.User, error) {
	query := `SELECT id, name, role, department_id FROM users WHERE 1=1`
	var args []interface{}
	if departmentID != "" {
		query += ` AND department_id = ?`
		args = append(args, departmentID)
	}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, string(role))
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// CreateDepartment inserts a department, generating an id if missing.
func (r *Repository) CreateDepartment(ctx context.Context, d *types.Department) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO departments (id, name, assigned_deputy_director_id, created_at)
		VALUES (?, ?, ?, ?)
	`, d.ID, d.Name, nullable(d.AssignedDeputyDirectorID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

// CreateUser inserts a user, generating an id if missing.
func (r *Repository) CreateUser(ctx context.Context, u *types.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, role, department_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Name, string(u.Role), nullable(u.DepartmentID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateTask inserts a task, generating an id if missing.
func (r *Repository) CreateTask(ctx context.Context, t *types.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, number, title, status, progress, deadline, completed_at, priority, parent_task_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, nullable(t.Number), t.Title, string(t.Status), t.Progress,
		t.Deadline, nullableTime(t.CompletedAt), string(t.Priority),
		nullable(t.ParentTaskID), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// CreateAssignment inserts an assignment, generating an id if missing.
func (r *Repository) CreateAssignment(ctx context.Context, a *types.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (id, task_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.UserID, string(a.Role), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// AddProgressUpdate appends a progress update to a task.
func (r *Repository) AddProgressUpdate(ctx context.Context, pu *types.ProgressUpdate) error {
	if pu.ID == "" {
		pu.ID = uuid.New().String()
	}
	if pu.CreatedAt.IsZero() {
		pu.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO progress_updates (id, task_id, user_id, content, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, pu.ID, pu.TaskID, pu.UserID, nullable(pu.Content), pu.Progress, pu.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add progress update: %w", err)
	}
	return nil
}

// AddComment appends a comment to a task.
func (r *Repository) AddComment(ctx context.Context, c *types.Comment) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, task_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.TaskID, c.UserID, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// AddAttachment records a file reference on a task.
func (r *Repository) AddAttachment(ctx context.Context, a *types.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attachments (id, task_id, user_id, file_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.TaskID, a.UserID, a.FileName, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add attachment: %w", err)
	}
	return nil
}
