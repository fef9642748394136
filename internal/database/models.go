package database

import (
	"database/sql"
	"time"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/types"
)

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTask reads one tasks row. Status, priority and role strings are
// normalized here so downstream code only ever sees the closed enums.
func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	var number, parentID sql.NullString
	var status, priority string
	var completedAt sql.NullTime

	err := row.Scan(&t.ID, &number, &t.Title, &status, &t.Progress,
		&t.Deadline, &completedAt, &priority, &parentID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.Number = number.String
	t.Status = types.ParseTaskStatus(status)
	t.Priority = types.ParseTaskPriority(priority)
	t.ParentTaskID = parentID.String
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	return &t, nil
}

func scanAssignment(row rowScanner) (types.Assignment, error) {
	var a types.Assignment
	var role string
	if err := row.Scan(&a.ID, &a.TaskID, &a.UserID, &role); err != nil {
		return types.Assignment{}, err
	}
	a.Role = types.ParseAssignmentRole(role)
	return a, nil
}

func scanEvaluation(row rowScanner) (*types.Evaluation, error) {
	var ev types.Evaluation
	var comments sql.NullString
	err := row.Scan(&ev.ID, &ev.TaskID, &ev.AssignmentID, &ev.EvaluatorID,
		&ev.Score, &comments, &ev.EvaluatedAt)
	if err != nil {
		return nil, err
	}
	ev.Comments = comments.String
	return &ev, nil
}

func scanProgressUpdate(row rowScanner) (types.ProgressUpdate, error) {
	var pu types.ProgressUpdate
	var content sql.NullString
	err := row.Scan(&pu.ID, &pu.TaskID, &pu.UserID, &content, &pu.Progress, &pu.CreatedAt)
	if err != nil {
		return types.ProgressUpdate{}, err
	}
	pu.Content = content.String
	return pu, nil
}

func scanComment(row rowScanner) (types.Comment, error) {
	var c types.Comment
	err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt)
	return c, err
}

func scanAttachment(row rowScanner) (types.Attachment, error) {
	var a types.Attachment
	err := row.Scan(&a.ID, &a.TaskID, &a.UserID, &a.FileName, &a.CreatedAt)
	return a, err
}

func scanUser(row rowScanner) (*types.User, error) {
	var u types.User
	var role string
	var deptID sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &role, &deptID); err != nil {
		return nil, err
	}
	u.Role = types.ParseUserRole(role)
	u.DepartmentID = deptID.String
	return &u, nil
}

func scanDepartment(row rowScanner) (*types.Department, error) {
	var d types.Department
	var deputyID sql.NullString
	if err := row.Scan(&d.ID, &d.Name, &deputyID); err != nil {
		return nil, err
	}
	d.AssignedDeputyDirectorID = deputyID.String
	return &d, nil
}

// nullable maps "" to NULL so optional foreign keys stay clean.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
