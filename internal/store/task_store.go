package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dvo/boardsync/internal/model"
)

// CreateTask inserts a new task. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateTask(ctx context.Context, t model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.StatusTodo
	}
	if t.Priority < 1 {
		t.Priority = model.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, project_id, title, description, status,
			priority, due_date, reason, completed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status),
		t.Priority, t.DueDate, t.Reason, boolToInt(t.Completed), t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// ListTasks retrieves tasks, optionally filtered to a project, ordered
// by creation time.
func (s *SQLiteStore) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	query := "SELECT * FROM tasks"
	var args []interface{}
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// GetTask retrieves a single task by its ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM tasks WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting task %s: %w", id, err)
		}
		return nil, fmt.Errorf("task %s: %w", id, sql.ErrNoRows)
	}

	task, err := scanTask(rows)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &task, nil
}

// UpdateTaskStatus writes a status transition, keeping the completed
// mirror consistent. The reason column is overwritten only for
// transitions that carry one.
func (s *SQLiteStore) UpdateTaskStatus(
	ctx context.Context,
	id string,
	status model.Status,
	reason string,
) error {
	var result sql.Result
	var err error

	completed := boolToInt(status == model.StatusDone)
	if status.RequiresReason() {
		result, err = s.db.ExecContext(ctx,
			"UPDATE tasks SET status = ?, completed = ?, reason = ? WHERE id = ?",
			string(status), completed, reason, id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			"UPDATE tasks SET status = ?, completed = ? WHERE id = ?",
			string(status), completed, id,
		)
	}
	if err != nil {
		return fmt.Errorf("updating task %s status: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// UpdateTask updates an existing task's editable fields by ID.
func (s *SQLiteStore) UpdateTask(ctx context.Context, t model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, priority = ?,
			due_date = ?, reason = ?, completed = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Status), t.Priority,
		t.DueDate, t.Reason, boolToInt(t.Completed),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s not found", t.ID)
	}
	return nil
}

// DeleteTask removes a task by ID. Cascades to its elements.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// scanTask scans a task row from a sqlx.Rows result set.
func scanTask(rows *sqlx.Rows) (model.Task, error) {
	var (
		task      model.Task
		status    string
		completed int
		dueDate   *time.Time
		createdAt time.Time
	)

	err := rows.Scan(
		&task.ID, &task.ProjectID, &task.Title, &task.Description, &status,
		&task.Priority, &dueDate, &task.Reason, &completed, &createdAt,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Status = model.Status(status)
	task.Completed = completed != 0
	task.DueDate = dueDate
	task.CreatedAt = createdAt

	return task, nil
}

// IsNotFound reports whether err represents a missing row, regardless
// of which gateway produced it.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	return strings.Contains(err.Error(), "not found")
}
