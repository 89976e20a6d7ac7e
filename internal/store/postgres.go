package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/dvo/boardsync/internal/model"
)

// postgresSchema creates the remote tables. Types differ from the
// sqlite migrations (booleans and timestamptz are native here) but the
// column set is identical.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'todo'
		CHECK(status IN ('todo', 'doing', 'done', 'review', 'rejected')),
	priority    INTEGER NOT NULL DEFAULT 2 CHECK(priority >= 1),
	due_date    TIMESTAMPTZ,
	reason      TEXT NOT NULL DEFAULT '',
	completed   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS elements (
	id             TEXT PRIMARY KEY,
	task_id        TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	kind           TEXT NOT NULL CHECK(kind IN ('checklist', 'step', 'comment')),
	author_id      TEXT NOT NULL DEFAULT '',
	author_name    TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL DEFAULT '',
	done           BOOLEAN NOT NULL DEFAULT FALSE,
	position       INTEGER NOT NULL DEFAULT 0,
	attachment_ref TEXT NOT NULL DEFAULT '',
	reply_to_id    TEXT NOT NULL DEFAULT '',
	edited_at      TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS history (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	task_id     TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	task_title  TEXT NOT NULL DEFAULT '',
	author_id   TEXT NOT NULL DEFAULT '',
	author_name TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_elements_task_id ON elements(task_id);
CREATE INDEX IF NOT EXISTS idx_history_project_id ON history(project_id);
CREATE INDEX IF NOT EXISTS idx_history_task_id ON history(task_id);
`

// PostgresStore implements the Gateway interface against a remote
// Postgres database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to Postgres with the given DSN, verifies
// the connection, and ensures the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring postgres schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// CreateProject inserts a new project. Generates a UUID if ID is empty.
func (s *PostgresStore) CreateProject(ctx context.Context, p model.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name must not be empty")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Description, p.DueDate, p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// GetProjects retrieves all projects ordered by creation time.
func (s *PostgresStore) GetProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, due_date, created_at
		FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.DueDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// GetProjectByID retrieves a single project by ID.
func (s *PostgresStore) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, due_date, created_at
		FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.DueDate, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return &p, nil
}

// DeleteProject removes a project. Cascades to tasks, elements, and
// history.
func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project %s not found", id)
	}
	return nil
}

// CreateTask inserts a new task. Generates a UUID if ID is empty.
func (s *PostgresStore) CreateTask(ctx context.Context, t model.Task) error {
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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status),
		t.Priority, t.DueDate, t.Reason, t.Completed, t.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// ListTasks retrieves tasks, optionally filtered to a project, ordered
// by creation time.
func (s *PostgresStore) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	query := `
		SELECT id, project_id, title, description, status,
			priority, due_date, reason, completed, created_at
		FROM tasks`
	var args []interface{}
	if projectID != "" {
		query += " WHERE project_id = $1"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanPGTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// GetTask retrieves a single task by its ID.
func (s *PostgresStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var (
		t      model.Task
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, status,
			priority, due_date, reason, completed, created_at
		FROM tasks WHERE id = $1`, id,
	).Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &status,
		&t.Priority, &t.DueDate, &t.Reason, &t.Completed, &t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	t.Status = model.Status(status)
	return &t, nil
}

// UpdateTaskStatus writes a status transition, keeping the completed
// mirror consistent.
func (s *PostgresStore) UpdateTaskStatus(
	ctx context.Context,
	id string,
	status model.Status,
	reason string,
) error {
	var result sql.Result
	var err error

	completed := status == model.StatusDone
	if status.RequiresReason() {
		result, err = s.db.ExecContext(ctx,
			"UPDATE tasks SET status = $1, completed = $2, reason = $3 WHERE id = $4",
			string(status), completed, reason, id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			"UPDATE tasks SET status = $1, completed = $2 WHERE id = $3",
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
func (s *PostgresStore) UpdateTask(ctx context.Context, t model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = $1, description = $2, status = $3, priority = $4,
			due_date = $5, reason = $6, completed = $7
		WHERE id = $8`,
		t.Title, t.Description, string(t.Status), t.Priority,
		t.DueDate, t.Reason, t.Completed,
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
func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// CreateElement inserts a new element of any variant.
func (s *PostgresStore) CreateElement(ctx context.Context, e model.Element) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown element kind %q", e.Kind)
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	text, done, position, attachmentRef, replyToID, editedAt := flattenElement(e)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO elements (
			id, task_id, kind, author_id, author_name,
			text, done, position, attachment_ref, reply_to_id,
			edited_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.TaskID, string(e.Kind), e.AuthorID, e.AuthorName,
		text, done != 0, position, attachmentRef, replyToID,
		editedAt, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating element: %w", err)
	}
	return nil
}

// ListElements retrieves all elements of a task ordered by position,
// then creation time.
func (s *PostgresStore) ListElements(ctx context.Context, taskID string) ([]model.Element, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, kind, author_id, author_name,
			text, done, position, attachment_ref, reply_to_id,
			edited_at, created_at
		FROM elements WHERE task_id = $1
		ORDER BY position, created_at`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying elements for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var elements []model.Element
	for rows.Next() {
		e, err := scanPGElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}

	return elements, rows.Err()
}

// UpdateElement updates an existing element's variant fields by ID.
func (s *PostgresStore) UpdateElement(ctx context.Context, e model.Element) error {
	text, done, position, attachmentRef, replyToID, editedAt := flattenElement(e)

	result, err := s.db.ExecContext(ctx, `
		UPDATE elements SET
			text = $1, done = $2, position = $3,
			attachment_ref = $4, reply_to_id = $5, edited_at = $6
		WHERE id = $7`,
		text, done != 0, position, attachmentRef, replyToID, editedAt,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating element %s: %w", e.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("element %s not found", e.ID)
	}
	return nil
}

// DeleteElement removes an element by ID.
func (s *PostgresStore) DeleteElement(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM elements WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting element %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("element %s not found", id)
	}
	return nil
}

// ReorderElements writes a batch of position assignments in one
// transaction.
func (s *PostgresStore) ReorderElements(ctx context.Context, positions []ElementPosition) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range positions {
		result, err := tx.ExecContext(ctx,
			"UPDATE elements SET position = $1 WHERE id = $2",
			p.Position, p.ID,
		)
		if err != nil {
			return fmt.Errorf("repositioning element %s: %w", p.ID, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("element %s not found", p.ID)
		}
	}

	return tx.Commit()
}

// AppendHistory inserts a new history entry.
func (s *PostgresStore) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (
			id, project_id, task_id, action, detail,
			task_title, author_id, author_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ProjectID, entry.TaskID, entry.Action, entry.Detail,
		entry.TaskTitle, entry.AuthorID, entry.AuthorName, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending history entry: %w", err)
	}
	return nil
}

// ListHistory retrieves a project's history entries, newest first.
func (s *PostgresStore) ListHistory(ctx context.Context, projectID string) ([]model.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, task_id, action, detail,
			task_title, author_id, author_name, created_at
		FROM history WHERE project_id = $1
		ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history for project %s: %w", projectID, err)
	}
	defer rows.Close()

	return collectPGHistory(rows)
}

// ListAllHistory retrieves history entries across all projects, newest
// first, up to limit (0 = no limit).
func (s *PostgresStore) ListAllHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	query := `
		SELECT id, project_id, task_id, action, detail,
			task_title, author_id, author_name, created_at
		FROM history ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying all history: %w", err)
	}
	defer rows.Close()

	return collectPGHistory(rows)
}

func scanPGTask(rows *sql.Rows) (model.Task, error) {
	var (
		t      model.Task
		status string
	)
	err := rows.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &status,
		&t.Priority, &t.DueDate, &t.Reason, &t.Completed, &t.CreatedAt,
	)
	if err != nil {
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}
	t.Status = model.Status(status)
	return t, nil
}

func scanPGElement(rows *sql.Rows) (model.Element, error) {
	var (
		e             model.Element
		kind          string
		text          string
		done          bool
		position      int
		attachmentRef string
		replyToID     string
		editedAt      *time.Time
	)

	err := rows.Scan(
		&e.ID, &e.TaskID, &kind, &e.AuthorID, &e.AuthorName,
		&text, &done, &position, &attachmentRef, &replyToID,
		&editedAt, &e.CreatedAt,
	)
	if err != nil {
		return model.Element{}, fmt.Errorf("scanning element row: %w", err)
	}

	e.Kind = model.ElementKind(kind)
	switch e.Kind {
	case model.ElementChecklist:
		e.Checklist = &model.ChecklistFields{Text: text, Done: done}
	case model.ElementStep:
		e.Step = &model.StepFields{Text: text, Position: position}
	case model.ElementComment:
		e.Comment = &model.CommentFields{
			Text:          text,
			AttachmentRef: attachmentRef,
			ReplyToID:     replyToID,
			EditedAt:      editedAt,
		}
	default:
		return model.Element{}, fmt.Errorf("element %s has unknown kind %q", e.ID, kind)
	}

	return e, nil
}

func collectPGHistory(rows *sql.Rows) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		err := rows.Scan(
			&h.ID, &h.ProjectID, &h.TaskID, &h.Action, &h.Detail,
			&h.TaskTitle, &h.AuthorID, &h.AuthorName, &h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
