package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dvo/boardsync/internal/model"
)

// CreateElement inserts a new element of any variant. Generates a UUID
// if ID is empty.
func (s *SQLiteStore) CreateElement(ctx context.Context, e model.Element) error {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, string(e.Kind), e.AuthorID, e.AuthorName,
		text, done, position, attachmentRef, replyToID,
		editedAt, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating element: %w", err)
	}
	return nil
}

// ListElements retrieves all elements of a task ordered by position,
// then creation time.
func (s *SQLiteStore) ListElements(ctx context.Context, taskID string) ([]model.Element, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM elements WHERE task_id = ? ORDER BY position, created_at",
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying elements for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var elements []model.Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}

	return elements, rows.Err()
}

// UpdateElement updates an existing element's variant fields by ID.
func (s *SQLiteStore) UpdateElement(ctx context.Context, e model.Element) error {
	text, done, position, attachmentRef, replyToID, editedAt := flattenElement(e)

	result, err := s.db.ExecContext(ctx, `
		UPDATE elements SET
			text = ?, done = ?, position = ?,
			attachment_ref = ?, reply_to_id = ?, edited_at = ?
		WHERE id = ?`,
		text, done, position, attachmentRef, replyToID, editedAt,
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

// DeleteElement removes an element by ID. Comments replying to it keep
// their dangling reference.
func (s *SQLiteStore) DeleteElement(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM elements WHERE id = ?", id)
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
// transaction so the reindex is all-or-nothing.
func (s *SQLiteStore) ReorderElements(ctx context.Context, positions []ElementPosition) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range positions {
		result, err := tx.ExecContext(ctx,
			"UPDATE elements SET position = ? WHERE id = ?",
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

// flattenElement maps the variant field groups onto the shared column
// set of the elements table.
func flattenElement(e model.Element) (text string, done, position int, attachmentRef, replyToID string, editedAt *time.Time) {
	switch e.Kind {
	case model.ElementChecklist:
		if e.Checklist != nil {
			text = e.Checklist.Text
			done = boolToInt(e.Checklist.Done)
		}
	case model.ElementStep:
		if e.Step != nil {
			text = e.Step.Text
			position = e.Step.Position
		}
	case model.ElementComment:
		if e.Comment != nil {
			text = e.Comment.Text
			attachmentRef = e.Comment.AttachmentRef
			replyToID = e.Comment.ReplyToID
			editedAt = e.Comment.EditedAt
		}
	}
	return
}

// scanElement scans an element row and rebuilds the variant union from
// the kind discriminator.
func scanElement(rows *sqlx.Rows) (model.Element, error) {
	var (
		e             model.Element
		kind          string
		text          string
		done          int
		position      int
		attachmentRef string
		replyToID     string
		editedAt      *time.Time
		createdAt     time.Time
	)

	err := rows.Scan(
		&e.ID, &e.TaskID, &kind, &e.AuthorID, &e.AuthorName,
		&text, &done, &position, &attachmentRef, &replyToID,
		&editedAt, &createdAt,
	)
	if err != nil {
		return model.Element{}, fmt.Errorf("scanning element row: %w", err)
	}

	e.Kind = model.ElementKind(kind)
	e.CreatedAt = createdAt

	switch e.Kind {
	case model.ElementChecklist:
		e.Checklist = &model.ChecklistFields{Text: text, Done: done != 0}
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
