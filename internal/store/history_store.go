package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvo/boardsync/internal/model"
)

// AppendHistory inserts a new history entry. Entries are append-only;
// no update or single-row delete path exists.
func (s *SQLiteStore) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, entry.TaskID, entry.Action, entry.Detail,
		entry.TaskTitle, entry.AuthorID, entry.AuthorName, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending history entry: %w", err)
	}
	return nil
}

// ListHistory retrieves a project's history entries, newest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, projectID string) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM history WHERE project_id = ? ORDER BY created_at DESC",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history for project %s: %w", projectID, err)
	}
	return entries, nil
}

// ListAllHistory retrieves history entries across all projects, newest
// first, up to limit (0 = no limit).
func (s *SQLiteStore) ListAllHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	query := "SELECT * FROM history ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var entries []model.HistoryEntry
	err := s.db.SelectContext(ctx, &entries, query)
	if err != nil {
		return nil, fmt.Errorf("querying all history: %w", err)
	}
	return entries, nil
}
