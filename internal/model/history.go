package model

import "time"

// History action tokens. The column is free-form text in the store;
// these are the values this client writes.
const (
	ActionCreate  = "CREATE"
	ActionMove    = "MOVE"
	ActionEdit    = "EDIT"
	ActionDelete  = "DELETE"
	ActionReply   = "REPLY"
	ActionReorder = "REORDER"
)

// HistoryEntry is one immutable audit record of a user action. Entries
// are never updated or deleted individually; they disappear only when
// their project is deleted.
//
// TaskTitle is a snapshot of the task's title at append time so the
// activity view can label a group after its task is gone without
// parsing the detail text. Entries written before the snapshot column
// existed have it empty.
type HistoryEntry struct {
	ID         string    `json:"id" db:"id"`
	ProjectID  string    `json:"project_id" db:"project_id"`
	TaskID     string    `json:"task_id,omitempty" db:"task_id"`
	Action     string    `json:"action" db:"action"`
	Detail     string    `json:"detail" db:"detail"`
	TaskTitle  string    `json:"task_title,omitempty" db:"task_title"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
