package store

import (
	"context"

	"github.com/dvo/boardsync/internal/model"
)

// ElementPosition is one entry of a batched reorder write.
type ElementPosition struct {
	ID       string
	Position int
}

// Gateway is the persistence interface consumed by the mutation
// coordinator. Implementations do request/response shaping only; all
// business rules live in the caller.
//
// ReorderElements must be all-or-nothing from the caller's
// perspective.
type Gateway interface {
	// === Projects ===

	CreateProject(ctx context.Context, p model.Project) error
	GetProjects(ctx context.Context) ([]model.Project, error)
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// === Tasks ===

	ListTasks(ctx context.Context, projectID string) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, t model.Task) error
	UpdateTaskStatus(ctx context.Context, id string, status model.Status, reason string) error
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id string) error

	// === Elements ===

	ListElements(ctx context.Context, taskID string) ([]model.Element, error)
	CreateElement(ctx context.Context, e model.Element) error
	UpdateElement(ctx context.Context, e model.Element) error
	DeleteElement(ctx context.Context, id string) error
	ReorderElements(ctx context.Context, positions []ElementPosition) error

	// === History ===

	AppendHistory(ctx context.Context, entry model.HistoryEntry) error
	ListHistory(ctx context.Context, projectID string) ([]model.HistoryEntry, error)
	ListAllHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)
}
