package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvo/boardsync/internal/model"
)

// TaskFields carries the caller-editable task fields for creation.
type TaskFields struct {
	Title       string
	Description string
	Priority    int
	DueDate     *time.Time
}

// TaskEdits carries a partial update; nil fields are left unchanged.
type TaskEdits struct {
	Title       *string
	Description *string
	Priority    *int
	DueDate     **time.Time
}

// CreateProject creates a project through the gateway and records the
// creation in its history. Projects are not tracked optimistically;
// there is no local project list to mutate ahead of the store.
func (s *Session) CreateProject(ctx context.Context, name, description string, dueDate *time.Time) (*model.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &model.ValidationError{Field: "name", Message: "project name must not be empty"}
	}

	p := model.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		DueDate:     dueDate,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.gw.CreateProject(ctx, p); err != nil {
		return nil, &model.PersistenceError{Op: "create project", Err: err}
	}

	entry := s.historyEntry(model.ActionCreate,
		fmt.Sprintf("Created project %q", p.Name), p.ID, "", "")
	if err := s.gw.AppendHistory(ctx, *entry); err != nil {
		logPartial(&model.PartialLogError{Action: model.ActionCreate, Err: err})
	}

	return &p, nil
}

// DeleteProject removes a project and everything it owns. If it is the
// loaded project the session state is cleared.
func (s *Session) DeleteProject(ctx context.Context, id string) error {
	if err := s.gw.DeleteProject(ctx, id); err != nil {
		return &model.PersistenceError{Op: "delete project", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project != nil && s.project.ID == id {
		s.project = nil
		s.tasks = make(map[string]*model.Task)
		s.elements = make(map[string][]*model.Element)
		s.currentTaskID = ""
		s.pendingReply = ""
	}
	return nil
}

// CreateTask optimistically adds a task to the loaded project. The
// task is visible locally before the store confirms it and disappears
// again if the store rejects it.
func (s *Session) CreateTask(ctx context.Context, fields TaskFields) (*model.Task, *Pending, error) {
	if strings.TrimSpace(fields.Title) == "" {
		return nil, nil, &model.ValidationError{Field: "title", Message: "task title must not be empty"}
	}
	if fields.Priority == 0 {
		fields.Priority = model.PriorityMedium
	}
	if fields.Priority < 1 {
		return nil, nil, &model.ValidationError{Field: "priority", Message: "priority must be at least 1"}
	}

	task := &model.Task{
		ID:          uuid.New().String(),
		Title:       fields.Title,
		Description: fields.Description,
		Status:      model.StatusTodo,
		Priority:    fields.Priority,
		DueDate:     fields.DueDate,
		CreatedAt:   time.Now().UTC(),
	}

	var projectID string
	m := mutation{
		entity: "task",
		id:     task.ID,
		action: model.ActionCreate,
		apply: func() (func(), error) {
			if s.project == nil {
				return nil, &model.ValidationError{Field: "project", Message: "no project loaded"}
			}
			projectID = s.project.ID
			task.ProjectID = projectID
			s.tasks[task.ID] = task
			s.elements[task.ID] = []*model.Element{}
			return func() {
				delete(s.tasks, task.ID)
				delete(s.elements, task.ID)
			}, nil
		},
		persist: func(ctx context.Context) error {
			return s.gw.CreateTask(ctx, *task)
		},
		record: func() *model.HistoryEntry {
			return s.historyEntry(model.ActionCreate,
				fmt.Sprintf("Created task %q", task.Title),
				projectID, task.ID, task.Title)
		},
	}

	p, err := s.dispatch(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return task.Clone(), p, nil
}

// TransitionTask moves a task to a new workflow status. Moving into
// review or rejected requires a non-empty reason; the transition is
// aborted entirely when it is missing, and the caller must re-solicit
// it. The legacy completed mirror tracks the new status.
func (s *Session) TransitionTask(ctx context.Context, id string, to model.Status, reason string) (*model.Task, *Pending, error) {
	var (
		task     *model.Task
		from     model.Status
		snapshot *model.Task
		applied  *model.Task
	)

	m := mutation{
		entity: "task",
		id:     id,
		action: model.ActionMove,
		apply: func() (func(), error) {
			var ok bool
			task, ok = s.tasks[id]
			if !ok {
				return nil, &model.NotFoundError{Entity: "task", ID: id}
			}
			if err := model.ValidateTransition(task.Status, to, reason); err != nil {
				return nil, err
			}
			from = task.Status
			snapshot = task.Clone()
			task.ApplyStatus(to, reason)
			// Copied while the mutex is held; the live struct may be
			// rolled back concurrently once dispatch returns.
			applied = task.Clone()
			return func() {
				*task = *snapshot
			}, nil
		},
		persist: func(ctx context.Context) error {
			return s.gw.UpdateTaskStatus(ctx, id, to, reason)
		},
		record: func() *model.HistoryEntry {
			return s.historyEntry(model.ActionMove,
				fmt.Sprintf("Moved task %q from %s to %s", task.Title, from, to),
				task.ProjectID, task.ID, task.Title)
		},
	}

	p, err := s.dispatch(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return applied, p, nil
}

// EditTask applies a partial field update to a task.
func (s *Session) EditTask(ctx context.Context, id string, edits TaskEdits) (*model.Task, *Pending, error) {
	if edits.Title != nil && strings.TrimSpace(*edits.Title) == "" {
		return nil, nil, &model.ValidationError{Field: "title", Message: "task title must not be empty"}
	}
	if edits.Priority != nil && *edits.Priority < 1 {
		return nil, nil, &model.ValidationError{Field: "priority", Message: "priority must be at least 1"}
	}

	var (
		task     *model.Task
		snapshot *model.Task
		applied  *model.Task
	)

	m := mutation{
		entity: "task",
		id:     id,
		action: model.ActionEdit,
		apply: func() (func(), error) {
			var ok bool
			task, ok = s.tasks[id]
			if !ok {
				return nil, &model.NotFoundError{Entity: "task", ID: id}
			}
			snapshot = task.Clone()
			if edits.Title != nil {
				task.Title = *edits.Title
			}
			if edits.Description != nil {
				task.Description = *edits.Description
			}
			if edits.Priority != nil {
				task.Priority = *edits.Priority
			}
			if edits.DueDate != nil {
				task.DueDate = *edits.DueDate
			}
			applied = task.Clone()
			return func() {
				*task = *snapshot
			}, nil
		},
		persist: func(ctx context.Context) error {
			s.mu.Lock()
			t := *task
			s.mu.Unlock()
			return s.gw.UpdateTask(ctx, t)
		},
		record: func() *model.HistoryEntry {
			return s.historyEntry(model.ActionEdit,
				fmt.Sprintf("Edited task %q", task.Title),
				task.ProjectID, task.ID, task.Title)
		},
	}

	p, err := s.dispatch(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return applied, p, nil
}

// DeleteTask optimistically removes a task and its loaded elements
// from the local model; the history entry keeps the title snapshot so
// the activity view can still label the group.
func (s *Session) DeleteTask(ctx context.Context, id string) (*Pending, error) {
	var snapshot *model.Task

	m := mutation{
		entity: "task",
		id:     id,
		action: model.ActionDelete,
		apply: func() (func(), error) {
			task, ok := s.tasks[id]
			if !ok {
				return nil, &model.NotFoundError{Entity: "task", ID: id}
			}
			snapshot = task.Clone()
			elems, hadElems := s.elements[id]
			wasCurrent := s.currentTaskID == id
			prevReply := s.pendingReply

			delete(s.tasks, id)
			delete(s.elements, id)
			if wasCurrent {
				s.currentTaskID = ""
				s.pendingReply = ""
			}
			return func() {
				s.tasks[id] = snapshot
				if hadElems {
					s.elements[id] = elems
				}
				if wasCurrent {
					s.currentTaskID = id
					s.pendingReply = prevReply
				}
			}, nil
		},
		persist: func(ctx context.Context) error {
			return s.gw.DeleteTask(ctx, id)
		},
		record: func() *model.HistoryEntry {
			return s.historyEntry(model.ActionDelete,
				fmt.Sprintf("Deleted task %q", snapshot.Title),
				snapshot.ProjectID, snapshot.ID, snapshot.Title)
		},
	}

	return s.dispatch(ctx, m)
}
