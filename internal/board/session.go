package board

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvo/boardsync/internal/model"
	"github.com/dvo/boardsync/internal/store"
)

// Event reports the asynchronous settlement of one optimistic
// mutation. Err is nil when the remote persist succeeded; otherwise it
// is the *model.PersistenceError surfaced after rollback. LogErr
// carries a *model.PartialLogError when the primary mutation succeeded
// but the history append did not.
type Event struct {
	EntityID string
	Action   string
	Err      error
	LogErr   error
}

// Session owns the client-resident model for one user working one
// board: the loaded project, its tasks, the elements of loaded tasks,
// and the pending-reply pointer. All of what used to be process-wide
// UI state lives here, so two sessions never share mutable state.
//
// The mutex serializes every local-apply and rollback segment;
// persistence goroutines touch session state only through the
// rollback path, under the same mutex.
type Session struct {
	gw        store.Gateway
	actorID   string
	actorName string

	mu            sync.Mutex
	project       *model.Project
	tasks         map[string]*model.Task
	elements      map[string][]*model.Element
	currentTaskID string
	pendingReply  string
	inflight      map[string]struct{}

	events chan Event
}

// NewSession creates a session for the given actor on top of a store
// gateway.
func NewSession(gw store.Gateway, actorID, actorName string) *Session {
	return &Session{
		gw:        gw,
		actorID:   actorID,
		actorName: actorName,
		tasks:     make(map[string]*model.Task),
		elements:  make(map[string][]*model.Element),
		inflight:  make(map[string]struct{}),
		events:    make(chan Event, 16),
	}
}

// Events exposes mutation settlements for the rendering layer. Sends
// never block; a slow consumer loses events, not correctness.
func (s *Session) Events() <-chan Event {
	return s.events
}

// emit publishes an event without blocking.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// LoadProject hydrates the session with a project and its tasks,
// replacing any previously loaded state.
func (s *Session) LoadProject(ctx context.Context, projectID string) error {
	project, err := s.gw.GetProjectByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading project %s: %w", projectID, err)
	}
	tasks, err := s.gw.ListTasks(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading tasks for project %s: %w", projectID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.project = project
	s.tasks = make(map[string]*model.Task, len(tasks))
	for i := range tasks {
		t := tasks[i]
		s.tasks[t.ID] = &t
	}
	s.elements = make(map[string][]*model.Element)
	s.currentTaskID = ""
	s.pendingReply = ""
	return nil
}

// LoadTask hydrates the element list of one task and makes it the
// session's current task.
func (s *Session) LoadTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	_, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return &model.NotFoundError{Entity: "task", ID: taskID}
	}

	elements, err := s.gw.ListElements(ctx, taskID)
	if err != nil {
		return fmt.Errorf("loading elements for task %s: %w", taskID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*model.Element, 0, len(elements))
	for i := range elements {
		e := elements[i]
		list = append(list, &e)
	}
	s.elements[taskID] = list
	s.currentTaskID = taskID
	s.pendingReply = ""
	return nil
}

// Project returns a copy of the loaded project, or nil.
func (s *Session) Project() *model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}
	p := *s.project
	return &p
}

// CurrentTaskID returns the id of the task whose elements are loaded.
func (s *Session) CurrentTaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTaskID
}

// Task returns a copy of one task from the local model.
func (s *Session) Task(id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &model.NotFoundError{Entity: "task", ID: id}
	}
	return t.Clone(), nil
}

// Tasks returns copies of the loaded tasks ordered by creation time.
func (s *Session) Tasks() []*model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TasksByStatus returns the loaded tasks of one board column.
func (s *Session) TasksByStatus(status model.Status) []*model.Task {
	all := s.Tasks()
	out := all[:0]
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Elements returns copies of a loaded task's elements in display
// order: position ascending, creation time as tie-break.
func (s *Session) Elements(taskID string) ([]*model.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elementsLocked(taskID)
}

func (s *Session) elementsLocked(taskID string) ([]*model.Element, error) {
	list, ok := s.elements[taskID]
	if !ok {
		return nil, &model.NotFoundError{Entity: "task elements", ID: taskID}
	}
	out := make([]*model.Element, 0, len(list))
	for _, e := range list {
		out = append(out, e.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := 0, 0
		if out[i].Step != nil {
			pi = out[i].Step.Position
		}
		if out[j].Step != nil {
			pj = out[j].Step.Position
		}
		if pi != pj {
			return pi < pj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// elementLocked finds one element of a loaded task by id. Caller holds
// the mutex.
func (s *Session) elementLocked(id string) (taskID string, idx int, e *model.Element) {
	for tid, list := range s.elements {
		for i, el := range list {
			if el.ID == id {
				return tid, i, el
			}
		}
	}
	return "", -1, nil
}

// historyEntry builds an audit record stamped with the session's actor
// and the task's title snapshot.
func (s *Session) historyEntry(action, detail, projectID, taskID, taskTitle string) *model.HistoryEntry {
	return &model.HistoryEntry{
		ProjectID:  projectID,
		TaskID:     taskID,
		Action:     action,
		Detail:     detail,
		TaskTitle:  taskTitle,
		AuthorID:   s.actorID,
		AuthorName: s.actorName,
	}
}
