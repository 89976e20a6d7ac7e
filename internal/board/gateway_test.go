package board

import (
	"context"
	"errors"
	"sync"

	"github.com/dvo/boardsync/internal/model"
	"github.com/dvo/boardsync/internal/store"
)

// errRemote is the injected gateway failure used across these tests.
var errRemote = errors.New("remote store unavailable")

// fakeGateway is an in-memory store.Gateway with per-operation failure
// injection and call recording.
type fakeGateway struct {
	mu sync.Mutex

	projects map[string]model.Project
	tasks    map[string]model.Task
	elements map[string]model.Element
	history  []model.HistoryEntry

	// failOn holds operation names that should fail, e.g.
	// "UpdateTaskStatus" or "AppendHistory".
	failOn map[string]bool

	// blockOn holds per-operation gates; a non-nil channel makes the
	// operation wait until the channel is closed.
	blockOn map[string]chan struct{}

	// calls records operation names in invocation order.
	calls []string

	// reorderBatches records each ReorderElements payload.
	reorderBatches [][]store.ElementPosition
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		projects: make(map[string]model.Project),
		tasks:    make(map[string]model.Task),
		elements: make(map[string]model.Element),
		failOn:   make(map[string]bool),
		blockOn:  make(map[string]chan struct{}),
	}
}

func (f *fakeGateway) fail(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op] = true
}

// block makes op hang until the returned release func is called.
func (f *fakeGateway) block(op string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.blockOn[op] = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeGateway) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// begin records the call, waits on any gate, and reports whether the
// operation should fail.
func (f *fakeGateway) begin(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.blockOn[op]
	fail := f.failOn[op]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return errRemote
	}
	return nil
}

func (f *fakeGateway) CreateProject(ctx context.Context, p model.Project) error {
	if err := f.begin("CreateProject"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[p.ID] = p
	return nil
}

func (f *fakeGateway) GetProjects(ctx context.Context) ([]model.Project, error) {
	if err := f.begin("GetProjects"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Project, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeGateway) GetProjectByID(ctx context.Context, id string) (*model.Project, error) {
	if err := f.begin("GetProjectByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, errors.New("project " + id + " not found")
	}
	return &p, nil
}

func (f *fakeGateway) DeleteProject(ctx context.Context, id string) error {
	if err := f.begin("DeleteProject"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.projects, id)
	return nil
}

func (f *fakeGateway) ListTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	if err := f.begin("ListTasks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Task
	for _, t := range f.tasks {
		if projectID == "" || t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeGateway) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if err := f.begin("GetTask"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, errors.New("task " + id + " not found")
	}
	return &t, nil
}

func (f *fakeGateway) CreateTask(ctx context.Context, t model.Task) error {
	if err := f.begin("CreateTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeGateway) UpdateTaskStatus(ctx context.Context, id string, status model.Status, reason string) error {
	if err := f.begin("UpdateTaskStatus"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return errors.New("task " + id + " not found")
	}
	t.ApplyStatus(status, reason)
	f.tasks[id] = t
	return nil
}

func (f *fakeGateway) UpdateTask(ctx context.Context, t model.Task) error {
	if err := f.begin("UpdateTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; !ok {
		return errors.New("task " + t.ID + " not found")
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeGateway) DeleteTask(ctx context.Context, id string) error {
	if err := f.begin("DeleteTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f *fakeGateway) ListElements(ctx context.Context, taskID string) ([]model.Element, error) {
	if err := f.begin("ListElements"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Element
	for _, e := range f.elements {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGateway) CreateElement(ctx context.Context, e model.Element) error {
	if err := f.begin("CreateElement"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[e.ID] = e
	return nil
}

func (f *fakeGateway) UpdateElement(ctx context.Context, e model.Element) error {
	if err := f.begin("UpdateElement"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.elements[e.ID]; !ok {
		return errors.New("element " + e.ID + " not found")
	}
	f.elements[e.ID] = e
	return nil
}

func (f *fakeGateway) DeleteElement(ctx context.Context, id string) error {
	if err := f.begin("DeleteElement"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, id)
	return nil
}

func (f *fakeGateway) ReorderElements(ctx context.Context, positions []store.ElementPosition) error {
	if err := f.begin("ReorderElements"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reorderBatches = append(f.reorderBatches, positions)
	for _, p := range positions {
		e, ok := f.elements[p.ID]
		if !ok {
			return errors.New("element " + p.ID + " not found")
		}
		if e.Step != nil {
			step := *e.Step
			step.Position = p.Position
			e.Step = &step
			f.elements[p.ID] = e
		}
	}
	return nil
}

func (f *fakeGateway) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
	if err := f.begin("AppendHistory"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeGateway) ListHistory(ctx context.Context, projectID string) ([]model.HistoryEntry, error) {
	if err := f.begin("ListHistory"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.HistoryEntry
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].ProjectID == projectID {
			out = append(out, f.history[i])
		}
	}
	return out, nil
}

func (f *fakeGateway) ListAllHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if err := f.begin("ListAllHistory"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.HistoryEntry
	for i := len(f.history) - 1; i >= 0; i-- {
		out = append(out, f.history[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeGateway) historyActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.history))
	for _, h := range f.history {
		out = append(out, h.Action)
	}
	return out
}
