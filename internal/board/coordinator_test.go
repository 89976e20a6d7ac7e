package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvo/boardsync/internal/model"
)

// newTestSession builds a session over a fake gateway holding project
// p1, applies seed to the gateway, and loads the project.
func newTestSession(t *testing.T, seed func(fg *fakeGateway)) (*Session, *fakeGateway) {
	t.Helper()
	fg := newFakeGateway()
	fg.projects["p1"] = model.Project{ID: "p1", Name: "Launch", CreatedAt: time.Now().UTC()}
	if seed != nil {
		seed(fg)
	}
	s := NewSession(fg, "u1", "Dana")
	if err := s.LoadProject(context.Background(), "p1"); err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	return s, fg
}

func seedTask(fg *fakeGateway, id, title string, status model.Status) {
	t := model.Task{
		ID:        id,
		ProjectID: "p1",
		Title:     title,
		Status:    status,
		Priority:  model.PriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
	t.Completed = status == model.StatusDone
	fg.tasks[id] = t
}

func TestDispatchRejectsSecondMutationOnSameEntity(t *testing.T) {
	s, fg := newTestSession(t, func(fg *fakeGateway) {
		seedTask(fg, "t1", "Draft spec", model.StatusTodo)
		seedTask(fg, "t2", "Review notes", model.StatusTodo)
	})
	ctx := context.Background()

	release := fg.block("UpdateTaskStatus")
	_, p1, err := s.TransitionTask(ctx, "t1", model.StatusDoing, "")
	if err != nil {
		t.Fatalf("first transition: %v", err)
	}

	_, _, err = s.TransitionTask(ctx, "t1", model.StatusDone, "")
	var conflict *model.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second transition on same task: got %v, want ConflictError", err)
	}

	// A different entity is not blocked.
	_, p2, err := s.TransitionTask(ctx, "t2", model.StatusDoing, "")
	if err != nil {
		t.Fatalf("transition on other task: %v", err)
	}

	release()
	if err := p1.Wait(); err != nil {
		t.Fatalf("first transition settled with error: %v", err)
	}
	if err := p2.Wait(); err != nil {
		t.Fatalf("second task transition settled with error: %v", err)
	}

	// The guard lifts once the mutation settles.
	_, p3, err := s.TransitionTask(ctx, "t1", model.StatusDone, "")
	if err != nil {
		t.Fatalf("transition after settle: %v", err)
	}
	if err := p3.Wait(); err != nil {
		t.Fatalf("transition after settle: %v", err)
	}
}

func TestDispatchRollsBackOnPersistFailure(t *testing.T) {
	s, fg := newTestSession(t, func(fg *fakeGateway) {
		seedTask(fg, "t1", "Draft spec", model.StatusTodo)
	})
	fg.fail("UpdateTaskStatus")
	ctx := context.Background()

	before, err := s.Task("t1")
	if err != nil {
		t.Fatal(err)
	}

	_, p, err := s.TransitionTask(ctx, "t1", model.StatusDoing, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitErr := p.Wait()
	var perr *model.PersistenceError
	if !errors.As(waitErr, &perr) {
		t.Fatalf("Wait() = %v, want PersistenceError", waitErr)
	}
	if !errors.Is(waitErr, errRemote) {
		t.Errorf("PersistenceError does not wrap the gateway error: %v", waitErr)
	}

	after, err := s.Task("t1")
	if err != nil {
		t.Fatal(err)
	}
	if *after != *before {
		t.Errorf("task not restored to snapshot: got %+v, want %+v", after, before)
	}
	if n := len(fg.historyActions()); n != 0 {
		t.Errorf("history written for rolled-back mutation: %d entries", n)
	}

	// The in-flight guard is released on failure too.
	_, p2, err := s.TransitionTask(ctx, "t1", model.StatusDoing, "")
	if err != nil {
		t.Fatalf("transition after rollback: %v", err)
	}
	_ = p2.Wait()
}

func TestDispatchPartialLogErrorDoesNotRollBack(t *testing.T) {
	s, fg := newTestSession(t, func(fg *fakeGateway) {
		seedTask(fg, "t1", "Draft spec", model.StatusTodo)
	})
	fg.fail("AppendHistory")
	ctx := context.Background()

	_, p, err := s.TransitionTask(ctx, "t1", model.StatusDoing, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait() = %v, want nil on history-only failure", err)
	}

	var plerr *model.PartialLogError
	if !errors.As(p.LogErr(), &plerr) {
		t.Fatalf("LogErr() = %v, want PartialLogError", p.LogErr())
	}

	// Primary mutation stands, locally and remotely.
	local, err := s.Task("t1")
	if err != nil {
		t.Fatal(err)
	}
	if local.Status != model.StatusDoing {
		t.Errorf("local status = %s, want %s", local.Status, model.StatusDoing)
	}
	if got := fg.tasks["t1"].Status; got != model.StatusDoing {
		t.Errorf("stored status = %s, want %s", got, model.StatusDoing)
	}
}

func TestDispatchEmitsSettlementEvents(t *testing.T) {
	s, fg := newTestSession(t, func(fg *fakeGateway) {
		seedTask(fg, "t1", "Draft spec", model.StatusTodo)
	})
	fg.fail("UpdateTaskStatus")
	ctx := context.Background()

	_, p, err := s.TransitionTask(ctx, "t1", model.StatusDoing, "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	_ = p.Wait()

	select {
	case ev := <-s.Events():
		if ev.EntityID != "t1" || ev.Action != model.ActionMove {
			t.Errorf("event = %+v, want entity t1 action %s", ev, model.ActionMove)
		}
		if ev.Err == nil {
			t.Error("event for failed persist carries no error")
		}
	case <-time.After(time.Second):
		t.Fatal("no event emitted")
	}
}
