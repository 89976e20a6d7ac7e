package model

import (
	"errors"
	"testing"
	"time"
)

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		name   string
		from   Status
		to     Status
		reason string
		ok     bool
	}{
		{name: "todo to doing", from: StatusTodo, to: StatusDoing, ok: true},
		{name: "doing to done", from: StatusDoing, to: StatusDone, ok: true},
		{name: "done back to todo", from: StatusDone, to: StatusTodo, ok: true},
		{name: "rejected to doing", from: StatusRejected, to: StatusDoing, ok: true},
		{name: "into review with reason", from: StatusDoing, to: StatusReview, reason: "needs peer check", ok: true},
		{name: "into rejected with reason", from: StatusReview, to: StatusRejected, reason: "out of scope", ok: true},
		{name: "into review without reason", from: StatusDoing, to: StatusReview, ok: false},
		{name: "into rejected without reason", from: StatusDoing, to: StatusRejected, ok: false},
		{name: "same state no-op", from: StatusDoing, to: StatusDoing, ok: false},
		{name: "unknown target", from: StatusTodo, to: Status("archived"), ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.from, tc.to, tc.reason)
			if tc.ok && err != nil {
				t.Fatalf("ValidateTransition(%q, %q, %q) = %v, want nil", tc.from, tc.to, tc.reason, err)
			}
			if !tc.ok {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("ValidateTransition(%q, %q, %q) = %v, want ValidationError", tc.from, tc.to, tc.reason, err)
				}
			}
		})
	}
}

func TestApplyStatusCompletedMirror(t *testing.T) {
	task := &Task{ID: "t1", Title: "x", Status: StatusTodo}

	for _, to := range AllStatuses {
		if to == task.Status {
			continue
		}
		task.ApplyStatus(to, "because")
		if got, want := task.Completed, to == StatusDone; got != want {
			t.Errorf("after ApplyStatus(%q): Completed = %v, want %v", to, got, want)
		}
	}
}

func TestApplyStatusReasonRetained(t *testing.T) {
	task := &Task{ID: "t1", Title: "x", Status: StatusDoing}

	task.ApplyStatus(StatusReview, "needs peer check")
	if task.Reason != "needs peer check" {
		t.Fatalf("Reason = %q, want %q", task.Reason, "needs peer check")
	}

	// Leaving the guarded state keeps the last recorded justification.
	task.ApplyStatus(StatusDoing, "")
	if task.Reason != "needs peer check" {
		t.Errorf("Reason after leaving review = %q, want retained %q", task.Reason, "needs peer check")
	}

	task.ApplyStatus(StatusRejected, "duplicate")
	if task.Reason != "duplicate" {
		t.Errorf("Reason = %q, want overwritten %q", task.Reason, "duplicate")
	}
}

func TestTaskCloneIsDeep(t *testing.T) {
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ID: "t1", Title: "x", DueDate: &due}

	clone := task.Clone()
	*clone.DueDate = due.AddDate(0, 1, 0)

	if !task.DueDate.Equal(due) {
		t.Errorf("mutating clone's DueDate changed the original: %v", task.DueDate)
	}
}

func TestElementCloneIsDeep(t *testing.T) {
	edited := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := &Element{
		ID:   "e1",
		Kind: ElementComment,
		Comment: &CommentFields{
			Text:     "hello",
			EditedAt: &edited,
		},
	}

	clone := e.Clone()
	clone.Comment.Text = "changed"
	*clone.Comment.EditedAt = edited.Add(time.Hour)

	if e.Comment.Text != "hello" {
		t.Errorf("mutating clone changed original text: %q", e.Comment.Text)
	}
	if !e.Comment.EditedAt.Equal(edited) {
		t.Errorf("mutating clone changed original EditedAt: %v", e.Comment.EditedAt)
	}
}
