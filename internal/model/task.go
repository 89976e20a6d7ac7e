package model

import "time"

// Status is the workflow stage of a task.
type Status string

const (
	StatusTodo     Status = "todo"
	StatusDoing    Status = "doing"
	StatusDone     Status = "done"
	StatusReview   Status = "review"
	StatusRejected Status = "rejected"
)

// AllStatuses lists every legal status in board column order.
var AllStatuses = []Status{
	StatusTodo,
	StatusDoing,
	StatusDone,
	StatusReview,
	StatusRejected,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone, StatusReview, StatusRejected:
		return true
	}
	return false
}

// RequiresReason reports whether transitioning into s needs a
// justification string from the caller.
func (s Status) RequiresReason() bool {
	return s == StatusReview || s == StatusRejected
}

// String returns the display string.
func (s Status) String() string {
	return string(s)
}

// Normalized priority bands. Any integer >= 1 is accepted; these are
// the values the UI clamps to.
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// Task is a unit of work on a project board.
//
// Completed is a legacy mirror of Status that older consumers still
// read; every write path keeps it equal to (Status == StatusDone).
// Reason holds the justification recorded by the most recent guarded
// transition and is deliberately not cleared when the task leaves
// review or rejected.
type Task struct {
	ID          string     `json:"id" db:"id"`
	ProjectID   string     `json:"project_id" db:"project_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      Status     `json:"status" db:"status"`
	Priority    int        `json:"priority" db:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	Reason      string     `json:"reason" db:"reason"`
	Completed   bool       `json:"completed" db:"completed"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ValidateTransition checks the transition table for a status change.
// Any state may move to any other state; a same-state move is rejected
// as a non-mutation, and moving into review or rejected requires a
// non-empty reason. A failed validation implies no state was touched.
func ValidateTransition(from, to Status, reason string) error {
	if !to.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status " + string(to)}
	}
	if from == to {
		return &ValidationError{Field: "status", Message: "task already has status " + string(to)}
	}
	if to.RequiresReason() && reason == "" {
		return &ValidationError{
			Field:   "reason",
			Message: "moving a task to " + string(to) + " requires a reason",
		}
	}
	return nil
}

// ApplyStatus mutates the task in place for a validated transition,
// keeping the Completed mirror and the Reason quirk consistent.
func (t *Task) ApplyStatus(to Status, reason string) {
	t.Status = to
	t.Completed = to == StatusDone
	if to.RequiresReason() {
		t.Reason = reason
	}
}

// Clone returns a deep copy, used as the pre-mutation snapshot by the
// optimistic coordinator.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}
