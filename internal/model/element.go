package model

import (
	"sort"
	"time"
)

// ElementKind discriminates the element variants of a task.
type ElementKind string

const (
	ElementChecklist ElementKind = "checklist"
	ElementStep      ElementKind = "step"
	ElementComment   ElementKind = "comment"
)

// Valid reports whether k is a known element kind.
func (k ElementKind) Valid() bool {
	switch k {
	case ElementChecklist, ElementStep, ElementComment:
		return true
	}
	return false
}

// ChecklistFields holds the checklist-item variant data.
type ChecklistFields struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// StepFields holds the numbered-step variant data. Position is dense
// and unique within the step subset of a task immediately after a
// reorder; deletions may leave gaps, so consumers sort rather than
// index by it.
type StepFields struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// CommentFields holds the comment variant data. ReplyToID is a
// non-owning back-reference into the same task's element set; it may
// dangle after the referenced comment is deleted and is resolved
// defensively at display time.
type CommentFields struct {
	Text          string     `json:"text"`
	AttachmentRef string     `json:"attachment_ref,omitempty"`
	ReplyToID     string     `json:"reply_to_id,omitempty"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
}

// Element is a per-task sub-item: exactly one of the variant field
// groups is set, selected by Kind.
type Element struct {
	ID         string      `json:"id"`
	TaskID     string      `json:"task_id"`
	Kind       ElementKind `json:"kind"`
	AuthorID   string      `json:"author_id"`
	AuthorName string      `json:"author_name"`
	CreatedAt  time.Time   `json:"created_at"`

	Checklist *ChecklistFields `json:"checklist,omitempty"`
	Step      *StepFields      `json:"step,omitempty"`
	Comment   *CommentFields   `json:"comment,omitempty"`
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := *e
	if e.Checklist != nil {
		f := *e.Checklist
		c.Checklist = &f
	}
	if e.Step != nil {
		f := *e.Step
		c.Step = &f
	}
	if e.Comment != nil {
		f := *e.Comment
		c.Comment = &f
		if e.Comment.EditedAt != nil {
			ts := *e.Comment.EditedAt
			c.Comment.EditedAt = &ts
		}
	}
	return &c
}

// SortSteps orders numbered steps for display: position ascending,
// creation time as the tie-break.
func SortSteps(steps []*Element) {
	sort.SliceStable(steps, func(i, j int) bool {
		a, b := steps[i].Step, steps[j].Step
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return steps[i].CreatedAt.Before(steps[j].CreatedAt)
	})
}
