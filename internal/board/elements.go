package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvo/boardsync/internal/model"
	"github.com/dvo/boardsync/internal/store"
)

// ElementFields carries the caller-supplied data for a new element.
// Text is required for checklist items and steps; a comment needs text
// or an attachment reference.
type ElementFields struct {
	Text          string
	AttachmentRef string
}

// ElementEdits carries a partial element update; nil fields are left
// unchanged. Done applies to checklist items, Text to any variant with
// text. Editing a comment's text stamps EditedAt while keeping the
// original creation time.
type ElementEdits struct {
	Text          *string
	Done          *bool
	AttachmentRef *string
}

// AddElement optimistically appends a new element to a loaded task.
// A new numbered step lands at the end of the step list; a new comment
// on the current task consumes the session's pending-reply pointer,
// which clears as soon as the reply is submitted. The pointer always
// targets a comment of the same task, so a comment added to any other
// loaded task leaves it untouched.
func (s *Session) AddElement(ctx context.Context, taskID string, kind model.ElementKind, fields ElementFields) (*model.Element, *Pending, error) {
	if !kind.Valid() {
		return nil, nil, &model.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown element kind %q", kind)}
	}
	if strings.TrimSpace(fields.Text) == "" && !(kind == model.ElementComment && fields.AttachmentRef != "") {
		return nil, nil, &model.ValidationError{Field: "text", Message: "element text must not be empty"}
	}

	elem := &model.Element{
		ID:         uuid.New().String(),
		TaskID:     taskID,
		Kind:       kind,
		AuthorID:   s.actorID,
		AuthorName: s.actorName,
		CreatedAt:  time.Now().UTC(),
	}

	var (
		taskTitle    string
		projectID    string
		replyToID    string
		parentAuthor string
		consumeReply bool
	)

	m := mutation{
		entity: "element",
		id:     elem.ID,
		action: model.ActionCreate,
		apply: func() (func(), error) {
			task, ok := s.tasks[taskID]
			if !ok {
				return nil, &model.NotFoundError{Entity: "task", ID: taskID}
			}
			taskTitle, projectID = task.Title, task.ProjectID
			list, loaded := s.elements[taskID]
			if !loaded {
				return nil, &model.NotFoundError{Entity: "task elements", ID: taskID}
			}

			switch kind {
			case model.ElementChecklist:
				elem.Checklist = &model.ChecklistFields{Text: fields.Text}
			case model.ElementStep:
				// Append: position = count of existing steps.
				elem.Step = &model.StepFields{
					Text:     fields.Text,
					Position: len(stepsOf(list)),
				}
			case model.ElementComment:
				// The pending reply targets a comment of the current
				// task; a comment submitted to any other loaded task
				// must not pick it up.
				consumeReply = taskID == s.currentTaskID && s.pendingReply != ""
				if consumeReply {
					replyToID = s.pendingReply
				}
				parentAuthor = replyAuthor(ResolveReply(list, replyToID))
				elem.Comment = &model.CommentFields{
					Text:          fields.Text,
					AttachmentRef: fields.AttachmentRef,
					ReplyToID:     replyToID,
				}
			}

			prevReply := s.pendingReply
			s.elements[taskID] = append(list, elem)
			if consumeReply {
				s.pendingReply = ""
			}
			return func() {
				cur := s.elements[taskID]
				out := cur[:0]
				for _, e := range cur {
					if e.ID != elem.ID {
						out = append(out, e)
					}
				}
				s.elements[taskID] = out
				if consumeReply {
					s.pendingReply = prevReply
				}
			}, nil
		},
		persist: func(ctx context.Context) error {
			return s.gw.CreateElement(ctx, *elem)
		},
		record: func() *model.HistoryEntry {
			action := model.ActionCreate
			detail := ""
			switch kind {
			case model.ElementChecklist:
				detail = fmt.Sprintf("Added checklist item to task %q", taskTitle)
			case model.ElementStep:
				detail = fmt.Sprintf("Added step to task %q", taskTitle)
			case model.ElementComment:
				if replyToID != "" {
					action = model.ActionReply
					detail = fmt.Sprintf("Replied to %s on task %q", parentAuthor, taskTitle)
				} else {
					detail = fmt.Sprintf("Commented on task %q", taskTitle)
				}
			}
			return s.historyEntry(action, detail, projectID, taskID, taskTitle)
		},
	}

	p, err := s.dispatch(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return elem.Clone(), p, nil
}

// EditElement applies a partial update to a loaded element.
func (s *Session) EditElement(ctx context.Context, id string, edits ElementEdits) (*model.Element, *Pending, error) {
	if edits.Text != nil && strings.TrimSpace(*edits.Text) == "" {
		return nil, nil, &model.ValidationError{Field: "text", Message: "element text must not be empty"}
	}

	var (
		taskTitle string
		projectID string
		taskID    string
		kind      model.ElementKind
		elem      *model.Element
		snapshot  *model.Element
		applied   *model.Element
	)

	m := mutation{
		entity: "element",
		id:     id,
		action: model.ActionEdit,
		apply: func() (func(), error) {
			tid, _, found := s.elementLocked(id)
			if found == nil {
				return nil, &model.NotFoundError{Entity: "element", ID: id}
			}
			elem = found
			taskID = tid
			kind = elem.Kind
			if task := s.tasks[tid]; task != nil {
				taskTitle, projectID = task.Title, task.ProjectID
			}
			snapshot = elem.Clone()

			switch elem.Kind {
			case model.ElementChecklist:
				if edits.Text != nil {
					elem.Checklist.Text = *edits.Text
				}
				if edits.Done != nil {
					elem.Checklist.Done = *edits.Done
				}
			case model.ElementStep:
				if edits.Text != nil {
					elem.Step.Text = *edits.Text
				}
			case model.ElementComment:
				if edits.Text != nil && *edits.Text != elem.Comment.Text {
					elem.Comment.Text = *edits.Text
					now := time.Now().UTC()
					elem.Comment.EditedAt = &now
				}
				if edits.AttachmentRef != nil {
					elem.Comment.AttachmentRef = *edits.AttachmentRef
				}
			}
			// Copied while the mutex is held; the live struct may be
			// rolled back concurrently once dispatch returns.
			applied = elem.Clone()
			return func() {
				*elem = *snapshot
			}, nil
		},
		persist: func(ctx context.Context) error {
			s.mu.Lock()
			e := *elem
			s.mu.Unlock()
			return s.gw.UpdateElement(ctx, e)
		},
		record: func() *model.HistoryEntry {
			detail := fmt.Sprintf("Edited %s on task %q", kind, taskTitle)
			if kind == model.ElementChecklist && edits.Done != nil {
				state := "unchecked"
				if *edits.Done {
					state = "checked"
				}
				detail = fmt.Sprintf("Marked checklist item %s on task %q", state, taskTitle)
			}
			return s.historyEntry(model.ActionEdit, detail, projectID, taskID, taskTitle)
		},
	}

	p, err := s.dispatch(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return applied, p, nil
}

// DeleteElement optimistically removes one element. Remaining numbered
// steps are not reindexed; gaps are tolerated until the next reorder.
// Comments replying to the deleted element keep their now-dangling
// reference.
func (s *Session) DeleteElement(ctx context.Context, id string) (*Pending, error) {
	var (
		taskTitle string
		projectID string
		taskID    string
		snapshot  *model.Element
	)

	m := mutation{
		entity: "element",
		id:     id,
		action: model.ActionDelete,
		apply: func() (func(), error) {
			tid, idx, found := s.elementLocked(id)
			if found == nil {
				return nil, &model.NotFoundError{Entity: "element", ID: id}
			}
			taskID = tid
			if task := s.tasks[tid]; task != nil {
				taskTitle, projectID = task.Title, task.ProjectID
			}
			snapshot = found.Clone()
			prevReply := s.pendingReply

			list := s.elements[taskID]
			s.elements[taskID] = append(list[:idx], list[idx+1:]...)
			if s.pendingReply == id {
				s.pendingReply = ""
			}
			return func() {
				list := s.elements[taskID]
				at := idx
				if at > len(list) {
					at = len(list)
				}
				restored := make([]*model.Element, 0, len(list)+1)
				restored = append(restored, list[:at]...)
				restored = append(restored, snapshot)
				restored = append(restored, list[at:]...)
				s.elements[taskID] = restored
				s.pendingReply = prevReply
			}, nil
		},
		persist: func(ctx context.Context) error {
			return s.gw.DeleteElement(ctx, id)
		},
		record: func() *model.HistoryEntry {
			return s.historyEntry(model.ActionDelete,
				fmt.Sprintf("Deleted %s from task %q", snapshot.Kind, taskTitle),
				projectID, taskID, taskTitle)
		},
	}

	return s.dispatch(ctx, m)
}

// ReorderNumberedSteps moves one step immediately before another and
// reassigns every step of the task its sequential index. The whole
// reindex is persisted as a single batch so the stored ordering is
// all-or-nothing.
func (s *Session) ReorderNumberedSteps(ctx context.Context, taskID, movedID, targetID string) ([]*model.Element, *Pending, error) {
	if movedID == targetID {
		return nil, nil, &model.ValidationError{Field: "target", Message: "cannot reorder a step before itself"}
	}

	var (
		taskTitle string
		projectID string
		positions []positionSnapshot
		reordered []*model.Element
		batch     []store.ElementPosition
	)

	m := mutation{
		entity: "task steps",
		id:     taskID,
		action: model.ActionReorder,
		apply: func() (func(), error) {
			task, ok := s.tasks[taskID]
			if !ok {
				return nil, &model.NotFoundError{Entity: "task", ID: taskID}
			}
			taskTitle, projectID = task.Title, task.ProjectID
			list, loaded := s.elements[taskID]
			if !loaded {
				return nil, &model.NotFoundError{Entity: "task elements", ID: taskID}
			}

			steps := stepsOf(list)
			if findStep(steps, movedID) == nil {
				return nil, &model.NotFoundError{Entity: "step", ID: movedID}
			}
			if findStep(steps, targetID) == nil {
				return nil, &model.NotFoundError{Entity: "step", ID: targetID}
			}

			// Snapshot old positions for rollback.
			for _, e := range steps {
				positions = append(positions, positionSnapshot{elem: e, position: e.Step.Position})
			}

			reordered = moveBefore(steps, movedID, targetID)
			batch = reindex(reordered)
			return func() {
				for _, p := range positions {
					p.elem.Step.Position = p.position
				}
			}, nil
		},
		persist: func(ctx context.Context) error {
			return s.gw.ReorderElements(ctx, batch)
		},
		record: func() *model.HistoryEntry {
			return s.historyEntry(model.ActionReorder,
				fmt.Sprintf("Reordered steps on task %q", taskTitle),
				projectID, taskID, taskTitle)
		},
	}

	p, err := s.dispatch(ctx, m)
	if err != nil {
		return nil, nil, err
	}

	out := make([]*model.Element, 0, len(reordered))
	s.mu.Lock()
	for _, e := range reordered {
		out = append(out, e.Clone())
	}
	s.mu.Unlock()
	return out, p, nil
}

// positionSnapshot pairs a live step with its pre-reorder position.
type positionSnapshot struct {
	elem     *model.Element
	position int
}

// findStep returns the step with the given id, or nil.
func findStep(steps []*model.Element, id string) *model.Element {
	for _, e := range steps {
		if e.ID == id {
			return e
		}
	}
	return nil
}
