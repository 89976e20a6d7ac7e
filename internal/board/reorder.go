package board

import (
	"github.com/dvo/boardsync/internal/model"
	"github.com/dvo/boardsync/internal/store"
)

// stepsOf filters a task's element list down to its numbered steps in
// display order.
func stepsOf(list []*model.Element) []*model.Element {
	var steps []*model.Element
	for _, e := range list {
		if e.Kind == model.ElementStep {
			steps = append(steps, e)
		}
	}
	model.SortSteps(steps)
	return steps
}

// moveBefore removes the element with movedID from the ordered step
// slice and reinserts it immediately before the element with targetID.
// The inputs must both be present; callers validate first.
func moveBefore(steps []*model.Element, movedID, targetID string) []*model.Element {
	var moved *model.Element
	rest := make([]*model.Element, 0, len(steps))
	for _, e := range steps {
		if e.ID == movedID {
			moved = e
			continue
		}
		rest = append(rest, e)
	}

	out := make([]*model.Element, 0, len(steps))
	for _, e := range rest {
		if e.ID == targetID {
			out = append(out, moved)
		}
		out = append(out, e)
	}
	return out
}

// reindex assigns each step its sequential index as the new position
// and returns the full batch for the gateway. Every step gets a value,
// changed or not; the write is all-or-nothing.
func reindex(steps []*model.Element) []store.ElementPosition {
	batch := make([]store.ElementPosition, 0, len(steps))
	for i, e := range steps {
		e.Step.Position = i
		batch = append(batch, store.ElementPosition{ID: e.ID, Position: i})
	}
	return batch
}
