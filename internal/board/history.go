package board

import (
	"context"
	"fmt"

	"github.com/dvo/boardsync/internal/history"
	"github.com/dvo/boardsync/internal/model"
)

// HistoryView is one rendering of the activity log: either the grouped
// folder view (per project or across all projects) or, when a group is
// selected, that group's entries in the log's own order.
type HistoryView struct {
	Groups   []history.Group
	Projects []history.ProjectGroups
	Selected []model.HistoryEntry
}

// GetHistoryView fetches the latest log and derives the requested
// view. An empty projectID means the all-projects view; a non-empty
// selectedGroupID switches into that group's detail listing, keyed by
// Group.Key (a task id, or history.GeneralBucketID for the general
// bucket). The grouped view is recomputed fresh on every call.
func (s *Session) GetHistoryView(ctx context.Context, projectID, selectedGroupID string, limit int) (*HistoryView, error) {
	var (
		entries []model.HistoryEntry
		err     error
	)
	if projectID == "" {
		entries, err = s.gw.ListAllHistory(ctx, limit)
	} else {
		entries, err = s.gw.ListHistory(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	resolve := func(taskID string) (string, bool) {
		s.mu.Lock()
		defer s.mu.Unlock()
		t, ok := s.tasks[taskID]
		if !ok {
			return "", false
		}
		return t.Title, true
	}

	view := &HistoryView{}
	if selectedGroupID != "" {
		view.Selected = history.SelectGroup(entries, selectedGroupID)
		return view, nil
	}
	if projectID == "" {
		view.Projects = history.GroupedAll(entries, resolve)
	} else {
		view.Groups = history.Grouped(entries, resolve)
	}
	return view, nil
}
