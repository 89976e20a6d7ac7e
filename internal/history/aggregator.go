// Package history derives folder-style activity views from the
// append-only audit log: entries grouped per task, labeled with a
// best-effort title, ordered by recency.
package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvo/boardsync/internal/model"
)

// closedTaskLabel names a group whose task no longer exists and whose
// entries carry no recoverable title.
const closedTaskLabel = "(closed task)"

// generalLabel names the per-project bucket of entries with no task.
const generalLabel = "General"

// GeneralBucketID selects a project's general bucket in detail mode.
// Those entries carry an empty task id, which callers already use to
// mean "no selection", so the bucket needs its own selector.
const GeneralBucketID = "_general"

// Group is one folder of the activity view: the history entries that
// share a task, or a project's general bucket.
type Group struct {
	// TaskID is empty for the general bucket.
	TaskID    string
	ProjectID string
	Title     string
	// TaskExists is true when the title came from a live task.
	TaskExists bool
	// LastActivity is the newest entry timestamp in the group.
	LastActivity time.Time
	// Entries keeps the log's native reverse-chronological order.
	Entries []model.HistoryEntry
}

// Key returns the selector detail mode uses for this group: the task
// id, or GeneralBucketID for the general bucket.
func (g Group) Key() string {
	if g.TaskID == "" {
		return GeneralBucketID
	}
	return g.TaskID
}

// ProjectGroups is the activity view of one project in the
// all-projects listing.
type ProjectGroups struct {
	ProjectID string
	Groups    []Group
}

// TitleResolver reports the current title of a task if it still
// exists. The board session's local model implements this.
type TitleResolver func(taskID string) (string, bool)

// Grouped buckets a project's entries (given newest-first) by task and
// orders the buckets by most recent activity. Entries with no task id
// form a single general bucket. It recomputes from scratch on every
// call; nothing is cached.
func Grouped(entries []model.HistoryEntry, resolve TitleResolver) []Group {
	byTask := make(map[string]*Group)
	var order []string

	for _, e := range entries {
		key := e.TaskID
		g, ok := byTask[key]
		if !ok {
			g = &Group{TaskID: e.TaskID, ProjectID: e.ProjectID}
			byTask[key] = g
			order = append(order, key)
		}
		g.Entries = append(g.Entries, e)
		if e.CreatedAt.After(g.LastActivity) {
			g.LastActivity = e.CreatedAt
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		g := byTask[key]
		g.Title, g.TaskExists = resolveTitle(g, resolve)
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].LastActivity.After(groups[j].LastActivity)
	})
	return groups
}

// GroupedAll builds the all-projects view: groups per project, tasks
// within a project by recency, projects by their most recently active
// group.
func GroupedAll(entries []model.HistoryEntry, resolve TitleResolver) []ProjectGroups {
	byProject := make(map[string][]model.HistoryEntry)
	var order []string
	for _, e := range entries {
		if _, ok := byProject[e.ProjectID]; !ok {
			order = append(order, e.ProjectID)
		}
		byProject[e.ProjectID] = append(byProject[e.ProjectID], e)
	}

	out := make([]ProjectGroups, 0, len(order))
	for _, pid := range order {
		out = append(out, ProjectGroups{
			ProjectID: pid,
			Groups:    Grouped(byProject[pid], resolve),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return mostRecent(out[i].Groups).After(mostRecent(out[j].Groups))
	})
	return out
}

// SelectGroup returns the entries of one group in the log's native
// reverse-chronological order, or nil if the group has no entries.
// groupID is a task id or GeneralBucketID. Detail mode never re-sorts.
func SelectGroup(entries []model.HistoryEntry, groupID string) []model.HistoryEntry {
	taskID := groupID
	if groupID == GeneralBucketID {
		taskID = ""
	}
	var out []model.HistoryEntry
	for _, e := range entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

// resolveTitle labels a group: live task title first, then the title
// snapshot captured at append time, then a scan of the detail strings
// (most recent first) for a double-quoted substring, and finally the
// closed-task label. The general bucket has a fixed label.
func resolveTitle(g *Group, resolve TitleResolver) (string, bool) {
	if g.TaskID == "" {
		return generalLabel, false
	}
	if resolve != nil {
		if title, ok := resolve(g.TaskID); ok {
			return title, true
		}
	}
	for _, e := range g.Entries {
		if e.TaskTitle != "" {
			return e.TaskTitle, false
		}
	}
	// Entries written before the snapshot column existed: recover the
	// title from the quoted text in the detail.
	for _, e := range g.Entries {
		if q := firstQuoted(e.Detail); q != "" {
			return q, false
		}
	}
	return closedTaskLabel, false
}

// firstQuoted returns the first substring of s enclosed in double
// quotes, or empty.
func firstQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// mostRecent returns the newest LastActivity among groups.
func mostRecent(groups []Group) time.Time {
	var max time.Time
	for _, g := range groups {
		if g.LastActivity.After(max) {
			max = g.LastActivity
		}
	}
	return max
}

// RelativeTime renders a timestamp the way the activity view shows it:
// "just now" under a minute, minutes under an hour, hours under a day,
// "yesterday" under two days, and an absolute date beyond that.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	case d < 48*time.Hour:
		return "yesterday"
	default:
		return t.Format("Jan 2, 2006")
	}
}
