package history

import (
	"testing"
	"time"

	"github.com/dvo/boardsync/internal/model"
)

func at(sec int) time.Time {
	return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
}

func TestGroupedBucketsAndOrder(t *testing.T) {
	entries := []model.HistoryEntry{
		{TaskID: "t1", ProjectID: "p1", CreatedAt: at(20)},
		{TaskID: "t1", ProjectID: "p1", CreatedAt: at(10)},
		{TaskID: "", ProjectID: "p1", CreatedAt: at(5)},
	}

	groups := Grouped(entries, nil)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	if groups[0].TaskID != "t1" {
		t.Errorf("first group is %q, want t1", groups[0].TaskID)
	}
	if !groups[0].LastActivity.Equal(at(20)) {
		t.Errorf("t1 lastActivity = %v, want %v", groups[0].LastActivity, at(20))
	}
	if len(groups[0].Entries) != 2 {
		t.Errorf("t1 has %d entries, want 2", len(groups[0].Entries))
	}

	general := groups[1]
	if general.TaskID != "" || general.ProjectID != "p1" {
		t.Errorf("second group = %+v, want general bucket of p1", general)
	}
	if !general.LastActivity.Equal(at(5)) {
		t.Errorf("general lastActivity = %v, want %v", general.LastActivity, at(5))
	}
	if general.Title != generalLabel {
		t.Errorf("general title = %q, want %q", general.Title, generalLabel)
	}
}

func TestGroupedTitleResolution(t *testing.T) {
	cases := []struct {
		name    string
		entries []model.HistoryEntry
		resolve TitleResolver
		want    string
		exists  bool
	}{
		{
			name: "live task wins",
			entries: []model.HistoryEntry{
				{TaskID: "t1", TaskTitle: "Old title", CreatedAt: at(1)},
			},
			resolve: func(id string) (string, bool) { return "Current title", true },
			want:    "Current title",
			exists:  true,
		},
		{
			name: "snapshot when task is gone",
			entries: []model.HistoryEntry{
				{TaskID: "t1", TaskTitle: "Snapshot title", CreatedAt: at(1)},
			},
			want: "Snapshot title",
		},
		{
			name: "quoted detail for legacy entries",
			entries: []model.HistoryEntry{
				{TaskID: "t1", Detail: `Moved task "Draft spec" from todo to doing`, CreatedAt: at(2)},
				{TaskID: "t1", Detail: "no quotes here", CreatedAt: at(1)},
			},
			want: "Draft spec",
		},
		{
			name: "most recent quoted detail wins",
			entries: []model.HistoryEntry{
				{TaskID: "t1", Detail: `Edited task "New name"`, CreatedAt: at(2)},
				{TaskID: "t1", Detail: `Created task "Old name"`, CreatedAt: at(1)},
			},
			want: "New name",
		},
		{
			name: "fallback label",
			entries: []model.HistoryEntry{
				{TaskID: "t1", Detail: "nothing recoverable", CreatedAt: at(1)},
			},
			want: closedTaskLabel,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups := Grouped(tc.entries, tc.resolve)
			if len(groups) != 1 {
				t.Fatalf("got %d groups, want 1", len(groups))
			}
			if groups[0].Title != tc.want {
				t.Errorf("title = %q, want %q", groups[0].Title, tc.want)
			}
			if groups[0].TaskExists != tc.exists {
				t.Errorf("taskExists = %v, want %v", groups[0].TaskExists, tc.exists)
			}
		})
	}
}

func TestGroupedAllOrdersProjectsByRecency(t *testing.T) {
	entries := []model.HistoryEntry{
		{TaskID: "a", ProjectID: "p1", CreatedAt: at(10)},
		{TaskID: "b", ProjectID: "p2", CreatedAt: at(30)},
		{TaskID: "c", ProjectID: "p1", CreatedAt: at(20)},
	}

	projects := GroupedAll(entries, nil)
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
	if projects[0].ProjectID != "p2" {
		t.Errorf("first project = %q, want p2", projects[0].ProjectID)
	}
	if projects[1].ProjectID != "p1" {
		t.Errorf("second project = %q, want p1", projects[1].ProjectID)
	}
	// Within p1, task c is more recent than task a.
	p1 := projects[1].Groups
	if p1[0].TaskID != "c" || p1[1].TaskID != "a" {
		t.Errorf("p1 group order = %q, %q; want c, a", p1[0].TaskID, p1[1].TaskID)
	}
}

func TestSelectGroupKeepsNativeOrder(t *testing.T) {
	entries := []model.HistoryEntry{
		{ID: "h3", TaskID: "t1", CreatedAt: at(30)},
		{ID: "h2", TaskID: "t2", CreatedAt: at(20)},
		{ID: "h1", TaskID: "t1", CreatedAt: at(10)},
	}

	selected := SelectGroup(entries, "t1")
	if len(selected) != 2 {
		t.Fatalf("got %d entries, want 2", len(selected))
	}
	// Reverse-chronological input order is preserved, not re-sorted.
	if selected[0].ID != "h3" || selected[1].ID != "h1" {
		t.Errorf("order = %q, %q; want h3, h1", selected[0].ID, selected[1].ID)
	}
}

func TestSelectGroupGeneralBucket(t *testing.T) {
	entries := []model.HistoryEntry{
		{ID: "h3", TaskID: "t1", ProjectID: "p1", CreatedAt: at(30)},
		{ID: "h2", TaskID: "", ProjectID: "p1", CreatedAt: at(20)},
		{ID: "h1", TaskID: "", ProjectID: "p1", CreatedAt: at(10)},
	}

	selected := SelectGroup(entries, GeneralBucketID)
	if len(selected) != 2 {
		t.Fatalf("got %d entries, want 2", len(selected))
	}
	if selected[0].ID != "h2" || selected[1].ID != "h1" {
		t.Errorf("order = %q, %q; want h2, h1", selected[0].ID, selected[1].ID)
	}

	groups := Grouped(entries, nil)
	for _, g := range groups {
		if g.TaskID == "" && g.Key() != GeneralBucketID {
			t.Errorf("general bucket Key() = %q, want %q", g.Key(), GeneralBucketID)
		}
		if g.TaskID != "" && g.Key() != g.TaskID {
			t.Errorf("task group Key() = %q, want %q", g.Key(), g.TaskID)
		}
	}
}

func TestFirstQuoted(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`Moved task "Draft spec" from todo to doing`, "Draft spec"},
		{`two "first" and "second"`, "first"},
		{`no quotes`, ""},
		{`dangling "quote`, ""},
		{`""`, ""},
	}
	for _, tc := range cases {
		if got := firstQuoted(tc.in); got != tc.want {
			t.Errorf("firstQuoted(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "just now", t: now.Add(-30 * time.Second), want: "just now"},
		{name: "one minute", t: now.Add(-90 * time.Second), want: "1 minute ago"},
		{name: "minutes", t: now.Add(-45 * time.Minute), want: "45 minutes ago"},
		{name: "one hour", t: now.Add(-90 * time.Minute), want: "1 hour ago"},
		{name: "hours", t: now.Add(-5 * time.Hour), want: "5 hours ago"},
		{name: "yesterday", t: now.Add(-30 * time.Hour), want: "yesterday"},
		{name: "absolute", t: now.Add(-80 * time.Hour), want: "May 7, 2025"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RelativeTime(tc.t, now); got != tc.want {
				t.Errorf("RelativeTime = %q, want %q", got, tc.want)
			}
		})
	}
}
