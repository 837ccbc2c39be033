package today

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stellarlinkco/dayflow/internal/store"
	"github.com/stellarlinkco/dayflow/internal/task"
)

type fakeStore struct {
	tasks  map[string]*task.Task
	users  []*task.User
	groups map[string][]*task.Group // userID -> groups
	lists  map[string]*task.List    // owner key -> today list
	saves  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:  make(map[string]*task.Task),
		groups: make(map[string][]*task.Group),
		lists:  make(map[string]*task.List),
	}
}

func (f *fakeStore) add(t *task.Task) *task.Task {
	f.tasks[t.ID] = t
	return t
}

func (f *fakeStore) FindTasks(_ context.Context, filter store.TaskFilter) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range f.tasks {
		if len(filter.Owners) > 0 {
			match := false
			for _, o := range filter.Owners {
				if t.Owner == o {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) SaveTask(_ context.Context, t *task.Task) error {
	f.tasks[t.ID] = t
	f.saves++
	return nil
}

func (f *fakeStore) AllUsers(context.Context) ([]*task.User, error) {
	return f.users, nil
}

func (f *fakeStore) GroupsForUser(_ context.Context, userID string) ([]*task.Group, error) {
	return f.groups[userID], nil
}

func (f *fakeStore) TodayList(_ context.Context, owner task.Owner) (*task.List, error) {
	key := string(owner.Kind) + "/" + owner.ID
	if l, ok := f.lists[key]; ok {
		return l, nil
	}
	l := &task.List{ID: "today-" + owner.ID, Name: task.TodayListName, Owner: owner}
	f.lists[key] = l
	return l, nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.June, 2, 3, 0, 0, 0, time.UTC) // a Monday
}

func newResolver(f *fakeStore) *Resolver {
	return NewAt(f, fixedNow)
}

func todayIDs(f *fakeStore, listID string) []string {
	var ids []string
	for _, t := range f.tasks {
		if t.HasList(listID) {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func TestRunUser_NoDueNoRepeatNeverToday(t *testing.T) {
	f := newFakeStore()
	tk := f.add(task.New("someday", task.UserOwner("u1")))
	tk.IsToday = true // stale flag from a manual edit

	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}
	if tk.IsToday {
		t.Error("task without due or recurrence must never be today")
	}
	if got := todayIDs(f, "today-u1"); len(got) != 0 {
		t.Errorf("today list = %v, want empty", got)
	}
}

func TestRunUser_DueTodayJoinsList(t *testing.T) {
	f := newFakeStore()
	due := fixedNow().Add(10 * time.Hour)
	tk := f.add(task.New("errand", task.UserOwner("u1")))
	tk.Due = &due

	tomorrow := fixedNow().AddDate(0, 0, 1).Add(15 * time.Hour)
	later := f.add(task.New("later", task.UserOwner("u1")))
	later.Due = &tomorrow

	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}

	if got := todayIDs(f, "today-u1"); len(got) != 1 || got[0] != tk.ID {
		t.Errorf("today list = %v, want [%s]", got, tk.ID)
	}
	if later.IsToday {
		t.Error("tomorrow's task should not be today")
	}
}

func TestRunUser_EstimatePullsDeadlineEarlier(t *testing.T) {
	f := newFakeStore()
	// Due tomorrow 10:00 with a 20h estimate: effective deadline lands today.
	due := time.Date(2025, time.June, 3, 10, 0, 0, 0, time.UTC)
	tk := f.add(task.New("long haul", task.UserOwner("u1")))
	tk.Due = &due
	tk.Estimate = 20 * time.Hour

	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}
	if !tk.IsToday {
		t.Error("long task due tomorrow should become today via its estimate")
	}
}

func TestRunUser_RecurringOccurrenceRollsAndJoins(t *testing.T) {
	f := newFakeStore()
	completed := fixedNow().Add(-12 * time.Hour)
	tk := f.add(task.New("workout", task.UserOwner("u1")))
	tk.Created = fixedNow().AddDate(0, 0, -1)
	tk.SetRepeatable(true, &task.Rule{Interval: task.Daily})
	tk.Completed = &completed
	tk.IsDone = true
	tk.Streak = 1

	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}

	if tk.Streak != 2 {
		t.Errorf("streak = %d, want 2 after a completed cycle", tk.Streak)
	}
	if len(tk.History) != 1 {
		t.Errorf("len(history) = %d, want 1", len(tk.History))
	}
	if tk.IsDone {
		t.Error("new cycle must start not-done")
	}
	if got := todayIDs(f, "today-u1"); len(got) != 1 || got[0] != tk.ID {
		t.Errorf("today list = %v, want [%s]", got, tk.ID)
	}
}

func TestRunUser_ExpiredRuleSkipsRecurrence(t *testing.T) {
	f := newFakeStore()
	until := fixedNow().AddDate(0, 0, -7)
	tk := f.add(task.New("old habit", task.UserOwner("u1")))
	tk.SetRepeatable(true, &task.Rule{Interval: task.Daily, Until: &until})
	tk.Streak = 4

	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}
	if tk.IsToday {
		t.Error("expired rule should keep the task out of today")
	}
	if tk.Streak != 4 {
		t.Errorf("streak = %d, want 4 (no roll past until)", tk.Streak)
	}
}

func TestRunUser_GroupTasksIncluded(t *testing.T) {
	f := newFakeStore()
	f.groups["u1"] = []*task.Group{{ID: "g1", OwnerID: "u1", Members: []string{"u1"}}}

	due := fixedNow().Add(8 * time.Hour)
	tk := f.add(task.New("team errand", task.GroupOwner("g1")))
	tk.Due = &due

	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}
	if got := todayIDs(f, "today-u1"); len(got) != 1 || got[0] != tk.ID {
		t.Errorf("today list = %v, want [%s]", got, tk.ID)
	}
}

func TestRunUser_RebuildEvictsStaleMembers(t *testing.T) {
	f := newFakeStore()
	tk := f.add(task.New("was due yesterday", task.UserOwner("u1")))
	yesterday := fixedNow().AddDate(0, 0, -1)
	tk.Due = &yesterday
	tk.IsToday = true
	tk.AddList("today-u1")

	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}
	if got := todayIDs(f, "today-u1"); len(got) != 0 {
		t.Errorf("today list = %v, want empty after rebuild", got)
	}
}

func TestRunUser_IdempotentMembership(t *testing.T) {
	f := newFakeStore()
	due := fixedNow().Add(6 * time.Hour)
	withDue := f.add(task.New("due", task.UserOwner("u1")))
	withDue.Due = &due
	f.add(task.New("floating", task.UserOwner("u1")))

	r := newResolver(f)
	if err := r.RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("first run error: %v", err)
	}
	first := todayIDs(f, "today-u1")
	savesAfterFirst := f.saves

	if err := r.RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("second run error: %v", err)
	}
	second := todayIDs(f, "today-u1")

	if len(first) != len(second) {
		t.Fatalf("membership changed: %v -> %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("membership changed: %v -> %v", first, second)
		}
	}
	if f.saves != savesAfterFirst {
		t.Errorf("second run persisted %d extra saves, want 0", f.saves-savesAfterFirst)
	}
}

func TestRun_GroupTaskRollsOncePerDay(t *testing.T) {
	f := newFakeStore()
	f.users = []*task.User{{ID: "u1"}, {ID: "u2"}}
	g := &task.Group{ID: "g1", OwnerID: "u1", Members: []string{"u1", "u2"}}
	f.groups["u1"] = []*task.Group{g}
	f.groups["u2"] = []*task.Group{g}

	started := fixedNow().Add(-14 * time.Hour)
	completed := fixedNow().Add(-10 * time.Hour)
	tk := f.add(task.New("team workout", task.GroupOwner("g1")))
	tk.Created = fixedNow().AddDate(0, 0, -1)
	tk.SetRepeatable(true, &task.Rule{Interval: task.Daily})
	tk.Started = &started
	tk.Completed = &completed
	tk.IsDone = true
	tk.Streak = 3

	if err := newResolver(f).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// Both members' passes visit the task; only one may roll the cycle.
	if tk.Streak != 4 {
		t.Errorf("streak = %d, want 4", tk.Streak)
	}
	if len(tk.History) != 1 {
		t.Errorf("len(history) = %d, want 1", len(tk.History))
	}
	if !tk.IsToday {
		t.Error("occurrence day must keep the task today for every member")
	}
	for _, listID := range []string{"today-u1", "today-u2"} {
		if got := todayIDs(f, listID); len(got) != 1 || got[0] != tk.ID {
			t.Errorf("list %s = %v, want [%s]", listID, got, tk.ID)
		}
	}

	// A same-day re-run must not roll again either.
	if err := newResolver(f).Run(context.Background()); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if tk.Streak != 4 || len(tk.History) != 1 {
		t.Errorf("after re-run streak = %d history = %d, want 4 and 1",
			tk.Streak, len(tk.History))
	}
}

func TestRunUser_PersistsClearedTodayFlag(t *testing.T) {
	f := newFakeStore()
	tk := f.add(task.New("slipped", task.UserOwner("u1")))
	yesterday := fixedNow().AddDate(0, 0, -1)
	tk.Due = &yesterday
	tk.IsToday = true // stale, and never on the list

	saves := f.saves
	if err := newResolver(f).RunUser(context.Background(), "u1"); err != nil {
		t.Fatalf("RunUser error: %v", err)
	}
	if tk.IsToday {
		t.Error("flag must be recomputed to false")
	}
	if f.saves != saves+1 {
		t.Errorf("saves = %d, want 1: a changed flag must be persisted", f.saves-saves)
	}
}

func TestRun_CoversAllUsers(t *testing.T) {
	f := newFakeStore()
	f.users = []*task.User{{ID: "u1"}, {ID: "u2"}}

	due := fixedNow().Add(4 * time.Hour)
	tk := f.add(task.New("errand", task.UserOwner("u2")))
	tk.Due = &due

	if err := newResolver(f).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// u1 has no tasks; u2's task still lands on its list.
	if got := todayIDs(f, "today-u2"); len(got) != 1 {
		t.Errorf("today list for u2 = %v, want one member", got)
	}
}
