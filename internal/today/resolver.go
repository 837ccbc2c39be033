// Package today rebuilds every owner's "today" list once per day.
package today

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stellarlinkco/dayflow/internal/store"
	"github.com/stellarlinkco/dayflow/internal/task"
)

// Store is the slice of the task store the resolver needs.
type Store interface {
	FindTasks(ctx context.Context, f store.TaskFilter) ([]*task.Task, error)
	SaveTask(ctx context.Context, t *task.Task) error
	AllUsers(ctx context.Context) ([]*task.User, error)
	GroupsForUser(ctx context.Context, userID string) ([]*task.Group, error)
	TodayList(ctx context.Context, owner task.Owner) (*task.List, error)
}

// Resolver recomputes today-membership for every task of every owner.
// It must run at most once at a time; overlapping runs against the same
// tasks are not safe.
type Resolver struct {
	store Store
	now   func() time.Time
}

func New(s Store) *Resolver {
	return &Resolver{store: s, now: time.Now}
}

// NewAt pins the resolver's clock, for tests and backdated runs.
func NewAt(s Store, now func() time.Time) *Resolver {
	return &Resolver{store: s, now: now}
}

// Run reconciles all users. One user's failure is logged and skipped; a
// failure to enumerate users aborts the whole pass.
func (r *Resolver) Run(ctx context.Context) error {
	users, err := r.store.AllUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	failed := 0
	for _, u := range users {
		if err := r.RunUser(ctx, u.ID); err != nil {
			failed++
			log.Printf("[today] reconcile user %s: %v", u.ID, err)
		}
	}
	log.Printf("[today] reconciled %d users (%d failed)", len(users), failed)
	if failed == len(users) && failed > 0 {
		return fmt.Errorf("reconciliation failed for all %d users", failed)
	}
	return nil
}

// RunUser reconciles one user's today list over every task the user owns
// directly or through group membership. Membership is recomputed from
// scratch, never patched, so re-running for the same day is idempotent.
func (r *Resolver) RunUser(ctx context.Context, userID string) error {
	owners := []task.Owner{task.UserOwner(userID)}
	groups, err := r.store.GroupsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	for _, g := range groups {
		owners = append(owners, task.GroupOwner(g.ID))
	}

	tasks, err := r.store.FindTasks(ctx, store.TaskFilter{Owners: owners})
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	todayList, err := r.store.TodayList(ctx, task.UserOwner(userID))
	if err != nil {
		return fmt.Errorf("load today list: %w", err)
	}

	now := r.now()

	// Phase one: compute the desired flag for every task.
	changed := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		wasToday := t.IsToday
		rolled := r.resolveTask(t, now)
		changed[t.ID] = rolled || t.IsToday != wasToday
	}

	// Phase two: rebuild list membership from the computed flags.
	for _, t := range tasks {
		dirty := changed[t.ID]
		if t.HasList(todayList.ID) != t.IsToday {
			dirty = true
		}
		t.RemoveList(todayList.ID)
		if t.IsToday {
			t.AddList(todayList.ID)
		}
		if !dirty {
			continue
		}
		if err := r.store.SaveTask(ctx, t); err != nil {
			return fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}
	return nil
}

// resolveTask sets t.IsToday for the reference day and reports whether
// the task was otherwise mutated (a cycle roll).
func (r *Resolver) resolveTask(t *task.Task, now time.Time) bool {
	if t.Due == nil && !t.Repeatable {
		t.IsToday = false
		return false
	}

	t.IsToday = dueToday(t, now)

	if t.OccursToday(now) {
		// A rolled cycle starts with a fresh Created stamp, so a task
		// whose cycle already began today rolls at most once per day,
		// no matter how many owner passes visit it.
		if sameDay(t.Created, now) {
			t.IsToday = true
			return false
		}
		task.RollCycle(t, now)
		return true
	}
	return false
}

// dueToday reports whether the task's deadline lands in the reference
// day. With an estimate the deadline is pulled backward by the estimated
// effort, so a long task becomes due early enough to still finish on time.
func dueToday(t *task.Task, now time.Time) bool {
	if t.Due == nil {
		return false
	}
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	deadline := *t.Due
	if t.Estimate > 0 {
		deadline = deadline.Add(-t.Estimate)
	}
	return !deadline.Before(dayStart) && deadline.Before(dayEnd)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
