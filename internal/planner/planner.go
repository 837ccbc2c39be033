// Package planner assigns tasks to concrete time slots inside a fixed
// daily working window, greedily and without overlap.
package planner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stellarlinkco/dayflow/internal/store"
	"github.com/stellarlinkco/dayflow/internal/task"
)

// Working window, local time. Slots never start before WindowStart and
// never end after WindowEnd.
const (
	WindowStart = 9 * time.Hour
	WindowEnd   = 20 * time.Hour
)

// Store is the slice of the task store the planner needs.
type Store interface {
	FindTasks(ctx context.Context, f store.TaskFilter) ([]*task.Task, error)
	SaveTask(ctx context.Context, t *task.Task) error
}

// Planner places tasks into day slots. It must not run concurrently with
// the daily reconciliation over the same tasks; both write due dates and
// today flags.
type Planner struct {
	store Store
	now   func() time.Time
}

func New(s Store) *Planner {
	return &Planner{store: s, now: time.Now}
}

func NewAt(s Store, now func() time.Time) *Planner {
	return &Planner{store: s, now: now}
}

// Schedule assigns each task, in input order, the earliest slot that fits
// its estimate without overlapping already-scheduled work, starting today
// and advancing day by day. maxPerDay caps how many scheduled tasks one
// calendar day may hold; zero means no cap.
//
// The day pointer deliberately carries over between tasks instead of
// resetting, so assigned days never decrease along the input. Callers
// control which tasks get the early slots by pre-sorting the input.
func (p *Planner) Schedule(ctx context.Context, tasks []*task.Task, maxPerDay int) ([]*task.Task, error) {
	now := p.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, t := range tasks {
		slot, nextDay, err := p.place(ctx, t, day, maxPerDay)
		if err != nil {
			return nil, fmt.Errorf("schedule task %s: %w", t.ID, err)
		}
		day = nextDay

		t.Due = &slot
		t.IsToday = sameDay(slot, now)
		if err := p.store.SaveTask(ctx, t); err != nil {
			return nil, fmt.Errorf("save scheduled task %s: %w", t.ID, err)
		}
		log.Printf("[planner] %s -> %s", t.ID, slot.Format(time.RFC3339))
	}
	return tasks, nil
}

// place finds the first free slot for t starting at day, returning the
// slot start and the day the search ended on.
func (p *Planner) place(ctx context.Context, t *task.Task, day time.Time, maxPerDay int) (time.Time, time.Time, error) {
	if t.Estimate > WindowEnd-WindowStart {
		return time.Time{}, day, fmt.Errorf("estimate %s exceeds the working window", t.Estimate)
	}

	repeatable := false
	for {
		winStart := day.Add(WindowStart)
		winEnd := day.Add(WindowEnd)

		existing, err := p.store.FindTasks(ctx, store.TaskFilter{
			Repeatable: &repeatable,
			DueFrom:    &winStart,
			DueTo:      &winEnd,
			OrderByDue: true,
		})
		if err != nil {
			return time.Time{}, day, fmt.Errorf("load scheduled tasks: %w", err)
		}

		if maxPerDay > 0 && len(existing) >= maxPerDay {
			day = day.AddDate(0, 0, 1)
			continue
		}

		cursor := winStart
		for _, e := range existing {
			if e.ID == t.ID {
				continue
			}
			if !cursor.Add(t.Estimate).After(*e.Due) {
				break
			}
			busyEnd := e.Due.Add(e.Estimate)
			if busyEnd.After(cursor) {
				cursor = busyEnd
			}
		}

		if !cursor.Add(t.Estimate).After(winEnd) {
			return cursor, day, nil
		}
		day = day.AddDate(0, 0, 1)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
