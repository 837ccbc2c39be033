package task

import "time"

// CycleOutcome says how RollCycle closed the previous cycle.
type CycleOutcome int

const (
	CycleCompleted CycleOutcome = iota
	CycleAbandoned
	CycleUntouched
)

// RollCycle closes a repeating task's open cycle at an occurrence-day
// boundary and opens a fresh one. The caller invokes it at most once per
// task per day, and only when the task occurs on that day.
//
// A task's progress fields describe exactly one open cycle; crossing the
// boundary always closes it, successfully or not, so no partial progress
// leaks into the next occurrence.
func RollCycle(t *Task, now time.Time) CycleOutcome {
	outcome := CycleUntouched

	switch {
	case t.Completed != nil:
		started := now
		if t.Started != nil {
			started = *t.Started
		}
		t.History = append(t.History, CompletedCycle{
			Started:   started,
			Completed: *t.Completed,
			TimeSpent: t.TimeSpent,
		})
		if t.Streak <= 0 {
			t.Streak = 1
		} else {
			t.Streak++
		}
		if t.Streak > t.BestStreak {
			t.BestStreak = t.Streak
		}
		outcome = CycleCompleted

	case t.Started != nil:
		// Started but never finished: a missed cycle.
		t.Streak = 0
		outcome = CycleAbandoned

	default:
		t.Streak = 0
	}

	t.Started = nil
	t.Completed = nil
	t.IsDone = false
	t.IsStarted = false
	t.TimeSpent = 0
	t.Created = now
	t.IsToday = true

	return outcome
}
