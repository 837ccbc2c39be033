package store

import (
	"context"
	"errors"
	"time"

	"github.com/stellarlinkco/dayflow/internal/task"
)

// ErrNotFound reports an absent task, user, group or list. Batch callers
// treat it as a per-record skip, never as a fatal condition.
var ErrNotFound = errors.New("store: not found")

// TaskFilter selects tasks in FindTasks. Zero-value fields are ignored.
type TaskFilter struct {
	Owners     []task.Owner // match any of these owners
	Repeatable *bool
	Done       *bool
	DueFrom    *time.Time // inclusive
	DueTo      *time.Time // exclusive
	OrderByDue bool
}

// CompletionHook is invoked after a save whose IsDone flag flipped
// false to true.
type CompletionHook func(ctx context.Context, t *task.Task)
