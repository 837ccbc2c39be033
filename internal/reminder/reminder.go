// Package reminder nags owners about tasks whose deadline is close.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/stellarlinkco/dayflow/internal/notify"
	"github.com/stellarlinkco/dayflow/internal/store"
	"github.com/stellarlinkco/dayflow/internal/task"
)

// Horizon is how far ahead the deadline job looks.
const Horizon = 24 * time.Hour

// Store is the slice of the task store the reminder job needs.
type Store interface {
	FindTasks(ctx context.Context, f store.TaskFilter) ([]*task.Task, error)
	AllUsers(ctx context.Context) ([]*task.User, error)
	GroupsForUser(ctx context.Context, userID string) ([]*task.Group, error)
}

type Service struct {
	store    Store
	notifier notify.Notifier
	now      func() time.Time
}

func New(s Store, n notify.Notifier) *Service {
	if n == nil {
		n = notify.LogNotifier{}
	}
	return &Service{store: s, notifier: n, now: time.Now}
}

func NewAt(s Store, n notify.Notifier, now func() time.Time) *Service {
	svc := New(s, n)
	svc.now = now
	return svc
}

// Run sends each user one reminder per not-done task due within the
// horizon. One user's failure is logged and the rest proceed.
func (s *Service) Run(ctx context.Context) error {
	users, err := s.store.AllUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	for _, u := range users {
		if err := s.remindUser(ctx, u.ID); err != nil {
			log.Printf("[reminder] user %s: %v", u.ID, err)
		}
	}
	return nil
}

func (s *Service) remindUser(ctx context.Context, userID string) error {
	owners := []task.Owner{task.UserOwner(userID)}
	groups, err := s.store.GroupsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	for _, g := range groups {
		owners = append(owners, task.GroupOwner(g.ID))
	}

	now := s.now()
	until := now.Add(Horizon)
	notDone := false
	tasks, err := s.store.FindTasks(ctx, store.TaskFilter{
		Owners:     owners,
		Done:       &notDone,
		DueFrom:    &now,
		DueTo:      &until,
		OrderByDue: true,
	})
	if err != nil {
		return fmt.Errorf("load due tasks: %w", err)
	}

	for _, t := range tasks {
		msg := fmt.Sprintf("%q is due %s", t.Title, t.Due.Format("Mon 15:04"))
		if err := s.notifier.Notify(ctx, userID, msg, notify.KindReminder); err != nil {
			log.Printf("[reminder] notify %s about %s: %v", userID, t.ID, err)
		}
	}
	return nil
}
