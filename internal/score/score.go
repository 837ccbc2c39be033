// Package score converts completion events into points and currency.
package score

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/stellarlinkco/dayflow/internal/notify"
	"github.com/stellarlinkco/dayflow/internal/task"
)

const maxTaskScore = 20

// UserStore is the slice of the store the engine needs.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*task.User, error)
	SaveUser(ctx context.Context, u *task.User) error
}

// GroupStore resolves group ownership for score distribution.
type GroupStore interface {
	GetGroup(ctx context.Context, id string) (*task.Group, error)
}

// Awarder is the currency collaborator. It rolls the given chance and,
// on success, credits the user and returns the amount granted.
type Awarder interface {
	AwardCurrency(ctx context.Context, userID string, chance float64, streak int) (float64, error)
}

// Engine scores completed tasks and distributes points and currency to
// the task's owner, or to every member when a group owns the task.
type Engine struct {
	users    UserStore
	groups   GroupStore
	wallet   Awarder
	notifier notify.Notifier
}

func NewEngine(users UserStore, groups GroupStore, wallet Awarder, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Engine{users: users, groups: groups, wallet: wallet, notifier: notifier}
}

// Score computes the point value of a completed task. Not-done tasks
// score zero.
func Score(t *task.Task) float64 {
	if !t.IsDone {
		return 0
	}
	if t.Repeatable {
		return 1*math.Pow(1.05, float64(t.Streak)) + 0.1*float64(len(t.History))
	}

	s := 1.0
	if t.Due != nil {
		s++
		if t.Completed != nil && !t.Completed.After(*t.Due) {
			s += 4
		}
	}
	if t.Estimate > 0 {
		s++
		if t.TimeSpent <= t.Estimate {
			s += 3
		}
	}
	s += float64(t.DoneSteps())
	s *= 1 + 0.05*t.TimeSpent.Hours()
	return math.Min(s, maxTaskScore)
}

// Chance computes the currency probability for a completed task.
func Chance(t *task.Task) float64 {
	if !t.IsDone {
		return 0
	}
	if t.Repeatable {
		return math.Min(0.01*float64(t.Streak), 0.2)
	}
	return Score(t) / 100
}

// OnTaskCompleted is the store's completion hook: invoked exactly once
// per false-to-true transition of IsDone. It returns the score granted
// per user.
func (e *Engine) OnTaskCompleted(ctx context.Context, t *task.Task) (float64, error) {
	if !t.IsDone {
		return 0, nil
	}

	points := Score(t)
	chance := Chance(t)

	switch t.Owner.Kind {
	case task.OwnerUser:
		if _, err := e.rewardAmount(ctx, t, t.Owner.ID, points, chance); err != nil {
			return points, err
		}
	case task.OwnerGroup:
		g, err := e.groups.GetGroup(ctx, t.Owner.ID)
		if err != nil {
			return points, fmt.Errorf("resolve group owner: %w", err)
		}
		// A group completion is shared: once one member's roll succeeds,
		// the rest are awarded unconditionally.
		chance += 0.03
		won := false
		for _, memberID := range g.Members {
			memberChance := chance
			if won {
				memberChance = 1
			}
			gotCoins, err := e.rewardAmount(ctx, t, memberID, points, memberChance)
			if err != nil {
				log.Printf("[score] reward member %s: %v", memberID, err)
				continue
			}
			if gotCoins > 0 {
				won = true
			}
		}
	default:
		return points, fmt.Errorf("unknown owner kind %q", t.Owner.Kind)
	}
	return points, nil
}

// rewardAmount adds points to the user's score and rolls for currency,
// returning the coins granted.
func (e *Engine) rewardAmount(ctx context.Context, t *task.Task, userID string, points, chance float64) (float64, error) {
	u, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	u.Score += points
	if err := e.users.SaveUser(ctx, u); err != nil {
		return 0, fmt.Errorf("save user score: %w", err)
	}

	msg := fmt.Sprintf("%q done: +%.1f points", t.Title, points)
	if err := e.notifier.Notify(ctx, userID, msg, notify.KindCompletion); err != nil {
		log.Printf("[score] notify %s: %v", userID, err)
	}

	coins, err := e.wallet.AwardCurrency(ctx, userID, chance, t.Streak)
	if err != nil {
		return 0, fmt.Errorf("award currency: %w", err)
	}
	if coins > 0 {
		msg := fmt.Sprintf("you found %.2f coins", coins)
		if err := e.notifier.Notify(ctx, userID, msg, notify.KindReward); err != nil {
			log.Printf("[score] notify %s: %v", userID, err)
		}
	}
	return coins, nil
}
