package score

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

// Wallet is the default currency awarder: a probabilistic coin grant
// credited to the user's balance.
type Wallet struct {
	users UserStore
	roll  func() float64 // uniform in [0, 1)
}

func NewWallet(users UserStore) *Wallet {
	return &Wallet{users: users, roll: rand.Float64}
}

// NewWalletWithRoll injects the random source, for tests.
func NewWalletWithRoll(users UserStore, roll func() float64) *Wallet {
	return &Wallet{users: users, roll: roll}
}

// CalculateReward returns the coin value of a drop for a given streak.
// Young streaks pay out more; long streaks decay slowly toward a floor
// of half a coin.
func CalculateReward(streak int) float64 {
	if streak <= 5 {
		return 2 - 0.2*float64(streak)
	}
	return math.Max(0.5, 1-float64(streak-2)*0.01)
}

// AwardCurrency rolls the chance and, on success, credits the user with
// the streak-derived reward, returning the amount granted (0 on a miss).
func (w *Wallet) AwardCurrency(ctx context.Context, userID string, chance float64, streak int) (float64, error) {
	if chance <= 0 {
		return 0, nil
	}
	if chance < 1 && w.roll() >= chance {
		return 0, nil
	}

	amount := CalculateReward(streak)
	u, err := w.users.GetUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	u.Coins += amount
	if err := w.users.SaveUser(ctx, u); err != nil {
		return 0, fmt.Errorf("save user coins: %w", err)
	}
	return amount, nil
}
