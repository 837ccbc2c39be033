// Package notify delivers short out-of-band messages to users. Delivery
// failures never affect the correctness of the engines that send them.
package notify

import (
	"context"
	"log"
)

// Kind classifies a notification for the receiving channel.
type Kind string

const (
	KindReminder   Kind = "reminder"
	KindCompletion Kind = "completion"
	KindReward     Kind = "reward"
	KindSummary    Kind = "summary"
)

// Notifier is the outbound collaborator the engines call. Implementations
// are black boxes and may fail independently.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, kind Kind) error
}

// LogNotifier writes notifications to the process log. It is the
// fallback when no channel is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID, message string, kind Kind) error {
	log.Printf("[notify] %s -> %s: %s", kind, userID, message)
	return nil
}
