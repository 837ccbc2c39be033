// Package links keeps before/after ordering edges between tasks
// symmetric: whenever A lists B in After, B lists A in Before.
package links

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/stellarlinkco/dayflow/internal/store"
	"github.com/stellarlinkco/dayflow/internal/task"
)

// Store is the slice of the task store the manager needs.
type Store interface {
	GetTask(ctx context.Context, id string) (*task.Task, error)
	SaveTask(ctx context.Context, t *task.Task) error
}

// Manager maintains the ordering edges. Multi-record updates are not
// transactional; a failed save can leave an asymmetric edge behind.
type Manager struct {
	store Store
}

func New(s Store) *Manager {
	return &Manager{store: s}
}

// Link records that each id in beforeIDs comes before the task and each
// id in afterIDs comes after it, on both ends of every edge. Missing
// referenced tasks are logged and skipped. Self-edges are ignored.
func (m *Manager) Link(ctx context.Context, taskID string, beforeIDs, afterIDs []string) error {
	t, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("link %s: %w", taskID, err)
	}

	dirty := false
	for _, id := range beforeIDs {
		if id == taskID {
			continue
		}
		other, err := m.loadNeighbor(ctx, id)
		if err != nil {
			return err
		}
		if other == nil {
			continue
		}
		if addID(&other.After, taskID) {
			if err := m.store.SaveTask(ctx, other); err != nil {
				return fmt.Errorf("save linked task %s: %w", id, err)
			}
		}
		if addID(&t.Before, id) {
			dirty = true
		}
	}
	for _, id := range afterIDs {
		if id == taskID {
			continue
		}
		other, err := m.loadNeighbor(ctx, id)
		if err != nil {
			return err
		}
		if other == nil {
			continue
		}
		if addID(&other.Before, taskID) {
			if err := m.store.SaveTask(ctx, other); err != nil {
				return fmt.Errorf("save linked task %s: %w", id, err)
			}
		}
		if addID(&t.After, id) {
			dirty = true
		}
	}

	if dirty {
		if err := m.store.SaveTask(ctx, t); err != nil {
			return fmt.Errorf("save task %s: %w", taskID, err)
		}
	}
	return nil
}

// Unlink removes the task from every neighbor's edge sets and clears its
// own, typically right before the task is deleted.
func (m *Manager) Unlink(ctx context.Context, taskID string) error {
	t, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("unlink %s: %w", taskID, err)
	}

	neighbors := make([]string, 0, len(t.Before)+len(t.After))
	neighbors = append(neighbors, t.Before...)
	neighbors = append(neighbors, t.After...)

	for _, id := range neighbors {
		other, err := m.loadNeighbor(ctx, id)
		if err != nil {
			return err
		}
		if other == nil {
			continue
		}
		changed := removeID(&other.Before, taskID)
		if removeID(&other.After, taskID) {
			changed = true
		}
		if changed {
			if err := m.store.SaveTask(ctx, other); err != nil {
				return fmt.Errorf("save unlinked task %s: %w", id, err)
			}
		}
	}

	if len(t.Before) > 0 || len(t.After) > 0 {
		t.Before = nil
		t.After = nil
		if err := m.store.SaveTask(ctx, t); err != nil {
			return fmt.Errorf("save task %s: %w", taskID, err)
		}
	}
	return nil
}

// Reconcile diffs the task's current edges against the requested sets,
// unlinking only removed edges and linking only added ones. This is the
// entry point for task edits: it touches the minimum set of records.
func (m *Manager) Reconcile(ctx context.Context, taskID string, newBefore, newAfter []string) error {
	t, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", taskID, err)
	}

	removedBefore := diff(t.Before, newBefore)
	removedAfter := diff(t.After, newAfter)
	addedBefore := diff(newBefore, t.Before)
	addedAfter := diff(newAfter, t.After)

	for _, id := range removedBefore {
		other, err := m.loadNeighbor(ctx, id)
		if err != nil {
			return err
		}
		if other == nil {
			continue
		}
		if removeID(&other.After, taskID) {
			if err := m.store.SaveTask(ctx, other); err != nil {
				return fmt.Errorf("save unlinked task %s: %w", id, err)
			}
		}
	}
	for _, id := range removedAfter {
		other, err := m.loadNeighbor(ctx, id)
		if err != nil {
			return err
		}
		if other == nil {
			continue
		}
		if removeID(&other.Before, taskID) {
			if err := m.store.SaveTask(ctx, other); err != nil {
				return fmt.Errorf("save unlinked task %s: %w", id, err)
			}
		}
	}

	dirty := false
	for _, id := range removedBefore {
		if removeID(&t.Before, id) {
			dirty = true
		}
	}
	for _, id := range removedAfter {
		if removeID(&t.After, id) {
			dirty = true
		}
	}
	if dirty {
		if err := m.store.SaveTask(ctx, t); err != nil {
			return fmt.Errorf("save task %s: %w", taskID, err)
		}
	}

	if len(addedBefore) > 0 || len(addedAfter) > 0 {
		return m.Link(ctx, taskID, addedBefore, addedAfter)
	}
	return nil
}

// loadNeighbor fetches a referenced task, mapping not-found to a logged
// skip (nil, nil).
func (m *Manager) loadNeighbor(ctx context.Context, id string) (*task.Task, error) {
	other, err := m.store.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[links] referenced task %s not found, skipping", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load linked task %s: %w", id, err)
	}
	return other, nil
}

func addID(ids *[]string, id string) bool {
	for _, existing := range *ids {
		if existing == id {
			return false
		}
	}
	*ids = append(*ids, id)
	return true
}

func removeID(ids *[]string, id string) bool {
	for i, existing := range *ids {
		if existing == id {
			*ids = append((*ids)[:i], (*ids)[i+1:]...)
			return true
		}
	}
	return false
}

// diff returns the elements of a not present in b.
func diff(a, b []string) []string {
	var out []string
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			out = append(out, x)
		}
	}
	return out
}
