package task

import (
	"fmt"
	"math/rand"
	"sort"
)

// Priority and Difficulty are free-form labels mapped onto fixed ordinal
// scales for sorting. The empty string means unset and sorts last.
type Priority string

const (
	PriorityVeryHigh Priority = "VERY HIGH"
	PriorityHigh     Priority = "HIGH"
	PriorityNormal   Priority = "NORMAL"
	PriorityLow      Priority = "LOW"
	PriorityVeryLow  Priority = "VERY LOW"
)

type Difficulty string

const (
	DifficultyVeryHard Difficulty = "VERY HARD"
	DifficultyHard     Difficulty = "HARD"
	DifficultyNormal   Difficulty = "NORMAL"
	DifficultyEasy     Difficulty = "EASY"
	DifficultyVeryEasy Difficulty = "VERY EASY"
)

var priorityRank = map[Priority]int{
	PriorityVeryHigh: 5,
	PriorityHigh:     4,
	PriorityNormal:   3,
	PriorityLow:      2,
	PriorityVeryLow:  1,
	"":               0,
}

var difficultyRank = map[Difficulty]int{
	DifficultyVeryHard: 5,
	DifficultyHard:     4,
	DifficultyNormal:   3,
	DifficultyEasy:     2,
	DifficultyVeryEasy: 1,
	"":                 0,
}

// Sort attributes accepted by SortTasks.
const (
	ByPriority      = "priority"
	ByDifficulty    = "difficulty"
	ByEstimatedTime = "estimatedTime"
	ByUrgent        = "urgent"
	ByRandom        = "random"
)

const (
	Ascending  = "ascending"
	Descending = "descending"
)

// ErrUnknownAttribute rejects sort requests for attributes this package
// does not order by.
type ErrUnknownAttribute struct {
	Attribute string
}

func (e *ErrUnknownAttribute) Error() string {
	return fmt.Sprintf("unknown sort attribute %q", e.Attribute)
}

// SortTasks returns tasks ordered by the given attribute. The default
// direction is descending; ascending reverses it, except for "urgent",
// whose ordering is fixed (urgent tasks always come first).
//
// "estimatedTime" is special: its natural order is shortest-first, with
// missing estimates last. "random" shuffles fresh on every call.
func SortTasks(tasks []*Task, attribute, direction string) ([]*Task, error) {
	out := make([]*Task, len(tasks))
	copy(out, tasks)

	switch attribute {
	case ByPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return priorityRank[out[i].Priority] > priorityRank[out[j].Priority]
		})
	case ByDifficulty:
		sort.SliceStable(out, func(i, j int) bool {
			return difficultyRank[out[i].Difficulty] > difficultyRank[out[j].Difficulty]
		})
	case ByEstimatedTime:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Estimate, out[j].Estimate
			if a == 0 {
				return false
			}
			if b == 0 {
				return true
			}
			return a < b
		})
	case ByUrgent:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Urgent && !out[j].Urgent
		})
		return out, nil
	case ByRandom:
		rand.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
		return out, nil
	default:
		return nil, &ErrUnknownAttribute{Attribute: attribute}
	}

	if direction == Ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}
