package task

import (
	"strings"
	"time"
)

// Interval is how often a repeating task recurs.
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
	Yearly  Interval = "yearly"
)

// Anchor pins a monthly or yearly rule to the start or end of its period.
type Anchor string

const (
	AnchorStart Anchor = "start"
	AnchorEnd   Anchor = "end"
)

// Rule describes when a repeating task recurs.
type Rule struct {
	Interval Interval `json:"interval"`
	// Days holds weekday names ("monday".."sunday") for weekly rules.
	Days []string `json:"days,omitempty"`
	// Anchor applies to monthly and yearly rules.
	Anchor Anchor `json:"anchor,omitempty"`
	// Until, when set, deactivates the rule for any later date.
	Until *time.Time `json:"until,omitempty"`
	// MaxRepeats, when positive, deactivates the rule once that many
	// cycles have been archived.
	MaxRepeats int `json:"maxRepeats,omitempty"`
}

// OccursOn reports whether date is an occurrence day for the rule.
// It is a pure predicate; Until and MaxRepeats are checked by Active.
func (r *Rule) OccursOn(date time.Time) bool {
	switch r.Interval {
	case Daily:
		return true
	case Weekly:
		name := strings.ToLower(date.Weekday().String())
		for _, d := range r.Days {
			if strings.ToLower(d) == name {
				return true
			}
		}
		return false
	case Monthly:
		switch r.Anchor {
		case AnchorEnd:
			return date.Day() == lastDayOfMonth(date)
		default:
			return date.Day() == 1
		}
	case Yearly:
		switch r.Anchor {
		case AnchorEnd:
			return date.Month() == time.December && date.Day() == 31
		default:
			return date.Month() == time.January && date.Day() == 1
		}
	}
	return false
}

// Active reports whether the rule still applies on date given how many
// cycles have already been archived.
func (r *Rule) Active(date time.Time, repeats int) bool {
	if r.Until != nil && date.After(*r.Until) {
		return false
	}
	if r.MaxRepeats > 0 && repeats >= r.MaxRepeats {
		return false
	}
	return true
}

// OccursToday combines the active check with the occurrence predicate
// for a task's own rule. Non-repeating tasks never occur.
func (t *Task) OccursToday(date time.Time) bool {
	if !t.Repeatable || t.Rule == nil {
		return false
	}
	if !t.Rule.Active(date, len(t.History)) {
		return false
	}
	return t.Rule.OccursOn(date)
}

func lastDayOfMonth(date time.Time) int {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return first.AddDate(0, 1, -1).Day()
}
