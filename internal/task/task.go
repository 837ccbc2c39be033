package task

import (
	"time"

	"github.com/google/uuid"
)

// OwnerKind discriminates user-owned from group-owned records.
type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGroup OwnerKind = "group"
)

// Owner identifies who a task, list or score belongs to.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func UserOwner(id string) Owner  { return Owner{Kind: OwnerUser, ID: id} }
func GroupOwner(id string) Owner { return Owner{Kind: OwnerGroup, ID: id} }

// Step is an ordered sub-item of a task.
type Step struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// CompletedCycle is one archived start-to-completion span of a repeating task.
type CompletedCycle struct {
	Started   time.Time     `json:"started"`
	Completed time.Time     `json:"completed"`
	TimeSpent time.Duration `json:"timeSpent"`
}

type Task struct {
	ID      string
	Title   string
	Owner   Owner
	Created time.Time

	Due      *time.Time    // deadline; set manually or by the planner
	Estimate time.Duration // 0 means no estimate

	Priority   Priority
	Difficulty Difficulty
	Urgent     bool

	IsDone    bool
	IsStarted bool
	IsToday   bool
	Started   *time.Time
	Completed *time.Time
	TimeSpent time.Duration

	// Recurrence. Rule is non-nil only while Repeatable is true.
	Repeatable bool
	Rule       *Rule
	Streak     int
	BestStreak int
	History    []CompletedCycle

	// Ordering edges, kept symmetric by the links manager.
	Before []string
	After  []string

	// Container list ids. At most one of them is the owner's "today" list.
	Lists []string

	Steps []Step
}

func New(title string, owner Owner) *Task {
	return &Task{
		ID:      uuid.NewString(),
		Title:   title,
		Owner:   owner,
		Created: time.Now(),
	}
}

// SetRepeatable toggles recurrence. Turning it off clears every
// recurrence-specific field so no cycle state survives the switch.
func (t *Task) SetRepeatable(repeatable bool, rule *Rule) {
	t.Repeatable = repeatable
	if repeatable {
		t.Rule = rule
		return
	}
	t.Rule = nil
	t.Streak = 0
	t.BestStreak = 0
	t.History = nil
}

// DoneSteps counts completed sub-items.
func (t *Task) DoneSteps() int {
	n := 0
	for _, s := range t.Steps {
		if s.Done {
			n++
		}
	}
	return n
}

func (t *Task) HasList(listID string) bool {
	for _, id := range t.Lists {
		if id == listID {
			return true
		}
	}
	return false
}

func (t *Task) AddList(listID string) {
	if !t.HasList(listID) {
		t.Lists = append(t.Lists, listID)
	}
}

func (t *Task) RemoveList(listID string) {
	for i, id := range t.Lists {
		if id == listID {
			t.Lists = append(t.Lists[:i], t.Lists[i+1:]...)
			return
		}
	}
}

// User is a person with a cumulative score and a coin balance.
type User struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Coins  float64 `json:"coins"`
	ChatID string  `json:"chatId,omitempty"` // telegram chat for notifications
}

// Group is a set of users. OwnerID is the member currency resolves to.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	OwnerID string   `json:"ownerId"`
	Members []string `json:"members"`
}

// TodayListName is the reserved name of the per-owner list that the
// daily reconciliation rebuilds. Membership in it is never edited by hand.
const TodayListName = "today"

// List is a named task container owned by a user or group.
type List struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner Owner  `json:"owner"`
}

func (l *List) IsToday() bool { return l.Name == TodayListName }
