package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stellarlinkco/dayflow/internal/task"
)

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// encodeJSON marshals a nullable value, mapping nil to SQL NULL.
func encodeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if r, ok := v.(*task.Rule); ok && r == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// encodeJSONSlice marshals a slice, mapping nil to "[]" so columns stay
// NOT NULL.
func encodeJSONSlice(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

func newListID() string { return uuid.NewString() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                      task.Task
		ownerKind              string
		created                string
		due, started, complete sql.NullString
		estimate, timeSpent    int64
		urgent, done           int64
		isStarted, isToday     int64
		repeatable             int64
		rule                   sql.NullString
		history, before, after string
		lists, steps           string
	)

	err := row.Scan(&t.ID, &t.Title, &ownerKind, &t.Owner.ID, &created, &due,
		&estimate, &t.Priority, &t.Difficulty, &urgent, &done, &isStarted,
		&isToday, &started, &complete, &timeSpent, &repeatable, &rule,
		&t.Streak, &t.BestStreak, &history, &before, &after, &lists, &steps)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.Owner.Kind = task.OwnerKind(ownerKind)
	if t.Created, err = decodeTime(created); err != nil {
		return nil, fmt.Errorf("decode created: %w", err)
	}
	if t.Due, err = decodeTimeNull(due); err != nil {
		return nil, fmt.Errorf("decode due: %w", err)
	}
	if t.Started, err = decodeTimeNull(started); err != nil {
		return nil, fmt.Errorf("decode started: %w", err)
	}
	if t.Completed, err = decodeTimeNull(complete); err != nil {
		return nil, fmt.Errorf("decode completed: %w", err)
	}
	t.Estimate = time.Duration(estimate)
	t.TimeSpent = time.Duration(timeSpent)
	t.Urgent = urgent != 0
	t.IsDone = done != 0
	t.IsStarted = isStarted != 0
	t.IsToday = isToday != 0
	t.Repeatable = repeatable != 0

	if rule.Valid {
		var r task.Rule
		if err := json.Unmarshal([]byte(rule.String), &r); err != nil {
			return nil, fmt.Errorf("decode rule: %w", err)
		}
		t.Rule = &r
	}
	if err := json.Unmarshal([]byte(history), &t.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if err := json.Unmarshal([]byte(before), &t.Before); err != nil {
		return nil, fmt.Errorf("decode before ids: %w", err)
	}
	if err := json.Unmarshal([]byte(after), &t.After); err != nil {
		return nil, fmt.Errorf("decode after ids: %w", err)
	}
	if err := json.Unmarshal([]byte(lists), &t.Lists); err != nil {
		return nil, fmt.Errorf("decode list ids: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &t.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	return &t, nil
}

func decodeTimeNull(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := decodeTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
