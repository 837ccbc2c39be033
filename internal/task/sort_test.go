package task

import (
	"errors"
	"testing"
	"time"
)

func tasksWithPriorities(ps ...Priority) []*Task {
	out := make([]*Task, len(ps))
	for i, p := range ps {
		out[i] = New(string(p), UserOwner("u1"))
		out[i].Priority = p
	}
	return out
}

func TestSortTasks_PriorityDescending(t *testing.T) {
	in := tasksWithPriorities(PriorityHigh, PriorityVeryHigh, PriorityNormal, "", PriorityLow)

	got, err := SortTasks(in, ByPriority, Descending)
	if err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}

	want := []Priority{PriorityVeryHigh, PriorityHigh, PriorityNormal, PriorityLow, ""}
	for i, p := range want {
		if got[i].Priority != p {
			t.Errorf("got[%d].Priority = %q, want %q", i, got[i].Priority, p)
		}
	}
}

func TestSortTasks_PriorityAscending(t *testing.T) {
	in := tasksWithPriorities(PriorityHigh, PriorityVeryHigh, PriorityLow)

	got, err := SortTasks(in, ByPriority, Ascending)
	if err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}

	want := []Priority{PriorityLow, PriorityHigh, PriorityVeryHigh}
	for i, p := range want {
		if got[i].Priority != p {
			t.Errorf("got[%d].Priority = %q, want %q", i, got[i].Priority, p)
		}
	}
}

func TestSortTasks_EstimatedTimeShortestFirst(t *testing.T) {
	a := New("a", UserOwner("u1"))
	a.Estimate = 2 * time.Hour
	b := New("b", UserOwner("u1"))
	b.Estimate = 30 * time.Minute
	c := New("c", UserOwner("u1")) // no estimate

	got, err := SortTasks([]*Task{a, c, b}, ByEstimatedTime, Descending)
	if err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}

	if got[0] != b || got[1] != a || got[2] != c {
		t.Errorf("order = [%s %s %s], want [b a c] (missing estimate last)",
			got[0].Title, got[1].Title, got[2].Title)
	}
}

func TestSortTasks_UrgentIgnoresDirection(t *testing.T) {
	a := New("calm", UserOwner("u1"))
	b := New("urgent", UserOwner("u1"))
	b.Urgent = true

	for _, dir := range []string{Descending, Ascending} {
		got, err := SortTasks([]*Task{a, b}, ByUrgent, dir)
		if err != nil {
			t.Fatalf("SortTasks(%s) error: %v", dir, err)
		}
		if !got[0].Urgent {
			t.Errorf("direction %s: urgent task should stay first", dir)
		}
	}
}

func TestSortTasks_RandomKeepsAllTasks(t *testing.T) {
	in := tasksWithPriorities(PriorityHigh, PriorityLow, PriorityNormal, "")

	got, err := SortTasks(in, ByRandom, Descending)
	if err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("len = %d, want %d", len(got), len(in))
	}
	seen := make(map[*Task]bool)
	for _, tk := range got {
		seen[tk] = true
	}
	for _, tk := range in {
		if !seen[tk] {
			t.Errorf("task %q missing after shuffle", tk.Title)
		}
	}
}

func TestSortTasks_UnknownAttribute(t *testing.T) {
	_, err := SortTasks(nil, "color", Descending)
	if err == nil {
		t.Fatal("expected error for unknown attribute")
	}
	var unknown *ErrUnknownAttribute
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want ErrUnknownAttribute", err)
	}
	if unknown.Attribute != "color" {
		t.Errorf("attribute = %q, want color", unknown.Attribute)
	}
}

func TestSortTasks_DoesNotMutateInput(t *testing.T) {
	in := tasksWithPriorities(PriorityLow, PriorityVeryHigh)
	first := in[0]

	if _, err := SortTasks(in, ByPriority, Descending); err != nil {
		t.Fatalf("SortTasks error: %v", err)
	}
	if in[0] != first {
		t.Error("input slice order should be untouched")
	}
}
