package cron

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "jobs.json")
}

func TestStart_InvalidSpec(t *testing.T) {
	s := NewService(statePath(t))
	s.Add(Job{Name: "bad", Spec: "not a cron spec", Run: func(context.Context) error { return nil }})

	err := s.Start(context.Background())
	if err == nil {
		t.Fatal("expected error for an invalid cron spec")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("error %q should name the failing job", err)
	}
}

func TestStartStop(t *testing.T) {
	s := NewService(statePath(t))
	s.Add(Job{Name: "noop", Spec: "0 3 * * *", Run: func(context.Context) error { return nil }})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	s.Stop()
	// Stopping twice must not panic.
	s.Stop()
}

func TestExecuteJob_PersistsState(t *testing.T) {
	path := statePath(t)
	s := NewService(path)

	s.executeJob(context.Background(), Job{
		Name: "ok-job",
		Run:  func(context.Context) error { return nil },
	})
	s.executeJob(context.Background(), Job{
		Name: "bad-job",
		Run:  func(context.Context) error { return errors.New("boom") },
	})

	states := s.States()
	ok, found := states["ok-job"]
	if !found || ok.LastStatus != "ok" || ok.LastError != "" {
		t.Errorf("ok-job state = %+v, want ok", ok)
	}
	bad, found := states["bad-job"]
	if !found || bad.LastStatus != "error" || bad.LastError != "boom" {
		t.Errorf("bad-job state = %+v, want error boom", bad)
	}
	if time.Since(bad.LastRunAt) > time.Minute {
		t.Errorf("LastRunAt = %s, want recent", bad.LastRunAt)
	}

	// A fresh service reads the same state back from disk.
	reloaded := NewService(path).States()
	if got := reloaded["bad-job"]; got.LastStatus != "error" || got.LastError != "boom" {
		t.Errorf("reloaded bad-job state = %+v, want error boom", got)
	}
}

func TestStates_ReturnsCopy(t *testing.T) {
	s := NewService(statePath(t))
	s.executeJob(context.Background(), Job{
		Name: "job",
		Run:  func(context.Context) error { return nil },
	})

	states := s.States()
	states["job"] = JobState{LastStatus: "tampered"}

	if got := s.States()["job"]; got.LastStatus != "ok" {
		t.Errorf("state = %+v, caller mutation leaked in", got)
	}
}
