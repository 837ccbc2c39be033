// Package cron runs the engine's scheduled jobs: the nightly today-list
// reconciliation and the deadline reminder sweep.
package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. Jobs must not overlap themselves;
// the underlying runner skips a tick while the previous one is running.
type Job struct {
	Name string
	Spec string // standard 5-field cron expression
	Run  func(ctx context.Context) error
}

// JobState is the persisted outcome of a job's last run.
type JobState struct {
	LastRunAt  time.Time `json:"lastRunAt"`
	LastStatus string    `json:"lastStatus"` // "ok" or "error"
	LastError  string    `json:"lastError,omitempty"`
}

// Service wraps the cron runner and keeps per-job state on disk so
// `dayflow status` can report it across restarts.
type Service struct {
	statePath string
	mu        sync.Mutex
	jobs      []Job
	states    map[string]JobState
	cron      *rcron.Cron
	cancel    context.CancelFunc
}

func NewService(statePath string) *Service {
	return &Service{
		statePath: statePath,
		states:    make(map[string]JobState),
	}
}

// Add registers a job. Must be called before Start.
func (s *Service) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel

	if err := s.load(); err != nil {
		log.Printf("[cron] warning: failed to load job state: %v", err)
	}

	s.cron = rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DefaultLogger)))
	for i := range s.jobs {
		job := s.jobs[i]
		if _, err := s.cron.AddFunc(job.Spec, func() {
			s.executeJob(runCtx, job)
		}); err != nil {
			s.mu.Unlock()
			cancel()
			return fmt.Errorf("register job %s (%s): %w", job.Name, job.Spec, err)
		}
	}
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("[cron] started with %d jobs", n)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Service) executeJob(ctx context.Context, job Job) {
	log.Printf("[cron] executing job %s", job.Name)
	err := job.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	state := JobState{LastRunAt: time.Now(), LastStatus: "ok"}
	if err != nil {
		state.LastStatus = "error"
		state.LastError = err.Error()
		log.Printf("[cron] job %s error: %v", job.Name, err)
	}
	s.states[job.Name] = state
	_ = s.save()
}

func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if s.cron != nil {
		stopCtx := s.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			log.Printf("[cron] stop timeout waiting for running jobs")
		}
	}
	log.Printf("[cron] stopped")
}

// States returns a copy of the per-job run states.
func (s *Service) States() map[string]JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		if err := s.load(); err != nil {
			log.Printf("[cron] warning: failed to load job state: %v", err)
		}
	}
	out := make(map[string]JobState, len(s.states))
	for name, st := range s.states {
		out[name] = st
	}
	return out
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.states)
}

func (s *Service) save() error {
	dir := filepath.Dir(s.statePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.states, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.statePath, data, 0644)
}
