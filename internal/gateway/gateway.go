// Package gateway wires the store, the engines, the scheduled jobs and
// the notification channel into one runnable service.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stellarlinkco/dayflow/internal/config"
	"github.com/stellarlinkco/dayflow/internal/cron"
	"github.com/stellarlinkco/dayflow/internal/links"
	"github.com/stellarlinkco/dayflow/internal/notify"
	"github.com/stellarlinkco/dayflow/internal/planner"
	"github.com/stellarlinkco/dayflow/internal/reminder"
	"github.com/stellarlinkco/dayflow/internal/score"
	"github.com/stellarlinkco/dayflow/internal/store"
	"github.com/stellarlinkco/dayflow/internal/task"
	"github.com/stellarlinkco/dayflow/internal/today"
)

// Options for creating a Gateway.
type Options struct {
	Notifier   notify.Notifier // overrides the configured channel
	SignalChan chan os.Signal  // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	store      *store.DB
	notifier   notify.Notifier
	resolver   *today.Resolver
	reminders  *reminder.Service
	planner    *planner.Planner
	links      *links.Manager
	engine     *score.Engine
	cron       *cron.Service
	signalChan chan os.Signal
}

// New creates a Gateway with default options.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing.
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg, signalChan: opts.SignalChan}

	db, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	g.store = db

	g.notifier = opts.Notifier
	if g.notifier == nil {
		if cfg.Channels.Telegram.Enabled {
			tg, err := notify.NewTelegram(cfg.Channels.Telegram.Token, db)
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("init telegram notifier: %w", err)
			}
			g.notifier = tg
		} else {
			g.notifier = notify.LogNotifier{}
		}
	}

	wallet := score.NewWallet(db)
	g.engine = score.NewEngine(db, db, wallet, g.notifier)
	db.SetCompletionHook(func(ctx context.Context, t *task.Task) {
		if _, err := g.engine.OnTaskCompleted(ctx, t); err != nil {
			log.Printf("[gateway] score task %s: %v", t.ID, err)
		}
	})

	g.resolver = today.New(db)
	g.reminders = reminder.New(db, g.notifier)
	g.planner = planner.New(db)
	g.links = links.New(db)

	g.cron = cron.NewService(cfg.Jobs.StatePath)
	g.cron.Add(cron.Job{
		Name: "daily-reconcile",
		Spec: cfg.Jobs.ReconcileSpec,
		Run:  g.resolver.Run,
	})
	g.cron.Add(cron.Job{
		Name: "deadline-reminder",
		Spec: cfg.Jobs.ReminderSpec,
		Run:  g.reminders.Run,
	})

	return g, nil
}

// Store exposes the underlying store to the API layer.
func (g *Gateway) Store() *store.DB { return g.store }

// Resolver exposes the daily reconciliation entry point.
func (g *Gateway) Resolver() *today.Resolver { return g.resolver }

// Planner exposes the on-demand slot scheduler.
func (g *Gateway) Planner() *planner.Planner { return g.planner }

// Links exposes the dependency graph entry points.
func (g *Gateway) Links() *links.Manager { return g.links }

// JobStates reports the persisted last-run state of the scheduled jobs.
func (g *Gateway) JobStates() map[string]cron.JobState { return g.cron.States() }

// Run starts the scheduled jobs and blocks until a termination signal.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.cron.Start(ctx); err != nil {
		return fmt.Errorf("start cron: %w", err)
	}

	log.Printf("[gateway] running, db=%s", g.cfg.Store.DBPath)

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	if err := g.store.Close(); err != nil {
		log.Printf("[gateway] close store warning: %v", err)
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}
