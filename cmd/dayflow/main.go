package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/dayflow/internal/config"
	"github.com/stellarlinkco/dayflow/internal/gateway"
	"github.com/stellarlinkco/dayflow/internal/notify"
	"github.com/stellarlinkco/dayflow/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "dayflow",
	Short: "dayflow - task lifecycle engine",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service (scheduled jobs + notifications)",
	RunE:  runServe,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one today-list reconciliation pass and exit",
	RunE:  runReconcile,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and database",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dayflow status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(serveCmd, reconcileCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(context.Background())
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	defer func() { _ = gw.Shutdown() }()
	return gw.Resolver().Run(cmd.Context())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Printf("config already exists at %s\n", config.ConfigPath())
	} else {
		if err := config.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", config.ConfigPath())
	}

	db, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	defer db.Close()
	fmt.Printf("database ready at %s\n", cfg.Store.DBPath)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("config:   %s\n", config.ConfigPath())
	fmt.Printf("database: %s", cfg.Store.DBPath)
	if _, err := os.Stat(cfg.Store.DBPath); err != nil {
		fmt.Printf(" (missing, run 'dayflow onboard')")
	}
	fmt.Println()
	fmt.Printf("jobs:     reconcile %q, reminder %q\n",
		cfg.Jobs.ReconcileSpec, cfg.Jobs.ReminderSpec)
	fmt.Printf("telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)

	// Status must not reach out to telegram; force the log notifier.
	gw, err := gateway.NewWithOptions(cfg, gateway.Options{Notifier: notify.LogNotifier{}})
	if err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer func() { _ = gw.Shutdown() }()
	for name, st := range gw.JobStates() {
		fmt.Printf("  %s: last run %s (%s)\n",
			name, st.LastRunAt.Format("2006-01-02 15:04:05"), st.LastStatus)
	}
	return nil
}
