// Command engineserver runs the workflow engine's control-plane API,
// channel webhooks, and execution dispatch. Structured as a cobra root
// command with serve/worker/migrate subcommands, the idiom the pack's own
// CLIs (NGOClaw's gateway cmd/cli, semspec's cmd/semspec) use for a
// multi-mode process entrypoint, in place of goa-ai's own single-shot
// demo main.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/convoflow/workflow-engine/internal/config"
	"github.com/convoflow/workflow-engine/internal/store/postgres"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "engineserver",
		Short: "Multi-tenant conversational workflow engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the control-plane API, channel webhooks, and inline execution dispatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "worker",
		Short: "Run execution dispatch without the HTTP API, for a dedicated worker fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	go func() { _ = a.dispatcher.RunDelayWorker(ctx) }()

	if a.temporalEg != nil {
		if err := a.temporalEg.StartWorker(ctx); err != nil {
			return fmt.Errorf("engineserver: start temporal worker: %w", err)
		}
	}

	server := buildAPIServer(a)
	server.Start(ctx)
	a.log.Info(ctx, "engineserver: serving", "host", cfg.Server.Host, "port", cfg.Server.Port)

	<-ctx.Done()
	a.log.Info(ctx, "engineserver: shutting down")
	return server.Stop(context.Background())
}

func runWorker(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	go func() { _ = a.dispatcher.RunDelayWorker(ctx) }()

	if a.temporalEg != nil {
		if err := a.temporalEg.StartWorker(ctx); err != nil {
			return fmt.Errorf("engineserver: start temporal worker: %w", err)
		}
	}

	a.log.Info(ctx, "engineserver: worker running")
	<-ctx.Done()
	a.log.Info(ctx, "engineserver: worker shutting down")
	return nil
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if _, err := postgres.Open(cfg.Database.DSN); err != nil {
		return fmt.Errorf("engineserver: migrate: %w", err)
	}
	fmt.Println("engineserver: schema is up to date")
	return nil
}
