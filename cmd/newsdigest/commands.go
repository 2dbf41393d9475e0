package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"NewsDigest/internal/app"
	"NewsDigest/internal/config"
	"NewsDigest/internal/logging"
)

type appFunc func(ctx context.Context, cmd *cobra.Command, a *app.Application) error

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "newsdigest",
		Short: "Feed ingestion, scraping and AI summaries with notifications",
		Long: `newsdigest reads RSS feeds and listing pages, extracts article text,
summarizes it with an AI model and delivers the digest to Discord or Telegram.

Configuration is read from the YAML file named by NEWSDIGEST_CONFIG, then
overridden by environment variables (a .env file is loaded when present).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var drain bool
	work := &cobra.Command{
		Use:   "work",
		Short: "Run the worker pool",
		RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app.Application) error {
			return a.Work(ctx, drain)
		}),
	}
	work.Flags().BoolVar(&drain, "drain", false, "process until the queue is empty, then exit")

	root.AddCommand(
		&cobra.Command{
			Use:   "discover",
			Short: "Run discovery sweeps on the configured schedule",
			RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app.Application) error {
				return a.Discover(ctx)
			}),
		},
		work,
		&cobra.Command{
			Use:   "run",
			Short: "Run discovery and workers in one process",
			RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app.Application) error {
				return a.Run(ctx)
			}),
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the articles table",
			RunE: withApp(func(ctx context.Context, _ *cobra.Command, a *app.Application) error {
				return a.Migrate(ctx)
			}),
		},
		&cobra.Command{
			Use:   "probe",
			Short: "Check the browser debugging endpoint",
			RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.Application) error {
				version, err := a.Probe(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (protocol %s)\n", version.Browser, version.ProtocolVersion)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show queue depth and stored article counts",
			RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app.Application) error {
				status, err := a.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued:   %d\nstored:   %d\nnotified: %d\n",
					status.QueueDepth, status.Stored, status.Notified)
				return nil
			}),
		},
	)

	return root
}

// withApp loads configuration and builds the application before fn runs.
func withApp(fn appFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger := logging.New(cfg.Logging.Level)

		application := app.New(cfg, logger)
		defer func() {
			if err := application.Close(); err != nil {
				logger.Warn("close adapters", "error", err)
			}
		}()

		if err := fn(cmd.Context(), cmd, application); err != nil {
			logger.Error("command failed", "command", cmd.Name(), "error", err)
			return err
		}
		return nil
	}
}
