package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/memprobe/pkg/schedule"
)

const captureJob = "capture"

func watchCmd() *cobra.Command {
	var (
		expr    string
		noStore bool
		now     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Capture SPD snapshots on a schedule",
		Long: `Run a capture on a cron schedule until interrupted. Each capture reads all
slots, saves the images to the output directory and records a snapshot.

Schedules use standard 5-field cron syntax or descriptors:
  "*/15 * * * *"  every 15 minutes
  "@hourly"       at the start of every hour
  "@every 30m"    every 30 minutes

Examples:
  memprobe watch
  memprobe --dry-run watch --cron "@every 10s" --now`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if expr == "" {
				expr = cfg.Watch.Cron
			}
			if _, err := schedule.ParseExpr(expr); err != nil {
				return err
			}

			client, source, err := openClient()
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			capture := &schedule.Capture{
				Source:    source,
				Reader:    client,
				Timings:   client,
				OutputDir: cfg.OutputDir,
				Logger:    logger,
			}
			if cfg.Watch.Record && !noStore {
				database, err := openDB()
				if err != nil {
					return err
				}
				defer func() { _ = database.Close() }()
				capture.Store = database
			}

			runner := schedule.NewRunner(logger)
			if err := runner.Add(captureJob, expr, capture.Job()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner.Start()
			if now {
				if err := runner.RunNow(captureJob); err != nil {
					logger.Printf("initial capture failed: %v", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching (%s), next capture at %s. Press Ctrl+C to stop.\n",
				expr, runner.Next(captureJob).Format(time.RFC3339))

			<-ctx.Done()
			runner.Stop(30 * time.Second)
			return nil
		},
	}

	cmd.Flags().StringVar(&expr, "cron", "", "Cron expression (default from config)")
	cmd.Flags().BoolVar(&noStore, "no-record", false, "Do not record snapshots in the database")
	cmd.Flags().BoolVar(&now, "now", false, "Capture once immediately")

	return cmd
}
