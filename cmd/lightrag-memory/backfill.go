package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/backfill"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/config"
)

const backfillLongDesc string = `Import historical gateway session transcripts into memory.

Each JSONL file is one conversation named after the file. Messages go through
the same sanitizing as live capture and are ingested once per UTC day.
Progress is kept in a state file so interrupted runs resume.

Examples:
  lightrag-memory backfill --dir ~/.openclaw/agents/main/sessions --channel telegram
  lightrag-memory backfill --file ./session.jsonl --channel slack --dry-run
  lightrag-memory backfill --dir ./sessions --channel discord --since 2026-01-01`

type backfillCommander struct {
	dir       string
	file      string
	channel   string
	statePath string
	since     string
	until     string
	dryRun    bool
	skipCron  bool
	workers   int
}

func newBackfillCmd() *cobra.Command {
	cmder := &backfillCommander{}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Import gateway session transcripts into memory",
		Long:  backfillLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd, config.Load())
		},
	}

	cmd.Flags().StringVar(&cmder.dir, "dir", "", "Directory of session JSONL files")
	cmd.Flags().StringVar(&cmder.file, "file", "", "Process a single session file")
	cmd.Flags().StringVar(&cmder.channel, "channel", "", "Channel the sessions belong to (e.g. telegram)")
	cmd.Flags().StringVar(&cmder.statePath, "state", backfill.DefaultStatePath, "Progress state file")
	cmd.Flags().StringVar(&cmder.since, "since", "", "Only files with messages on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.until, "until", "", "Only files with messages before the end of this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&cmder.dryRun, "dry-run", false, "Report batches without ingesting")
	cmd.Flags().BoolVar(&cmder.skipCron, "skip-cron", true, "Skip conversations with no human messages")
	cmd.Flags().IntVar(&cmder.workers, "workers", 4, "Concurrent file parsers")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func (c *backfillCommander) run(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	setupLogging(cfg.LogLevel)

	if c.dir == "" && c.file == "" {
		return errors.New("one of --dir or --file is required")
	}
	if !c.dryRun {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	since, err := parseDay(c.since)
	if err != nil {
		return fmt.Errorf("--since: %w", err)
	}
	until, err := parseDay(c.until)
	if err != nil {
		return fmt.Errorf("--until: %w", err)
	}
	if !until.IsZero() {
		until = until.Add(24*time.Hour - time.Nanosecond)
	}

	if c.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run mode: nothing will be ingested")
	}

	runner := backfill.NewRunner(backfill.Config{
		Dir:        c.dir,
		SingleFile: c.file,
		Channel:    c.channel,
		Mode:       cfg.CaptureMode,
		MinLength:  cfg.MinCaptureLength,
		Since:      since,
		Until:      until,
		DryRun:     c.dryRun,
		StatePath:  c.statePath,
		SkipCron:   c.skipCron,
		Workers:    c.workers,
	}, adapter.NewClient(cfg.BaseURL, cfg.APIKey), slog.Default())

	summary, err := runner.Run(ctx)
	if summary != nil {
		fmt.Fprint(cmd.OutOrStdout(), backfill.FormatDailySummary(summary))
	}
	return err
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
