package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/api"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/capture"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/config"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/hermes"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/identity"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/processor"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/recall"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve hook events over NATS and memory tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), config.Load())
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("lightrag-memory starting",
		"port", cfg.Port,
		"auto_ingest", cfg.AutoIngest,
		"auto_recall", cfg.AutoRecall,
		"capture_mode", cfg.CaptureMode,
	)

	client := adapter.NewClient(cfg.BaseURL, cfg.APIKey)
	tracker := identity.NewTracker()
	pipeline := capture.New(client, tracker, capture.Config{
		Mode:      cfg.CaptureMode,
		MinLength: cfg.MinCaptureLength,
	}, slog.Default())
	recaller := recall.New(client, tracker, cfg.MaxRecallResults, slog.Default())

	// Capture journal (optional)
	var (
		journal processor.Journal
		lister  api.CaptureLister
	)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect journal: %w", err)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		journal, lister = db, db
		slog.Info("capture journal connected")
	} else {
		slog.Warn("DATABASE_URL not set, running without capture journal")
	}

	hermesClient, err := hermes.Connect(hermes.Options{URL: cfg.NatsURL, Token: cfg.NatsToken}, slog.Default())
	if err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	proc := processor.New(pipeline, recaller, journal, slog.Default())
	subjects, err := proc.Register(hermesClient, processor.Options{
		SubjectPrefix: cfg.SubjectPrefix,
		AutoIngest:    cfg.AutoIngest,
		AutoRecall:    cfg.AutoRecall,
	})
	if err != nil {
		return err
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, client, lister, func() map[string]any {
		return map[string]any{
			"autoIngest":       cfg.AutoIngest,
			"autoRecall":       cfg.AutoRecall,
			"captureMode":      cfg.CaptureMode,
			"maxRecallResults": cfg.MaxRecallResults,
			"minCaptureLength": cfg.MinCaptureLength,
			"subjects":         subjects,
			"channels":         tracker.Snapshot(),
		}
	})

	// Announce registration
	if err := hermesClient.Publish(hermes.Subject(cfg.SubjectPrefix, hermes.EventRegistered), map[string]any{
		"instance":  uuid.NewString(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
		"subjects":  subjects,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("lightrag-memory ready", "port", cfg.Port, "subjects", subjects)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down, draining hook subscriptions")
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hermesClient.Drain(drainCtx); err != nil {
			slog.Warn("nats drain incomplete", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("lightrag-memory stopped")
	return nil
}
