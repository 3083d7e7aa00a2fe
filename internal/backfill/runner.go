package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/capture"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/identity"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/sanitize"
)

const defaultParseWorkers = 4

// Config holds the backfill command configuration.
type Config struct {
	Dir        string
	SingleFile string // process a single file only
	Channel    string // channel the sessions belong to, e.g. "telegram"
	Mode       sanitize.Mode
	MinLength  int
	Since      time.Time
	Until      time.Time
	DryRun     bool
	StatePath  string
	SkipCron   bool // skip conversations with no human messages
	Workers    int  // concurrent file parsers
}

// FileSummary is the outcome for one session file.
type FileSummary struct {
	Path           string
	ConversationID string
	Date           string // first day ingested
	Batches        int
	Items          int
	Errors         int
}

// Summary is the outcome of a run.
type Summary struct {
	Files   []FileSummary
	Batches int
	Items   int
	Errors  int
	DryRun  bool
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg      Config
	ingester capture.Ingester
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a backfill runner.
func NewRunner(cfg Config, ing capture.Ingester, logger *slog.Logger) *Runner {
	if cfg.MinLength < 1 {
		cfg.MinLength = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaultParseWorkers
	}
	return &Runner{
		cfg:      cfg,
		ingester: ing,
		logger:   logger,
		now:      time.Now,
	}
}

type parsedFile struct {
	path string
	msgs []ConversationMessage
	err  error
}

// Run imports every pending session file. Parse and ingest failures are
// recorded in the state and summary; only setup errors and cancellation are
// returned.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}

	var pending []string
	for _, path := range files {
		if !state.IsProcessed(path) {
			pending = append(pending, path)
		}
	}
	r.logger.Info("files discovered", "total", len(files), "pending", len(pending))

	parsed, err := r.parseAll(ctx, pending)
	if err != nil {
		return nil, err
	}

	state.FilesRemaining = len(parsed)
	summary := &Summary{DryRun: r.cfg.DryRun}

	for _, pf := range parsed {
		if err := ctx.Err(); err != nil {
			r.logger.Info("backfill interrupted, saving state")
			r.saveState(state)
			return summary, err
		}

		if pf.err != nil {
			r.logger.Warn("failed to parse gateway file", "path", pf.path, "error", pf.err)
			state.AddError(fmt.Sprintf("parse %s: %v", pf.path, pf.err))
			summary.Errors++
			continue
		}

		fs := r.processFile(ctx, pf, state)
		summary.Files = append(summary.Files, fs)
		summary.Batches += fs.Batches
		summary.Items += fs.Items
		summary.Errors += fs.Errors

		if fs.Errors == 0 && !r.cfg.DryRun {
			state.MarkProcessed(pf.path)
		}
		state.FilesRemaining--
		r.saveState(state)
	}

	r.saveState(state)
	r.logger.Info("backfill complete",
		"files", len(summary.Files),
		"batches", summary.Batches,
		"items", summary.Items,
		"errors", summary.Errors,
		"dry_run", r.cfg.DryRun,
	)
	return summary, nil
}

// parseAll parses files concurrently. Results keep the input order.
func (r *Runner) parseAll(ctx context.Context, paths []string) ([]parsedFile, error) {
	out := make([]parsedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			msgs, err := ParseGatewayFile(path, r.cfg.Mode)
			out[i] = parsedFile{path: path, msgs: msgs, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runner) processFile(ctx context.Context, pf parsedFile, state *BackfillState) FileSummary {
	channel := identity.ChannelBase(r.cfg.Channel)
	stem := strings.TrimSuffix(filepath.Base(pf.path), filepath.Ext(pf.path))
	fs := FileSummary{
		Path:           pf.path,
		ConversationID: identity.Normalize(channel, stem),
	}

	msgs := r.eligible(pf.msgs)
	if len(msgs) == 0 {
		r.logger.Debug("skipping file", "path", pf.path, "reason", "no eligible messages")
		return fs
	}
	if r.cfg.SkipCron && !hasHumanMessages(msgs) {
		r.logger.Debug("skipping file", "path", pf.path, "reason", "no human messages")
		return fs
	}
	if !r.inDateRange(msgs) {
		return fs
	}

	for _, batch := range ChunkByDay(msgs, r.now()) {
		if fs.Date == "" {
			fs.Date = batch.Date
		}
		req := adapter.IngestRequest{
			ConversationID: fs.ConversationID,
			Channel:        channel,
			Date:           batch.Date,
			Items:          ingestItems(batch.Messages),
		}

		if !r.cfg.DryRun {
			if err := r.ingester.Ingest(ctx, req); err != nil {
				r.logger.Error("ingest failed", "conversation_id", fs.ConversationID, "date", batch.Date, "error", err)
				state.AddError(fmt.Sprintf("ingest %s %s: %v", fs.ConversationID, batch.Date, err))
				fs.Errors++
				continue
			}
			state.BatchesIngested++
			state.ItemsIngested += len(req.Items)
		}

		fs.Batches++
		fs.Items += len(req.Items)
		r.logger.Info("batch processed",
			"conversation_id", fs.ConversationID,
			"date", batch.Date,
			"items", len(req.Items),
			"dry_run", r.cfg.DryRun,
		)
	}
	return fs
}

// eligible clips messages and drops those under the minimum length.
func (r *Runner) eligible(msgs []ConversationMessage) []ConversationMessage {
	out := make([]ConversationMessage, 0, len(msgs))
	for _, m := range msgs {
		m.Text = sanitize.Clip(m.Text, sanitize.DefaultClipChars)
		if sanitize.Len(m.Text) >= r.cfg.MinLength {
			out = append(out, m)
		}
	}
	return out
}

func ingestItems(msgs []ConversationMessage) []adapter.IngestItem {
	items := make([]adapter.IngestItem, len(msgs))
	for i, m := range msgs {
		items[i] = adapter.IngestItem{
			Role:      m.Role,
			Content:   m.Text,
			MessageID: m.MessageID,
		}
		if !m.Timestamp.IsZero() {
			items[i].TS = capture.ISOString(m.Timestamp)
		}
		if m.Role == capture.RoleAssistant {
			items[i].Sender = capture.RoleAssistant
		}
	}
	return items
}

func (r *Runner) saveState(state *BackfillState) {
	if r.cfg.DryRun {
		return
	}
	if err := state.Save(); err != nil {
		r.logger.Warn("failed to save backfill state", "path", state.Path(), "error", err)
	}
}

// FormatDailySummary formats file summaries grouped by first ingested day.
func FormatDailySummary(s *Summary) string {
	byDate := make(map[string][]FileSummary)
	for _, f := range s.Files {
		date := f.Date
		if date == "" {
			date = "skipped"
		}
		byDate[date] = append(byDate[date], f)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var sb strings.Builder
	sb.WriteString("=== Backfill Summary ===\n")
	for _, date := range dates {
		files := byDate[date]
		items := 0
		for _, f := range files {
			items += f.Items
		}
		fmt.Fprintf(&sb, "\n%s (%d files, %d items)\n", date, len(files), items)
		for _, f := range files {
			fmt.Fprintf(&sb, "  - %s [%s]: %d batches, %d items", filepath.Base(f.Path), f.ConversationID, f.Batches, f.Items)
			if f.Errors > 0 {
				fmt.Fprintf(&sb, " (%d errors)", f.Errors)
			}
			sb.WriteString("\n")
		}
	}
	fmt.Fprintf(&sb, "\nTotal: %d files, %d batches, %d items, %d errors\n", len(s.Files), s.Batches, s.Items, s.Errors)
	if s.DryRun {
		sb.WriteString("Mode: DRY RUN (nothing ingested)\n")
	}
	return sb.String()
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		path := expandHome(r.cfg.SingleFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("single file not found: %s", path)
		}
		return []string{path}, nil
	}

	dir := expandHome(r.cfg.Dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("sessions dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sessions dir %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// hasHumanMessages checks that the conversation has at least one non-cron user message.
func hasHumanMessages(msgs []ConversationMessage) bool {
	for _, m := range msgs {
		if m.Role == capture.RoleUser && !strings.HasPrefix(m.Text, "[cron:") {
			return true
		}
	}
	return false
}

// inDateRange checks if any message falls within the configured since/until range.
func (r *Runner) inDateRange(msgs []ConversationMessage) bool {
	if r.cfg.Since.IsZero() && r.cfg.Until.IsZero() {
		return true
	}

	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			continue
		}
		if !r.cfg.Since.IsZero() && m.Timestamp.Before(r.cfg.Since) {
			continue
		}
		if !r.cfg.Until.IsZero() && m.Timestamp.After(r.cfg.Until) {
			continue
		}
		return true
	}
	return false
}
