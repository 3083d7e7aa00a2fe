package backfill

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/sanitize"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeIngester struct {
	calls []adapter.IngestRequest
	err   error
}

func (f *fakeIngester) Ingest(_ context.Context, req adapter.IngestRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

func writeSession(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeLines(t, path, []string{
		`{"type":"session","version":3,"id":"s1","timestamp":"2026-02-09T07:30:00Z"}`,
		`{"type":"message","id":"m1","timestamp":"2026-02-09T07:30:01Z","message":{"role":"user","content":"Plan the release checklist"}}`,
		`{"type":"message","id":"m2","timestamp":"2026-02-09T07:30:05Z","message":{"role":"assistant","content":[{"type":"text","text":"Checklist drafted with five steps."}]}}`,
		`{"type":"message","id":"m3","timestamp":"2026-02-09T07:31:00Z","message":{"role":"user","content":"ok"}}`,
		`{"type":"message","id":"m4","timestamp":"2026-02-10T09:00:00Z","message":{"role":"user","content":"Did the release go out?"}}`,
	})
	return path
}

func newTestRunner(cfg Config, ing *fakeIngester) *Runner {
	cfg.Mode = sanitize.ModeAll
	if cfg.MinLength == 0 {
		cfg.MinLength = 10
	}
	r := NewRunner(cfg, ing, discardLogger())
	r.now = func() time.Time { return time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestRunner_IngestsPerDay(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "chat-42.jsonl")
	ing := &fakeIngester{}

	r := newTestRunner(Config{
		Dir:       dir,
		Channel:   "telegram",
		StatePath: filepath.Join(t.TempDir(), "state.json"),
	}, ing)

	summary, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(ing.calls) != 2 {
		t.Fatalf("expected 2 day batches, got %d", len(ing.calls))
	}
	first := ing.calls[0]
	if first.ConversationID != "telegram:chat-42" || first.Channel != "telegram" || first.Date != "2026-02-09" {
		t.Errorf("unexpected first request: %+v", first)
	}
	if len(first.Items) != 2 {
		t.Fatalf("expected short message dropped, got %d items", len(first.Items))
	}
	if first.Items[1].Sender != "assistant" || first.Items[1].TS != "2026-02-09T07:30:05.000Z" || first.Items[1].MessageID != "m2" {
		t.Errorf("unexpected assistant item: %+v", first.Items[1])
	}
	if ing.calls[1].Date != "2026-02-10" {
		t.Errorf("expected second day batch, got %q", ing.calls[1].Date)
	}

	if summary.Batches != 2 || summary.Items != 3 || summary.Errors != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestRunner_ResumesFromState(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "a.jsonl")
	statePath := filepath.Join(t.TempDir(), "state.json")

	ing := &fakeIngester{}
	cfg := Config{Dir: dir, Channel: "slack", StatePath: statePath}
	if _, err := newTestRunner(cfg, ing).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	calls := len(ing.calls)

	writeSession(t, dir, "b.jsonl")
	if _, err := newTestRunner(cfg, ing).Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := len(ing.calls) - calls; got != 2 {
		t.Errorf("expected only the new file ingested (2 batches), got %d", got)
	}
	for _, c := range ing.calls[calls:] {
		if c.ConversationID != "slack:b" {
			t.Errorf("unexpected conversation on resume: %q", c.ConversationID)
		}
	}
}

func TestRunner_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "a.jsonl")
	statePath := filepath.Join(t.TempDir(), "state.json")
	ing := &fakeIngester{}

	summary, err := newTestRunner(Config{Dir: dir, Channel: "slack", StatePath: statePath, DryRun: true}, ing).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ing.calls) != 0 {
		t.Errorf("dry run must not ingest, got %d calls", len(ing.calls))
	}
	if summary.Batches != 2 || !summary.DryRun {
		t.Errorf("dry run should still report batches: %+v", summary)
	}

	state, err := LoadState(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.FilesProcessed) != 0 {
		t.Errorf("dry run must not persist progress, got %v", state.FilesProcessed)
	}
}

func TestRunner_IngestFailureLeavesFilePending(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "a.jsonl")
	statePath := filepath.Join(t.TempDir(), "state.json")
	ing := &fakeIngester{err: errors.New("request failed: 500")}

	summary, err := newTestRunner(Config{Dir: dir, Channel: "slack", StatePath: statePath}, ing).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Errors != 2 {
		t.Errorf("expected one error per batch, got %d", summary.Errors)
	}

	state, err := LoadState(statePath)
	if err != nil {
		t.Fatal(err)
	}
	if state.IsProcessed(path) {
		t.Error("failed file should stay pending")
	}
	if len(state.Errors) != 2 {
		t.Errorf("expected errors recorded in state, got %v", state.Errors)
	}
}

func TestRunner_SkipCronOnly(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "cron.jsonl"), []string{
		`{"type":"message","id":"m1","timestamp":"2026-02-09T07:30:01Z","message":{"role":"user","content":"[cron:daily] Run the morning briefing"}}`,
		`{"type":"message","id":"m2","timestamp":"2026-02-09T07:30:05Z","message":{"role":"assistant","content":"Briefing delivered to the channel."}}`,
	})
	ing := &fakeIngester{}

	_, err := newTestRunner(Config{Dir: dir, Channel: "slack", StatePath: filepath.Join(t.TempDir(), "s.json"), SkipCron: true}, ing).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ing.calls) != 0 {
		t.Errorf("cron-only conversation should be skipped, got %d calls", len(ing.calls))
	}
}

func TestRunner_DateRange(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "a.jsonl")
	ing := &fakeIngester{}

	cfg := Config{
		Dir:       dir,
		Channel:   "slack",
		StatePath: filepath.Join(t.TempDir(), "s.json"),
		Since:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := newTestRunner(cfg, ing).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ing.calls) != 0 {
		t.Errorf("file outside range should be skipped, got %d calls", len(ing.calls))
	}
}

func TestRunner_MissingDir(t *testing.T) {
	r := newTestRunner(Config{Dir: filepath.Join(t.TempDir(), "nope"), StatePath: filepath.Join(t.TempDir(), "s.json")}, &fakeIngester{})
	if _, err := r.Run(context.Background()); err == nil {
		t.Error("expected error for missing sessions dir")
	}
}

func TestFormatDailySummary(t *testing.T) {
	text := FormatDailySummary(&Summary{
		Files: []FileSummary{
			{Path: "/x/a.jsonl", ConversationID: "slack:a", Date: "2026-02-09", Batches: 2, Items: 7},
			{Path: "/x/b.jsonl", ConversationID: "slack:b", Date: "2026-02-08", Batches: 1, Items: 3, Errors: 1},
			{Path: "/x/c.jsonl", ConversationID: "slack:c"},
		},
		Batches: 3,
		Items:   10,
		Errors:  1,
		DryRun:  true,
	})

	if strings.Index(text, "2026-02-08") > strings.Index(text, "2026-02-09") {
		t.Error("dates should be sorted")
	}
	for _, want := range []string{"a.jsonl [slack:a]: 2 batches, 7 items", "(1 errors)", "skipped (1 files", "Total: 3 files", "DRY RUN"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}
