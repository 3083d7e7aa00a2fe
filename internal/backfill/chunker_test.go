package backfill

import (
	"testing"
	"time"
)

func makeMessages(n int, start time.Time, gap time.Duration) []ConversationMessage {
	msgs := make([]ConversationMessage, n)
	for i := range msgs {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs[i] = ConversationMessage{
			Role:      role,
			Text:      "message text",
			Timestamp: start.Add(time.Duration(i) * gap),
		}
	}
	return msgs
}

var day1 = time.Date(2026, 2, 9, 7, 30, 0, 0, time.UTC)

func TestChunkByDay_SingleDay(t *testing.T) {
	batches := ChunkByDay(makeMessages(5, day1, time.Minute), time.Time{})

	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].Date != "2026-02-09" || len(batches[0].Messages) != 5 {
		t.Errorf("unexpected batch: %s with %d messages", batches[0].Date, len(batches[0].Messages))
	}
}

func TestChunkByDay_SplitsOnDayBoundary(t *testing.T) {
	// 07:30 + 6h steps: 07:30, 13:30, 19:30, 01:30 next day, 07:30 next day
	batches := ChunkByDay(makeMessages(5, day1, 6*time.Hour), time.Time{})

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Date != "2026-02-09" || len(batches[0].Messages) != 3 {
		t.Errorf("batch 0: %s with %d messages", batches[0].Date, len(batches[0].Messages))
	}
	if batches[1].Date != "2026-02-10" || len(batches[1].Messages) != 2 {
		t.Errorf("batch 1: %s with %d messages", batches[1].Date, len(batches[1].Messages))
	}
}

func TestChunkByDay_SplitsLongDays(t *testing.T) {
	batches := ChunkByDay(makeMessages(120, day1, time.Second), time.Time{})

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches for 120 messages, got %d", len(batches))
	}
	for i, want := range []int{50, 50, 20} {
		if len(batches[i].Messages) != want {
			t.Errorf("batch %d: expected %d messages, got %d", i, want, len(batches[i].Messages))
		}
		if batches[i].Date != "2026-02-09" {
			t.Errorf("batch %d: unexpected date %s", i, batches[i].Date)
		}
	}
}

func TestChunkByDay_MissingTimestamps(t *testing.T) {
	msgs := []ConversationMessage{
		{Role: "user", Text: "no time yet"},
		{Role: "assistant", Text: "dated", Timestamp: day1.Add(24 * time.Hour)},
		{Role: "user", Text: "follows dated"},
	}
	fallback := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	batches := ChunkByDay(msgs, fallback)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Date != "2026-01-01" || len(batches[0].Messages) != 1 {
		t.Errorf("leading undated message should use fallback day, got %+v", batches[0])
	}
	if batches[1].Date != "2026-02-10" || len(batches[1].Messages) != 2 {
		t.Errorf("undated message should follow previous day, got %+v", batches[1])
	}
}

func TestChunkByDay_Empty(t *testing.T) {
	if batches := ChunkByDay(nil, day1); batches != nil {
		t.Errorf("expected nil, got %v", batches)
	}
}
