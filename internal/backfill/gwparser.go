package backfill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/capture"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/payload"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/sanitize"
)

// gwLine represents a single line from a Gateway session JSONL file.
type gwLine struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	Message   gwMessage `json:"message"`
}

type gwMessage struct {
	Role    string          `json:"role"`
	Content payload.Payload `json:"content"`
}

// ParseGatewayFile parses a Gateway session JSONL file into sanitized
// conversation messages ordered by timestamp. Text goes through the same
// extraction and sanitizing as live capture, so in mode "all" recalled context
// blocks never reach memory twice. Tool results are not conversation text.
func ParseGatewayFile(path string, mode sanitize.Mode) ([]ConversationMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var msgs []ConversationMessage

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		var line gwLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}

		if line.Type != "message" {
			continue
		}
		if line.Message.Role != capture.RoleUser && line.Message.Role != capture.RoleAssistant {
			continue
		}

		text := sanitize.Captured(payload.Extract(line.Message.Content), mode)
		if text == "" {
			continue
		}

		ts, _ := time.Parse(time.RFC3339Nano, line.Timestamp)
		msgs = append(msgs, ConversationMessage{
			Role:      line.Message.Role,
			Text:      text,
			Timestamp: ts,
			MessageID: line.ID,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	sortChronological(msgs)
	return msgs, nil
}

// sortChronological orders messages by timestamp. An undated message sorts
// with the dated message before it in file order, so it stays attached to
// that message; leading undated messages stay first.
func sortChronological(msgs []ConversationMessage) {
	keys := make([]time.Time, len(msgs))
	order := make([]int, len(msgs))
	var last time.Time
	for i, m := range msgs {
		if !m.Timestamp.IsZero() {
			last = m.Timestamp
		}
		keys[i] = last
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]].Before(keys[order[b]])
	})

	sorted := make([]ConversationMessage, len(msgs))
	for i, idx := range order {
		sorted[i] = msgs[idx]
	}
	copy(msgs, sorted)
}
