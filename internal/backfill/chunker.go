package backfill

import (
	"time"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/capture"
)

// maxBatchMessages caps the items of one ingest request.
const maxBatchMessages = 50

// ChunkByDay groups an ordered conversation by UTC calendar day and splits
// days longer than maxBatchMessages. Messages without a timestamp belong to
// the day of the message before them, or fallback when they lead the file.
func ChunkByDay(msgs []ConversationMessage, fallback time.Time) []DayBatch {
	if len(msgs) == 0 {
		return nil
	}

	var batches []DayBatch
	var current *DayBatch
	day := capture.DateString(fallback)

	for _, msg := range msgs {
		if !msg.Timestamp.IsZero() {
			day = capture.DateString(msg.Timestamp)
		}

		if current == nil || current.Date != day || len(current.Messages) >= maxBatchMessages {
			batches = append(batches, DayBatch{Date: day})
			current = &batches[len(batches)-1]
		}
		current.Messages = append(current.Messages, msg)
	}

	return batches
}
