package backfill

import "time"

// ConversationMessage is one sanitized message from a session file.
type ConversationMessage struct {
	Role      string // "user" or "assistant"
	Text      string
	Timestamp time.Time
	MessageID string
}

// DayBatch is the slice of a conversation ingested in one request.
type DayBatch struct {
	Date     string // UTC calendar date
	Messages []ConversationMessage
}
