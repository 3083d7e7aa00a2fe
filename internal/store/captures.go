package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	SourceInbound = "inbound"
	SourceTurn    = "turn"
)

// defaultListLimit bounds ListCaptures when the caller passes no limit.
const defaultListLimit = 50

// CaptureRecord is one journaled capture attempt.
type CaptureRecord struct {
	ID             uuid.UUID `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Channel        string    `json:"channel"`
	Source         string    `json:"source"`
	Outcome        string    `json:"outcome"`
	Items          int       `json:"items"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordCapture inserts a journal row and returns its id.
func (s *Store) RecordCapture(ctx context.Context, rec CaptureRecord) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memory_captures (id, conversation_id, channel, source, outcome, items, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		id, rec.ConversationID, rec.Channel, rec.Source, rec.Outcome, rec.Items, rec.Error,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert capture: %w", err)
	}
	return id, nil
}

// ListCaptures returns the newest journal rows, optionally for one conversation.
func (s *Store) ListCaptures(ctx context.Context, conversationID string, limit int) ([]CaptureRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if conversationID != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, conversation_id, channel, source, outcome, items, error, created_at
			FROM memory_captures
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2`, conversationID, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, conversation_id, channel, source, outcome, items, error, created_at
			FROM memory_captures
			ORDER BY created_at DESC
			LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var out []CaptureRecord
	for rows.Next() {
		var r CaptureRecord
		if err := rows.Scan(&r.ID, &r.ConversationID, &r.Channel, &r.Source, &r.Outcome, &r.Items, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return out, nil
}
