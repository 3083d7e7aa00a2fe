// Package capture turns completed chat turns and inbound messages into
// ingestion requests for the memory adapter.
package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/identity"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/payload"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/sanitize"
)

// Ingester submits ingestion requests.
type Ingester interface {
	Ingest(ctx context.Context, req adapter.IngestRequest) error
}

// Outcome is what a capture attempt did.
type Outcome string

const (
	OutcomeCaptured        Outcome = "captured"
	OutcomeSkipInvalid     Outcome = "skipped_invalid"
	OutcomeSkipEmpty       Outcome = "skipped_empty"
	OutcomeSkipShort       Outcome = "skipped_short"
	OutcomeSkipNoAssistant Outcome = "skipped_no_assistant"
	OutcomeSkipDuplicate   Outcome = "skipped_duplicate"
	OutcomeFailed          Outcome = "failed"
)

// Result describes a capture attempt. Err is set only for OutcomeFailed and
// has already been logged.
type Result struct {
	Outcome        Outcome
	ConversationID string
	Channel        string
	Items          int
	Err            error
}

// Config holds the capture policy.
type Config struct {
	Mode      sanitize.Mode
	MinLength int
}

// TurnEvent is a completed agent turn.
type TurnEvent struct {
	// ChannelHint names the channel the turn ran on (message provider or channel id).
	ChannelHint string
	Success     bool
	Messages    []Message
}

// InboundEvent is a message received from a user before the agent runs.
type InboundEvent struct {
	ChannelID      string
	ConversationID string
	AccountID      string
	From           string
	Content        payload.Payload
	// Timestamp is epoch seconds or milliseconds; zero when the host sent none.
	Timestamp float64
	MessageID string
}

// Pipeline captures conversation text. It owns the per-conversation dedup
// signatures and shares the channel tracker with recall. Hosts are expected to
// deliver events of one conversation in order.
type Pipeline struct {
	ingester Ingester
	tracker  *identity.Tracker
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	signatures map[string]string // conversation id -> last captured assistant signature
}

func New(ing Ingester, tracker *identity.Tracker, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.MinLength < 1 {
		cfg.MinLength = 1
	}
	return &Pipeline{
		ingester:   ing,
		tracker:    tracker,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		signatures: make(map[string]string),
	}
}

// CaptureTurn ingests the last turn of a completed agent run. Only turns with
// an assistant reply are captured, and a turn whose last assistant reply was
// already captured for the conversation is skipped.
func (p *Pipeline) CaptureTurn(ctx context.Context, evt TurnEvent) Result {
	channel := identity.ChannelBase(evt.ChannelHint)
	res := Result{Channel: channel}

	if !evt.Success || len(evt.Messages) == 0 {
		p.logger.Debug("capture skip", "reason", "invalid or empty event", "channel", channel)
		res.Outcome = OutcomeSkipInvalid
		return res
	}

	conversation, ok := p.tracker.Last(channel)
	if !ok {
		conversation = channel + ":" + identity.Unknown
	}
	res.ConversationID = identity.Normalize(channel, conversation)

	var texts []Text
	for _, t := range ExtractTurnTexts(SelectTurn(evt.Messages), p.cfg.Mode) {
		t.Text = sanitize.Clip(t.Text, sanitize.DefaultClipChars)
		if sanitize.Len(t.Text) >= p.cfg.MinLength {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		p.logger.Debug("capture skip", "reason", "no eligible text", "conversation_id", res.ConversationID)
		res.Outcome = OutcomeSkipEmpty
		return res
	}

	lastAssistant := ""
	for i := len(texts) - 1; i >= 0; i-- {
		if texts[i].Role == RoleAssistant {
			lastAssistant = texts[i].Text
			break
		}
	}
	if lastAssistant == "" {
		p.logger.Debug("capture skip", "reason", "no assistant output in last turn", "conversation_id", res.ConversationID)
		res.Outcome = OutcomeSkipNoAssistant
		return res
	}

	if !p.markCaptured(res.ConversationID, Signature(res.ConversationID, lastAssistant)) {
		p.logger.Debug("capture skip", "reason", "duplicate assistant output", "conversation_id", res.ConversationID)
		res.Outcome = OutcomeSkipDuplicate
		return res
	}

	now := p.now()
	items := make([]adapter.IngestItem, len(texts))
	for i, t := range texts {
		items[i] = adapter.IngestItem{
			Role:    t.Role,
			Content: t.Text,
			TS:      ISOString(now),
		}
		if t.Role == RoleAssistant {
			items[i].Sender = RoleAssistant
		}
	}

	return p.submit(ctx, res, adapter.IngestRequest{
		ConversationID: res.ConversationID,
		Channel:        channel,
		Date:           DateString(now),
		Items:          items,
	})
}

// CaptureInbound records the conversation of an inbound message and ingests
// its text as a single user item.
func (p *Pipeline) CaptureInbound(ctx context.Context, evt InboundEvent) Result {
	channel := identity.ChannelBase(evt.ChannelID)
	conversation := identity.Resolve(channel, evt.ConversationID, evt.From, evt.AccountID)
	p.tracker.Remember(channel, conversation)

	res := Result{Channel: channel, ConversationID: conversation}

	text := sanitize.Captured(payload.Extract(evt.Content), p.cfg.Mode)
	if text == "" {
		res.Outcome = OutcomeSkipEmpty
		return res
	}
	if sanitize.Len(text) < p.cfg.MinLength {
		p.logger.Debug("inbound skip", "reason", "below minimum length", "conversation_id", conversation)
		res.Outcome = OutcomeSkipShort
		return res
	}

	item := adapter.IngestItem{
		Role:      RoleUser,
		Content:   text,
		Sender:    evt.From,
		MessageID: evt.MessageID,
	}
	at := p.now()
	if evt.Timestamp != 0 {
		at = NormalizeTimestamp(evt.Timestamp, at)
		item.TS = ISOString(at)
	}

	return p.submit(ctx, res, adapter.IngestRequest{
		ConversationID: conversation,
		Channel:        channel,
		Date:           DateString(at),
		Items:          []adapter.IngestItem{item},
	})
}

func (p *Pipeline) submit(ctx context.Context, res Result, req adapter.IngestRequest) Result {
	res.Items = len(req.Items)
	if err := p.ingester.Ingest(ctx, req); err != nil {
		p.logger.Warn("capture failed",
			"conversation_id", res.ConversationID,
			"channel", res.Channel,
			"error", err,
		)
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}

	p.logger.Info("capture ok",
		"conversation_id", res.ConversationID,
		"channel", res.Channel,
		"items", res.Items,
	)
	res.Outcome = OutcomeCaptured
	return res
}

// Signature identifies an assistant reply within a conversation.
func Signature(conversationID, assistantText string) string {
	return conversationID + "|assistant|" + assistantText
}

// markCaptured stores sig for the conversation and reports whether it differs
// from the one stored before. The signature is kept even if submission later
// fails, so a redelivered event is not ingested twice.
func (p *Pipeline) markCaptured(conversationID, sig string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signatures[conversationID] == sig {
		return false
	}
	p.signatures[conversationID] = sig
	return true
}
