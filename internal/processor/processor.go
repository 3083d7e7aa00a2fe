// Package processor dispatches chat host hook deliveries to the capture and
// recall pipelines.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/capture"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/hermes"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/recall"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/store"
)

// Journal records capture outcomes. It is optional.
type Journal interface {
	RecordCapture(ctx context.Context, rec store.CaptureRecord) (uuid.UUID, error)
}

// Bus is the hook transport.
type Bus interface {
	Subscribe(subject string, handler hermes.Handler) error
	Respond(subject string, handler hermes.ReplyHandler) error
}

// Options selects which hooks Register wires.
type Options struct {
	SubjectPrefix string
	AutoIngest    bool
	AutoRecall    bool
}

// Processor handles hook deliveries. Handlers never return errors to the
// transport; failures are logged.
type Processor struct {
	pipeline *capture.Pipeline
	recaller *recall.Recaller
	journal  Journal
	logger   *slog.Logger
}

// New builds a processor. journal may be nil.
func New(p *capture.Pipeline, r *recall.Recaller, j Journal, logger *slog.Logger) *Processor {
	return &Processor{
		pipeline: p,
		recaller: r,
		journal:  j,
		logger:   logger,
	}
}

// Register subscribes the enabled hooks and returns the subjects it bound.
func (p *Processor) Register(bus Bus, opts Options) ([]string, error) {
	var subjects []string
	if opts.AutoIngest {
		hooks := []struct {
			name    string
			handler hermes.Handler
		}{
			{hermes.HookMessageReceived, p.HandleMessageReceived},
			{hermes.HookAgentEnd, p.HandleAgentEnd},
		}
		for _, h := range hooks {
			subject := hermes.Subject(opts.SubjectPrefix, h.name)
			if err := bus.Subscribe(subject, h.handler); err != nil {
				return subjects, fmt.Errorf("register %s: %w", h.name, err)
			}
			subjects = append(subjects, subject)
		}
	}
	if opts.AutoRecall {
		subject := hermes.Subject(opts.SubjectPrefix, hermes.HookBeforeAgentStart)
		if err := bus.Respond(subject, p.HandleBeforeAgentStart); err != nil {
			return subjects, fmt.Errorf("register %s: %w", hermes.HookBeforeAgentStart, err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// HandleMessageReceived captures an inbound user message.
func (p *Processor) HandleMessageReceived(subject string, data []byte) {
	var env envelope[MessageReceived]
	if err := json.Unmarshal(data, &env); err != nil {
		p.logger.Error("failed to parse hook event", "subject", subject, "error", err)
		return
	}

	ctx := context.Background()
	res := p.pipeline.CaptureInbound(ctx, capture.InboundEvent{
		ChannelID:      string(env.Ctx.ChannelID),
		ConversationID: string(env.Ctx.ConversationID),
		AccountID:      string(env.Ctx.AccountID),
		From:           string(env.Event.From),
		Content:        env.Event.Content,
		Timestamp:      float64(env.Event.Timestamp),
		MessageID:      env.Event.messageID(),
	})
	p.record(ctx, store.SourceInbound, res)
}

// HandleAgentEnd captures the last turn of a finished agent run.
func (p *Processor) HandleAgentEnd(subject string, data []byte) {
	var env envelope[AgentEnd]
	if err := json.Unmarshal(data, &env); err != nil {
		p.logger.Error("failed to parse hook event", "subject", subject, "error", err)
		return
	}

	ctx := context.Background()
	res := p.pipeline.CaptureTurn(ctx, capture.TurnEvent{
		ChannelHint: env.Ctx.channelHint(),
		Success:     bool(env.Event.Success),
		Messages:    capture.MessagesFromPayloads(env.Event.Messages.Items()),
	})
	p.record(ctx, store.SourceTurn, res)
}

// HandleBeforeAgentStart answers with the recall block for the prompt.
func (p *Processor) HandleBeforeAgentStart(subject string, data []byte) any {
	var env envelope[BeforeAgentStart]
	if err := json.Unmarshal(data, &env); err != nil {
		p.logger.Error("failed to parse hook event", "subject", subject, "error", err)
		return RecallReply{}
	}

	channelID := string(env.Event.ChannelID)
	if channelID == "" {
		channelID = env.Ctx.channelHint()
	}
	block, ok := p.recaller.Recall(context.Background(), recall.PromptEvent{
		Prompt:                string(env.Event.Prompt),
		ConversationID:        string(env.Event.ConversationID),
		ChannelConversationID: string(env.Event.ChannelConversationID),
		ChannelID:             channelID,
	})
	if !ok {
		return RecallReply{}
	}
	return RecallReply{PrependContext: block}
}

// record journals captured and failed attempts. Skips are not journaled.
func (p *Processor) record(ctx context.Context, source string, res capture.Result) {
	if p.journal == nil {
		return
	}
	if res.Outcome != capture.OutcomeCaptured && res.Outcome != capture.OutcomeFailed {
		return
	}

	rec := store.CaptureRecord{
		ConversationID: res.ConversationID,
		Channel:        res.Channel,
		Source:         source,
		Outcome:        string(res.Outcome),
		Items:          res.Items,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	id, err := p.journal.RecordCapture(ctx, rec)
	if err != nil {
		p.logger.Warn("journal write failed", "conversation_id", res.ConversationID, "error", err)
		return
	}
	p.logger.Debug("capture journaled", "id", id, "source", source, "outcome", rec.Outcome)
}
