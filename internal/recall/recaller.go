package recall

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/identity"
)

// minPromptChars is the shortest prompt worth a memory query.
const minPromptChars = 3

// Querier searches memory.
type Querier interface {
	Query(ctx context.Context, text string, topK int, opts adapter.QueryOptions) (*adapter.QueryResult, error)
}

// PromptEvent is the host's notification that an agent turn is about to start.
type PromptEvent struct {
	Prompt                string
	ConversationID        string
	ChannelConversationID string
	ChannelID             string
}

// Recaller builds the context block for an upcoming agent turn.
type Recaller struct {
	querier    Querier
	tracker    *identity.Tracker
	maxResults int
	logger     *slog.Logger
}

func New(q Querier, tracker *identity.Tracker, maxResults int, logger *slog.Logger) *Recaller {
	if maxResults < 1 {
		maxResults = 1
	}
	return &Recaller{
		querier:    q,
		tracker:    tracker,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Recall returns the context block for evt, or false when the prompt is too
// short, nothing relevant was found, or the query failed. Failures are logged
// and never block the turn.
func (r *Recaller) Recall(ctx context.Context, evt PromptEvent) (string, bool) {
	prompt := strings.TrimSpace(evt.Prompt)
	if utf8.RuneCountInString(prompt) < minPromptChars {
		return "", false
	}

	conversationID := r.conversationFor(evt)
	res, err := r.querier.Query(ctx, prompt, r.maxResults, adapter.QueryOptions{ConversationID: conversationID})
	if err != nil {
		r.logger.Warn("recall failed", "conversation_id", conversationID, "error", err)
		return "", false
	}

	block, ok := Format(res.ContextItems, r.maxResults)
	if !ok {
		return "", false
	}

	conv := conversationID
	if conv == "" {
		conv = "*"
	}
	r.logger.Debug("recall inject", "chars", len(block), "conversation_id", conv)
	return block, true
}

// conversationFor prefers an id carried by the event itself and falls back to
// the last conversation seen on the event's channel.
func (r *Recaller) conversationFor(evt PromptEvent) string {
	direct := evt.ConversationID
	if direct == "" {
		direct = evt.ChannelConversationID
	}
	if direct != "" {
		return identity.FromQualified(direct)
	}
	id, _ := r.tracker.Last(identity.ChannelBase(evt.ChannelID))
	return id
}
