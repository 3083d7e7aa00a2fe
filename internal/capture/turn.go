package capture

import (
	"strings"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/payload"
	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/sanitize"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one step of a conversation history as delivered by the host.
// Content, Text, OutputText and Output are the candidate places the host puts
// the message body, in priority order.
type Message struct {
	Role       string
	Content    payload.Payload
	Text       payload.Payload
	OutputText payload.Payload
	Output     payload.Payload
}

// MessageFromPayload reads a history element. Elements that are not objects
// produce a message with no role, which turn extraction skips.
func MessageFromPayload(p payload.Payload) Message {
	var m Message
	if p.Kind() != payload.KindObject {
		return m
	}
	m.Role, _ = p.FieldString("role")
	m.Content, _ = p.Field("content")
	m.Text, _ = p.Field("text")
	m.OutputText, _ = p.Field("output_text")
	m.Output, _ = p.Field("output")
	return m
}

// MessagesFromPayloads converts a raw history.
func MessagesFromPayloads(ps []payload.Payload) []Message {
	out := make([]Message, len(ps))
	for i, p := range ps {
		out[i] = MessageFromPayload(p)
	}
	return out
}

func (m Message) role() string {
	return strings.ToLower(m.Role)
}

// body picks the first non-null candidate field.
func (m Message) body() payload.Payload {
	for _, p := range []payload.Payload{m.Content, m.Text, m.OutputText, m.Output} {
		if !p.IsNull() {
			return p
		}
	}
	return payload.String("")
}

// Text is a captured message after extraction and sanitization.
type Text struct {
	Role string
	Text string
}

// SelectTurn returns the last turn of a history: the last user message and
// everything after it. Without a user message the whole history is the turn.
func SelectTurn(msgs []Message) []Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].role() == RoleUser {
			return msgs[i:]
		}
	}
	return msgs
}

// ExtractTurnTexts extracts sanitized text for each user and assistant message
// of a turn. Other roles and messages left empty after sanitizing are dropped.
func ExtractTurnTexts(turn []Message, mode sanitize.Mode) []Text {
	var out []Text
	for _, m := range turn {
		role := m.role()
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		text := sanitize.Captured(payload.Extract(m.body()), mode)
		if text == "" {
			continue
		}
		out = append(out, Text{Role: role, Text: text})
	}
	return out
}
