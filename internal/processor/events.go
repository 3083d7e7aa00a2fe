package processor

import (
	"encoding/json"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/payload"
)

// Hosts do not guarantee field types. A scalar field holding the wrong kind
// decodes to its zero value instead of failing the whole delivery.

// optString keeps a JSON string and ignores any other kind.
type optString string

func (s *optString) UnmarshalJSON(data []byte) error {
	var v string
	if json.Unmarshal(data, &v) == nil {
		*s = optString(v)
	}
	return nil
}

// optNumber keeps a JSON number and ignores any other kind.
type optNumber float64

func (n *optNumber) UnmarshalJSON(data []byte) error {
	var v float64
	if json.Unmarshal(data, &v) == nil {
		*n = optNumber(v)
	}
	return nil
}

// optBool keeps a JSON boolean and ignores any other kind.
type optBool bool

func (b *optBool) UnmarshalJSON(data []byte) error {
	var v bool
	if json.Unmarshal(data, &v) == nil {
		*b = optBool(v)
	}
	return nil
}

// HookContext is the ctx half of a hook delivery.
type HookContext struct {
	ChannelID       optString `json:"channelId"`
	ConversationID  optString `json:"conversationId"`
	AccountID       optString `json:"accountId"`
	MessageProvider optString `json:"messageProvider"`
}

// channelHint prefers the message provider over the channel id.
func (c HookContext) channelHint() string {
	if c.MessageProvider != "" {
		return string(c.MessageProvider)
	}
	return string(c.ChannelID)
}

// MessageReceived is the message_received event body.
type MessageReceived struct {
	From      optString       `json:"from"`
	Content   payload.Payload `json:"content"`
	Timestamp optNumber       `json:"timestamp"`
	Metadata  payload.Payload `json:"metadata"`
}

// messageID reads metadata.messageId when it is a string.
func (m MessageReceived) messageID() string {
	id, _ := m.Metadata.FieldString("messageId")
	return id
}

// AgentEnd is the agent_end event body.
type AgentEnd struct {
	Success  optBool         `json:"success"`
	Messages payload.Payload `json:"messages"`
}

// BeforeAgentStart is the before_agent_start event body.
type BeforeAgentStart struct {
	Prompt                optString `json:"prompt"`
	ConversationID        optString `json:"conversationId"`
	ChannelConversationID optString `json:"channelConversationId"`
	ChannelID             optString `json:"channelId"`
}

type envelope[E any] struct {
	Event E           `json:"event"`
	Ctx   HookContext `json:"ctx"`
}

// RecallReply is the before_agent_start reply. An empty reply leaves the
// prompt untouched.
type RecallReply struct {
	PrependContext string `json:"prependContext,omitempty"`
}
