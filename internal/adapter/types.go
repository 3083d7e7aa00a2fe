package adapter

import "encoding/json"

// ContextItem is one recalled snippet returned by a query.
type ContextItem struct {
	Text  string `json:"text"`
	DocID string `json:"docId,omitempty"`
}

// QueryOptions narrows a query.
type QueryOptions struct {
	ConversationID string
	Date           string
}

// QueryResult is the decoded query response. Raw keeps the full body.
type QueryResult struct {
	ContextItems []ContextItem
	Raw          json.RawMessage
}

// Document is the response of a get call.
type Document struct {
	Text string          `json:"text"`
	Raw  json.RawMessage `json:"-"`
}

// IngestItem is one captured message.
type IngestItem struct {
	Role      string `json:"role,omitempty"`
	Content   string `json:"content"`
	TS        string `json:"ts,omitempty"`
	Sender    string `json:"sender,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// IngestRequest submits captured messages for one conversation and day.
type IngestRequest struct {
	ConversationID string       `json:"conversationId"`
	Channel        string       `json:"channel"`
	Date           string       `json:"date"`
	Items          []IngestItem `json:"items"`
}

// InboxStatus filters inbox listings.
type InboxStatus string

const (
	InboxPending  InboxStatus = "pending"
	InboxApproved InboxStatus = "approved"
	InboxMerged   InboxStatus = "merged"
	InboxArchived InboxStatus = "archived"
	InboxAll      InboxStatus = "all"
)

// InboxFilter selects memory inbox review items. Zero fields are omitted.
type InboxFilter struct {
	ConversationID string      `json:"conversationId,omitempty"`
	Date           string      `json:"date,omitempty"`
	Status         InboxStatus `json:"status,omitempty"`
	Limit          int         `json:"limit,omitempty"`
	Offset         int         `json:"offset,omitempty"`
}

// InboxAction is a review decision on an inbox item.
type InboxAction string

const (
	ActionApprove InboxAction = "approve"
	ActionMerge   InboxAction = "merge"
	ActionArchive InboxAction = "archive"
)

// Valid reports whether a is a known action.
func (a InboxAction) Valid() bool {
	switch a {
	case ActionApprove, ActionMerge, ActionArchive:
		return true
	}
	return false
}

// InboxActionRequest applies an action to an inbox item.
type InboxActionRequest struct {
	ItemID        int64       `json:"itemId"`
	Action        InboxAction `json:"action"`
	MergeTargetID *int64      `json:"mergeTargetId,omitempty"`
	Note          string      `json:"note,omitempty"`
}

// FeedbackRequest rates a retrieval result.
type FeedbackRequest struct {
	QueryID int64  `json:"queryId"`
	ItemID  string `json:"itemId,omitempty"`
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment,omitempty"`
}
