// Package adapter is the HTTP client for the LightRAG local memory adapter.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// StatusError is returned when the adapter answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, e.Body)
}

// Client talks to the adapter API. Calls carry no timeout or retry of their
// own; the caller's context bounds them.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// Query searches memory for text and returns up to topK context items.
func (c *Client) Query(ctx context.Context, text string, topK int, opts QueryOptions) (*QueryResult, error) {
	body := map[string]any{
		"query": text,
		"topK":  topK,
	}
	if opts.ConversationID != "" {
		body["conversationId"] = opts.ConversationID
	}
	if opts.Date != "" {
		body["date"] = opts.Date
	}

	raw, err := c.post(ctx, "/adapter/query", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ContextItems []ContextItem `json:"contextItems"`
		Contexts     []string      `json:"contexts"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	items := resp.ContextItems
	if items == nil {
		for _, text := range resp.Contexts {
			items = append(items, ContextItem{Text: text})
		}
	}
	if items == nil {
		items = []ContextItem{}
	}
	return &QueryResult{ContextItems: items, Raw: raw}, nil
}

// Get fetches the full text of a memory document.
func (c *Client) Get(ctx context.Context, docID string) (*Document, error) {
	raw, err := c.post(ctx, "/adapter/get", map[string]string{"docId": docID})
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	doc.Raw = raw
	return &doc, nil
}

// Ingest submits captured conversation items.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) error {
	_, err := c.post(ctx, "/adapter/ingest", req)
	return err
}

// ListInbox lists memory inbox review items.
func (c *Client) ListInbox(ctx context.Context, filter InboxFilter) (json.RawMessage, error) {
	qs := url.Values{}
	if filter.ConversationID != "" {
		qs.Set("conversationId", filter.ConversationID)
	}
	if filter.Date != "" {
		qs.Set("date", filter.Date)
	}
	if filter.Status != "" {
		qs.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		qs.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		qs.Set("offset", strconv.Itoa(filter.Offset))
	}

	path := "/adapter/memory/inbox"
	if enc := qs.Encode(); enc != "" {
		path += "?" + enc
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

// InboxAction applies a review action to an inbox item.
func (c *Client) InboxAction(ctx context.Context, req InboxActionRequest) (json.RawMessage, error) {
	return c.post(ctx, "/adapter/memory/inbox/action", req)
}

// RetrievalFeedback records whether a retrieval result helped.
func (c *Client) RetrievalFeedback(ctx context.Context, req FeedbackRequest) (json.RawMessage, error) {
	return c.post(ctx, "/adapter/retrieval/feedback", req)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adapter call %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("decode response %s: body is not JSON: %.64q", path, respBody)
	}
	return json.RawMessage(respBody), nil
}
