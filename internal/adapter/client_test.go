package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuery_ContextItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/adapter/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key test-key, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["query"] != "where is the deploy doc" {
			t.Errorf("unexpected query %v", body["query"])
		}
		if body["topK"] != float64(4) {
			t.Errorf("expected topK 4, got %v", body["topK"])
		}
		if body["conversationId"] != "slack:C1" {
			t.Errorf("expected conversationId, got %v", body["conversationId"])
		}
		if _, ok := body["date"]; ok {
			t.Error("expected empty date to be omitted")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"contextItems": []map[string]any{
				{"text": "deploy doc lives in wiki", "docId": "d1"},
				{"text": "second"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "test-key")
	res, err := c.Query(context.Background(), "where is the deploy doc", 4, QueryOptions{ConversationID: "slack:C1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.ContextItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.ContextItems))
	}
	if res.ContextItems[0].DocID != "d1" {
		t.Errorf("expected docId d1, got %q", res.ContextItems[0].DocID)
	}
	if len(res.Raw) == 0 {
		t.Error("expected raw body to be kept")
	}
}

func TestQuery_LegacyContexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"contexts":["a","b"]}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL, "k").Query(context.Background(), "q", 2, QueryOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.ContextItems) != 2 || res.ContextItems[1].Text != "b" {
		t.Errorf("unexpected items: %+v", res.ContextItems)
	}
}

func TestQuery_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	res, err := NewClient(server.URL, "k").Query(context.Background(), "q", 2, QueryOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ContextItems == nil || len(res.ContextItems) != 0 {
		t.Errorf("expected empty non-nil items, got %+v", res.ContextItems)
	}
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer server.Close()

	err := NewClient(server.URL, "k").Ingest(context.Background(), IngestRequest{ConversationID: "x:y"})
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if se.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", se.StatusCode)
	}
	if err.Error() != "request failed: 401 bad key" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIngest_Body(t *testing.T) {
	var got IngestRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/adapter/ingest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	req := IngestRequest{
		ConversationID: "slack:C1",
		Channel:        "slack",
		Date:           "2026-02-11",
		Items: []IngestItem{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello", Sender: "assistant"},
		},
	}
	if err := NewClient(server.URL, "k").Ingest(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ConversationID != "slack:C1" || len(got.Items) != 2 || got.Items[1].Sender != "assistant" {
		t.Errorf("unexpected ingest body: %+v", got)
	}
}

func TestListInbox_QueryString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/adapter/memory/inbox" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("status") != "pending" || q.Get("limit") != "10" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Has("offset") || q.Has("date") {
			t.Errorf("expected zero fields to be omitted, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	raw, err := NewClient(server.URL, "k").ListInbox(context.Background(), InboxFilter{Status: InboxPending, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"items":[]}` {
		t.Errorf("unexpected body %s", raw)
	}
}

func TestGetAndFeedback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/adapter/get":
			w.Write([]byte(`{"text":"full doc","docId":"d1"}`))
		case "/adapter/retrieval/feedback":
			var fb FeedbackRequest
			json.NewDecoder(r.Body).Decode(&fb)
			if fb.QueryID != 7 || !fb.Helpful {
				t.Errorf("unexpected feedback %+v", fb)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "k")
	doc, err := c.Get(context.Background(), "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Text != "full doc" {
		t.Errorf("expected full doc, got %q", doc.Text)
	}

	raw, err := c.RetrievalFeedback(context.Background(), FeedbackRequest{QueryID: 7, Helpful: true})
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("expected empty object for no-content reply, got %s", raw)
	}

	if _, err := c.InboxAction(context.Background(), InboxActionRequest{ItemID: 1, Action: ActionArchive}); err == nil {
		t.Error("expected 404 to surface as error")
	}
}

func TestNonJSONSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "k")
	ctx := context.Background()

	if err := c.Ingest(ctx, IngestRequest{ConversationID: "slack:C1"}); err == nil {
		t.Error("expected ingest to fail on a non-JSON body")
	}
	if _, err := c.RetrievalFeedback(ctx, FeedbackRequest{}); err == nil {
		t.Error("expected feedback to fail on a non-JSON body")
	}
	if _, err := c.ListInbox(ctx, InboxFilter{}); err == nil {
		t.Error("expected inbox to fail on a non-JSON body")
	}
	_, err := c.Query(ctx, "q", 1, QueryOptions{})
	if err == nil {
		t.Fatal("expected query to fail on a non-JSON body")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Errorf("expected a decode error, got status error %v", err)
	}
}
