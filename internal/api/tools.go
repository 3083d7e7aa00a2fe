package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
)

const (
	provider          = "lightrag-local"
	docPathPrefix     = "adapter:"
	defaultSearchSize = 5
)

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

type searchResult struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Score     int    `json:"score"`
	Snippet   string `json:"snippet"`
	Source    string `json:"source"`
}

type getRequest struct {
	Path string `json:"path"`
}

// Tool calls never fail on adapter errors: the body carries disabled or
// ok:false with the error text and the status stays 200.

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = defaultSearchSize
	}

	res, err := s.tools.Query(r.Context(), req.Query, req.MaxResults, adapter.QueryOptions{})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"results": []searchResult{}, "disabled": true, "error": err.Error()})
		return
	}

	results := make([]searchResult, len(res.ContextItems))
	for i, item := range res.ContextItems {
		id, path := item.DocID, item.DocID
		if id == "" {
			id = "doc"
		}
		if path == "" {
			path = "unknown"
		}
		results[i] = searchResult{
			ID:        fmt.Sprintf("%s-%d", id, i),
			Path:      docPathPrefix + path,
			StartLine: 1,
			EndLine:   1,
			Score:     1,
			Snippet:   item.Text,
			Source:    "adapter",
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "provider": provider})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	var req getRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	doc, err := s.tools.Get(r.Context(), strings.TrimPrefix(req.Path, docPathPrefix))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"path": req.Path, "text": "", "disabled": true, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": req.Path, "text": doc.Text})
}

func (s *Server) listInbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := adapter.InboxFilter{
		ConversationID: q.Get("conversationId"),
		Date:           q.Get("date"),
		Status:         adapter.InboxStatus(q.Get("status")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	raw, err := s.tools.ListInbox(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "disabled": true, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) inboxAction(w http.ResponseWriter, r *http.Request) {
	var req adapter.InboxActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Action.Valid() {
		writeError(w, http.StatusBadRequest, "action must be approve, merge or archive")
		return
	}

	raw, err := s.tools.InboxAction(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) feedback(w http.ResponseWriter, r *http.Request) {
	var req adapter.FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	raw, err := s.tools.RetrievalFeedback(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) listCaptures(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "capture journal not configured")
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	rows, err := s.journal.ListCaptures(r.Context(), r.URL.Query().Get("conversation_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"captures": rows, "count": len(rows)})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}
