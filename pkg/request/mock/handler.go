package mock

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/request"
)

// DefaultPageSize is the page size of list responses when the request does
// not set one.
const DefaultPageSize = 100

// NewHandler serves f over HTTP with the routes and response shapes of the
// remote API. Requests must carry "Authorization: Bearer <token>" and a
// Notion-Version header.
func NewHandler(f *FakeTransport, token string) http.Handler {
	h := &handler{fake: f, token: token}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/pages", h.createPage)
	mux.HandleFunc("GET /v1/pages/{id}", h.retrievePage)
	mux.HandleFunc("PATCH /v1/blocks/{id}/children", h.appendChildren)
	mux.HandleFunc("GET /v1/blocks/{id}/children", h.listChildren)
	mux.HandleFunc("POST /v1/databases/{id}/query", h.queryDatabase)

	return h.authenticate(mux)
}

type handler struct {
	fake  *FakeTransport
	token string
}

func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+h.token {
			writeError(w, &Error{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "API token is invalid."})
			return
		}
		if r.Header.Get("Notion-Version") == "" {
			writeError(w, &Error{Status: http.StatusBadRequest, Code: "missing_version", Message: "Notion-Version header failed validation."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) createPage(w http.ResponseWriter, r *http.Request) {
	var page request.PagePayload
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		writeError(w, invalid("body failed validation: %v", err))
		return
	}

	resp, err := h.fake.CreatePage(r.Context(), &page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, resp)
}

func (h *handler) retrievePage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.fake.mu.Lock()
	n, ok := h.fake.nodes[id]
	var body map[string]any
	if ok && n.typ == "page" {
		body = pageObject(n)
	}
	h.fake.mu.Unlock()

	if body == nil {
		writeError(w, notFound(id))
		return
	}
	writeJSON(w, body)
}

func (h *handler) appendChildren(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Children []*block.Block `json:"children"`
		After    string         `json:"after"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, invalid("body failed validation: %v", err))
		return
	}

	resp, err := h.fake.AppendChildren(r.Context(), r.PathValue("id"), body.Children, body.After)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, resp)
}

func (h *handler) listChildren(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	size, err := pageSize(r.URL.Query().Get("page_size"))
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.fake.ListChildren(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]any, len(results))
	for i, res := range results {
		items[i] = map[string]any{"object": "block", "id": res.ID, "type": res.Type}
	}
	writeList(w, items, ids(results), r.URL.Query().Get("start_cursor"), size)
}

func (h *handler) queryDatabase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartCursor string `json:"start_cursor"`
		PageSize    int    `json:"page_size"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, invalid("body failed validation: %v", err))
			return
		}
	}
	size, err := pageSize(strconv.Itoa(body.PageSize))
	if err != nil {
		writeError(w, err)
		return
	}

	id := r.PathValue("id")
	if err := h.record(r.Context(), Call{Method: MethodQuery, ParentID: id}); err != nil {
		writeError(w, err)
		return
	}

	h.fake.mu.Lock()
	db, ok := h.fake.nodes[id]
	var (
		items []any
		keys  []string
	)
	if ok && db.typ == "database" {
		for _, pid := range db.children {
			items = append(items, pageObject(h.fake.nodes[pid]))
			keys = append(keys, pid)
		}
	}
	h.fake.mu.Unlock()

	if !ok || db.typ != "database" {
		writeError(w, notFound(id))
		return
	}
	writeList(w, items, keys, body.StartCursor, size)
}

func (h *handler) record(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.fake.mu.Lock()
	defer h.fake.mu.Unlock()
	return h.fake.record(call)
}

func pageObject(n *node) map[string]any {
	return map[string]any{
		"object":     "page",
		"id":         n.id,
		"properties": n.props,
	}
}

func ids(results []request.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func pageSize(v string) (int, error) {
	if v == "" || v == "0" {
		return DefaultPageSize, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 100 {
		return 0, invalid("page_size should be a number between 1 and 100")
	}
	return n, nil
}

// writeList writes one page of items. Cursors are the key of the first item
// of the next page.
func writeList(w http.ResponseWriter, items []any, keys []string, cursor string, size int) {
	start := 0
	if cursor != "" {
		start = -1
		for i, k := range keys {
			if k == cursor {
				start = i
				break
			}
		}
		if start < 0 {
			writeError(w, invalid("start_cursor %s is not valid", cursor))
			return
		}
	}

	end := min(start+size, len(items))
	var next any
	if end < len(items) {
		next = keys[end]
	}

	page := items[start:end]
	if page == nil {
		page = []any{}
	}
	writeJSON(w, map[string]any{
		"object":      "list",
		"results":     page,
		"has_more":    next != nil,
		"next_cursor": next,
	})
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = &Error{Status: http.StatusInternalServerError, Code: "internal_server_error", Message: err.Error()}
	}
	if apiErr.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "0")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", uuid.New().String())
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object":  "error",
		"status":  apiErr.Status,
		"code":    apiErr.Code,
		"message": apiErr.Message,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, data)
}

func writeRaw(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
