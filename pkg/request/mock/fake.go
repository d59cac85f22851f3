// Package mock provides an in-memory fake of the remote block API. The fake
// implements request.Transport and request.ChildLister directly and can be
// served over HTTP with NewHandler.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/limits"
	"github.com/hashicorp-forge/pagewright/pkg/request"
)

// Call methods recorded by the fake.
const (
	MethodCreate = "create"
	MethodAppend = "append"
	MethodList   = "list"
	MethodQuery  = "query"
)

// Error is an API error as the fake reports it.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func notFound(id string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "object_not_found", Message: fmt.Sprintf("could not find block with id %s", id)}
}

func invalid(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "validation_error", Message: fmt.Sprintf(format, args...)}
}

// Call is one request received by the fake.
type Call struct {
	Method   string
	ParentID string
	After    string
	Blocks   []*block.Block
	Page     *request.PagePayload
}

// node is a stored block or page.
type node struct {
	id       string
	typ      block.Type
	parent   string
	payload  map[string]any
	props    map[string]any
	children []string
}

// FakeTransport stores pages and blocks in memory.
type FakeTransport struct {
	// Policy holds the limits enforced when Strict is set.
	Policy limits.Policy

	// Strict rejects requests that exceed Policy, like the real API does.
	Strict bool

	// FailOn, when set, is consulted before every request. A non-nil error
	// fails the request without changing state.
	FailOn func(call Call) error

	// Tamper, when set, rewrites the results of an append response.
	Tamper func(call Call, results []request.Result) []request.Result

	mu     sync.Mutex
	nodes  map[string]*node
	calls  []Call
	nextID func() string
}

var (
	_ request.Transport   = (*FakeTransport)(nil)
	_ request.ChildLister = (*FakeTransport)(nil)
)

// NewFakeTransport returns a strict fake with the default limits.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		Policy: limits.Default(),
		Strict: true,
		nodes:  make(map[string]*node),
		nextID: func() string { return uuid.New().String() },
	}
}

// AddPage stores an empty page and returns its id. Use it to create a parent
// to append to.
func (f *FakeTransport) AddPage() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID()
	f.nodes[id] = &node{id: id, typ: "page"}
	return id
}

// AddDatabase stores an empty database and returns its id.
func (f *FakeTransport) AddDatabase() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID()
	f.nodes[id] = &node{id: id, typ: "database"}
	return id
}

// Calls returns the requests received so far, in order.
func (f *FakeTransport) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns the number of requests of the given method.
func (f *FakeTransport) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// CreatePage implements request.Transport.
func (f *FakeTransport) CreatePage(ctx context.Context, page *request.PagePayload) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page == nil {
		return nil, invalid("body is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Method: MethodCreate, ParentID: page.Parent.ID, Blocks: page.Children, Page: page}
	if err := f.record(call); err != nil {
		return nil, err
	}

	switch page.Parent.Type {
	case request.ParentWorkspace:
	case request.ParentPage, request.ParentDatabase, request.ParentDataSource:
		if _, ok := f.nodes[page.Parent.ID]; !ok {
			return nil, notFound(page.Parent.ID)
		}
	default:
		return nil, invalid("parent type %q is not supported", page.Parent.Type)
	}
	if err := f.check(page.Children); err != nil {
		return nil, err
	}

	id := f.nextID()
	f.nodes[id] = &node{id: id, typ: "page", parent: page.Parent.ID, props: page.Properties}
	f.insert(id, page.Children, "")
	if db, ok := f.nodes[page.Parent.ID]; ok && db.typ == "database" {
		db.children = append(db.children, id)
	}

	return json.Marshal(map[string]any{
		"object": "page",
		"id":     id,
		"parent": page.Parent,
	})
}

// AppendChildren implements request.Transport. The response lists the
// appended top-level blocks in order.
func (f *FakeTransport) AppendChildren(ctx context.Context, parentID string, children []*block.Block, after string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Method: MethodAppend, ParentID: parentID, After: after, Blocks: children}
	if err := f.record(call); err != nil {
		return nil, err
	}

	parent, ok := f.nodes[parentID]
	if !ok {
		return nil, notFound(parentID)
	}
	if parent.typ == "database" {
		return nil, invalid("block %s does not support children", parentID)
	}
	if parent.typ != "page" && !parent.typ.SupportsChildren() {
		return nil, invalid("block %s of type %s does not support children", parentID, parent.typ)
	}
	if after != "" && indexOf(parent.children, after) < 0 {
		return nil, invalid("block %s is not a child of %s", after, parentID)
	}
	if len(children) == 0 {
		return nil, invalid("body.children should be defined")
	}
	if err := f.check(children); err != nil {
		return nil, err
	}

	ids := f.insert(parentID, children, after)

	results := make([]request.Result, len(ids))
	for i, id := range ids {
		results[i] = request.Result{ID: id, Type: f.nodes[id].typ}
	}
	if f.Tamper != nil {
		results = f.Tamper(call, results)
	}

	items := make([]map[string]any, len(results))
	for i, r := range results {
		items[i] = map[string]any{"object": "block", "id": r.ID, "type": r.Type}
		if n, ok := f.nodes[r.ID]; ok {
			items[i]["has_children"] = len(n.children) > 0
		}
	}
	return json.Marshal(map[string]any{
		"object":      "list",
		"results":     items,
		"has_more":    false,
		"next_cursor": nil,
	})
}

// ListChildren implements request.ChildLister.
func (f *FakeTransport) ListChildren(ctx context.Context, blockID string) ([]request.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.record(Call{Method: MethodList, ParentID: blockID}); err != nil {
		return nil, err
	}
	return f.results(blockID)
}

// Tree returns the stored content of the page or block id, nested blocks
// included. The payloads are the ones that were sent.
func (f *FakeTransport) Tree(id string) ([]*block.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	return f.tree(n), nil
}

// Type returns the type of a stored block, or "page" and "database".
func (f *FakeTransport) Type(id string) (block.Type, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[id]
	if !ok {
		return "", false
	}
	return n.typ, true
}

func (f *FakeTransport) tree(n *node) []*block.Block {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*block.Block, len(n.children))
	for i, id := range n.children {
		child := f.nodes[id]
		out[i] = block.New(child.typ, child.payload, f.tree(child)...)
	}
	return out
}

func (f *FakeTransport) results(id string) ([]request.Result, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, notFound(id)
	}
	out := make([]request.Result, len(n.children))
	for i, cid := range n.children {
		out[i] = request.Result{ID: cid, Type: f.nodes[cid].typ}
	}
	return out, nil
}

// record stores call and runs FailOn. Callers hold f.mu.
func (f *FakeTransport) record(call Call) error {
	f.calls = append(f.calls, call)
	if f.FailOn != nil {
		return f.FailOn(call)
	}
	return nil
}

// check enforces the request limits on children. Callers hold f.mu.
func (f *FakeTransport) check(children []*block.Block) error {
	if err := block.Validate(children); err != nil {
		return invalid("%v", err)
	}
	if !f.Strict {
		return nil
	}

	p := f.Policy
	if n := block.LongestArray(children); n > p.MaxSliceCount {
		return invalid("children array has %d blocks, limit is %d", n, p.MaxSliceCount)
	}
	if n := block.NodeCount(children); n > p.MaxCallNodeTotal {
		return invalid("request has %d blocks, limit is %d", n, p.MaxCallNodeTotal)
	}
	if d := block.Depth(children); d > p.MaxDepth {
		return invalid("request nests %d levels, limit is %d", d, p.MaxDepth)
	}
	if n := block.PayloadBytes(children); n > p.MaxPayloadBytes {
		return invalid("request body is %d bytes, limit is %d", n, p.MaxPayloadBytes)
	}
	return nil
}

// insert stores blocks under parentID after the sibling after, or at the
// end, and returns the new top-level ids. Callers hold f.mu.
func (f *FakeTransport) insert(parentID string, blocks []*block.Block, after string) []string {
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		id := f.nextID()
		f.nodes[id] = &node{id: id, typ: b.Type, parent: parentID, payload: b.Payload}
		f.insert(id, b.Children, "")
		ids[i] = id
	}

	parent := f.nodes[parentID]
	pos := len(parent.children)
	if after != "" {
		pos = indexOf(parent.children, after) + 1
	}

	merged := make([]string, 0, len(parent.children)+len(ids))
	merged = append(merged, parent.children[:pos]...)
	merged = append(merged, ids...)
	merged = append(merged, parent.children[pos:]...)
	parent.children = merged

	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
