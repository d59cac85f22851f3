package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/hashicorp-forge/pagewright/pkg/block"
)

// Transport issues the two write requests the session is built on. The
// session never retries; retries, authentication and rate limiting belong
// to the implementation.
type Transport interface {
	// CreatePage creates a page and returns the raw response body.
	CreatePage(ctx context.Context, page *PagePayload) (json.RawMessage, error)

	// AppendChildren appends children to the block or page parentID. When
	// after is not empty the children are inserted after that sibling.
	AppendChildren(ctx context.Context, parentID string, children []*block.Block, after string) (json.RawMessage, error)
}

// ChildLister lists the children of a block, following pagination. The
// session needs it only to find the ids of blocks nested inside a column
// list that was sent partially.
type ChildLister interface {
	ListChildren(ctx context.Context, blockID string) ([]Result, error)
}

// Result is the remote identity of one block from a response.
type Result struct {
	ID   string     `json:"id"`
	Type block.Type `json:"type"`
}

// ResultsFunc extracts the ordered results of an append response.
type ResultsFunc func(resp json.RawMessage) ([]Result, error)

// CreatedIDFunc extracts the id of the page a create response describes.
type CreatedIDFunc func(resp json.RawMessage) (string, error)

// DefaultResults reads results[*].id and results[*].type.
func DefaultResults(resp json.RawMessage) ([]Result, error) {
	if !gjson.ValidBytes(resp) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	results := gjson.GetBytes(resp, "results")
	if !results.IsArray() {
		return nil, fmt.Errorf("response has no results array")
	}

	items := results.Array()
	out := make([]Result, len(items))
	for i, item := range items {
		out[i] = Result{
			ID:   item.Get("id").String(),
			Type: block.Type(item.Get("type").String()),
		}
	}
	return out, nil
}

// DefaultCreatedID reads the top-level id of the response.
func DefaultCreatedID(resp json.RawMessage) (string, error) {
	if !gjson.ValidBytes(resp) {
		return "", fmt.Errorf("response is not valid JSON")
	}
	id := gjson.GetBytes(resp, "id").String()
	if id == "" {
		return "", fmt.Errorf("response has no id")
	}
	return id, nil
}

// TransportFuncs adapts plain functions to Transport.
type TransportFuncs struct {
	Create func(ctx context.Context, page *PagePayload) (json.RawMessage, error)
	Append func(ctx context.Context, parentID string, children []*block.Block, after string) (json.RawMessage, error)
}

var _ Transport = TransportFuncs{}

func (f TransportFuncs) CreatePage(ctx context.Context, page *PagePayload) (json.RawMessage, error) {
	if f.Create == nil {
		return nil, errors.New("create function is not configured")
	}
	return f.Create(ctx, page)
}

func (f TransportFuncs) AppendChildren(ctx context.Context, parentID string, children []*block.Block, after string) (json.RawMessage, error) {
	if f.Append == nil {
		return nil, errors.New("append function is not configured")
	}
	return f.Append(ctx, parentID, children, after)
}

// ChildListerFunc adapts a function to ChildLister.
type ChildListerFunc func(ctx context.Context, blockID string) ([]Result, error)

func (f ChildListerFunc) ListChildren(ctx context.Context, blockID string) ([]Result, error) {
	return f(ctx, blockID)
}
