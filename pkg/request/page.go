package request

import (
	"context"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hashicorp-forge/pagewright/pkg/block"
)

// ParentType selects what a new page is created under.
type ParentType string

const (
	ParentPage       ParentType = "page_id"
	ParentDatabase   ParentType = "database_id"
	ParentDataSource ParentType = "data_source_id"
	ParentWorkspace  ParentType = "workspace"
)

// Parent references the container of a new page.
type Parent struct {
	Type ParentType
	ID   string
}

// PageParent returns a parent reference to a page.
func PageParent(id string) Parent {
	return Parent{Type: ParentPage, ID: id}
}

// DatabaseParent returns a parent reference to a database.
func DatabaseParent(id string) Parent {
	return Parent{Type: ParentDatabase, ID: id}
}

// MarshalJSON encodes the parent as {"type": T, T: id}.
func (p Parent) MarshalJSON() ([]byte, error) {
	if p.Type == ParentWorkspace {
		return json.Marshal(map[string]any{"type": p.Type, "workspace": true})
	}
	return json.Marshal(map[string]any{"type": p.Type, string(p.Type): p.ID})
}

// UnmarshalJSON decodes {"type": T, T: id}.
func (p *Parent) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, _ := raw["type"].(string)
	p.Type = ParentType(t)
	p.ID, _ = raw[t].(string)
	return nil
}

// Validate checks that the parent reference is complete.
func (p Parent) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Type, validation.Required,
			validation.In(ParentPage, ParentDatabase, ParentDataSource, ParentWorkspace)),
		validation.Field(&p.ID, validation.When(p.Type != ParentWorkspace, validation.Required)),
	)
}

// PageRequest describes a page to create together with its content.
type PageRequest struct {
	Parent     Parent
	Properties map[string]any
	Icon       map[string]any
	Cover      map[string]any
	Children   []*block.Block
}

// Validate checks the parent reference and the structure of the content.
func (r *PageRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: page request is nil", ErrMissingParent)
	}
	if err := r.Parent.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMissingParent, err)
	}
	return block.Validate(r.Children)
}

// PagePayload is the body of a create-page request.
type PagePayload struct {
	Parent     Parent         `json:"parent"`
	Properties map[string]any `json:"properties,omitempty"`
	Icon       map[string]any `json:"icon,omitempty"`
	Cover      map[string]any `json:"cover,omitempty"`
	Children   []*block.Block `json:"children,omitempty"`
}

// PageResult aggregates the outcome of CreatePage.
type PageResult struct {
	// Page is the raw create response.
	Page json.RawMessage

	// PageID is the id of the created page.
	PageID string

	// Append holds the follow-up appends for content that did not fit the
	// create request. Its APICallCount excludes the create call.
	Append *AppendResult

	// APICallCount counts every request made, the create call included.
	APICallCount int
}

// TitleProperty returns a properties map holding a title property.
func TitleProperty(title string) map[string]any {
	return map[string]any{
		"title": map[string]any{
			"title": block.RichText(title),
		},
	}
}

// EmojiIcon returns an emoji icon object.
func EmojiIcon(emoji string) map[string]any {
	return map[string]any{"type": "emoji", "emoji": emoji}
}

// ExternalFile returns an external file object usable as an icon or cover.
func ExternalFile(url string) map[string]any {
	return map[string]any{"type": "external", "external": map[string]any{"url": url}}
}

// CreatePage creates a page carrying as many leading first-level blocks as
// the create request can hold, then appends the rest under the new page.
//
// The create request only carries blocks without children, and stops at
// the first block that has any. Everything after that point, nested
// content included, goes through the append protocol.
func (s *Session) CreatePage(ctx context.Context, req *PageRequest) (*PageResult, error) {
	s.reset()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := &PagePayload{
		Parent:     req.Parent,
		Properties: req.Properties,
		Icon:       req.Icon,
		Cover:      req.Cover,
	}
	n := s.inlineCount(payload, req.Children)
	if n > 0 {
		payload.Children = req.Children[:n]
	}
	rest := req.Children[n:]

	s.logger.Debug("creating page",
		"parent_type", req.Parent.Type,
		"parent_id", req.Parent.ID,
		"inline_blocks", n,
		"remaining_blocks", len(rest),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.transport.CreatePage(ctx, payload)
	s.calls++
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	result := &PageResult{Page: resp}

	id, idErr := s.createdID(resp)
	if idErr == nil {
		result.PageID = id
	}

	if len(rest) > 0 {
		if idErr != nil {
			return nil, fmt.Errorf("%w: cannot append %d remaining blocks: %v", ErrProtocolMismatch, len(rest), idErr)
		}
		if err := s.appendTree(ctx, id, rest, ""); err != nil {
			return nil, err
		}
	}

	result.Append = &AppendResult{
		Responses:      s.responses,
		APICallCount:   s.calls - 1,
		ProtocolErrors: s.problems.ErrorOrNil(),
	}
	result.APICallCount = s.calls
	return result, nil
}

// inlineCount returns how many leading blocks fit in the create request.
func (s *Session) inlineCount(payload *PagePayload, children []*block.Block) int {
	size := 0
	if data, err := json.Marshal(payload); err == nil {
		size = len(data)
	}

	count := 0
	for _, b := range children {
		if b.HasChildren() || b.Type.RequiresChildren() {
			break
		}
		bSize := block.Size(b)
		if count+1 > s.policy.MaxSliceCount ||
			count+1 > s.policy.MaxCallNodeTotal ||
			size+bSize > s.policy.MaxPayloadBytes {
			break
		}
		size += bSize
		count++
	}
	return count
}
