// Package block models the content blocks of a page and their wire format.
//
// A Block is a tagged record: Type selects the variant, Payload carries the
// type-specific fields (rich_text, color, checked, language, ...) and
// Children holds nested blocks for the types that support nesting. Children
// are kept out of Payload so that every consumer reaches them through the
// same field regardless of type.
//
// Blocks serialize to the API's shape:
//
//	{"object": "block", "type": "toggle", "toggle": {"rich_text": [...], "children": [...]}}
package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Block is one unit of structured content.
type Block struct {
	Type     Type
	Payload  map[string]any
	Children []*Block
}

// New returns a block of type t with the given payload and children.
func New(t Type, payload map[string]any, children ...*Block) *Block {
	if payload == nil {
		payload = map[string]any{}
	}
	b := &Block{Type: t, Payload: payload}
	if len(children) > 0 {
		b.Children = children
	}
	return b
}

// HasChildren reports whether b carries at least one child.
func (b *Block) HasChildren() bool {
	return b != nil && len(b.Children) > 0
}

// WithoutChildren returns a shallow copy of b with no children. The payload
// map is shared with b.
func (b *Block) WithoutChildren() *Block {
	return &Block{Type: b.Type, Payload: b.Payload}
}

// WithChildren returns a shallow copy of b carrying children instead of its
// own.
func (b *Block) WithChildren(children []*Block) *Block {
	c := b.WithoutChildren()
	if len(children) > 0 {
		c.Children = children
	}
	return c
}

// Clone returns a deep copy of b. Payload maps are copied one level deep.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := &Block{Type: b.Type, Payload: maps.Clone(b.Payload)}
	if len(b.Children) > 0 {
		c.Children = CloneAll(b.Children)
	}
	return c
}

// CloneAll deep-copies a sequence of blocks.
func CloneAll(blocks []*Block) []*Block {
	if blocks == nil {
		return nil
	}
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// MarshalJSON encodes the block in the API's request shape.
func (b *Block) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(b.Payload)+1)
	for k, v := range b.Payload {
		if k == "children" {
			continue
		}
		body[k] = v
	}
	if len(b.Children) > 0 {
		body["children"] = b.Children
	}

	return json.Marshal(map[string]any{
		"object":       "block",
		"type":         b.Type,
		string(b.Type): body,
	})
}

// UnmarshalJSON decodes a block from the API's shape. Read-only fields the
// API adds to responses (id, created_time, has_children, ...) are ignored.
func (b *Block) UnmarshalJSON(data []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode block: %w", err)
	}

	var t Type
	if err := json.Unmarshal(envelope["type"], &t); err != nil {
		return fmt.Errorf("failed to decode block type: %w", err)
	}
	if t == "" {
		return fmt.Errorf("block has no type")
	}

	body := map[string]json.RawMessage{}
	if raw, ok := envelope[string(t)]; ok && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("failed to decode %s body: %w", t, err)
		}
	}

	var children []*Block
	if raw, ok := body["children"]; ok {
		if err := json.Unmarshal(raw, &children); err != nil {
			return fmt.Errorf("failed to decode %s children: %w", t, err)
		}
		delete(body, "children")
	}

	payload := make(map[string]any, len(body))
	for k, raw := range body {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("failed to decode %s.%s: %w", t, k, err)
		}
		payload[k] = v
	}

	*b = Block{Type: t, Payload: payload}
	if len(children) > 0 {
		b.Children = children
	}
	return nil
}
