// Package limits describes the ceilings the remote API enforces on a single
// request, and the Policy value the chunker and request session run under.
package limits

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// API ceilings for a single request.
const (
	// MaxSliceCount is the maximum number of elements in any one children
	// array, and therefore in any one outbound slice.
	MaxSliceCount = 100

	// MaxCallNodeTotal is the maximum number of blocks, nested ones included,
	// carried by a single request.
	MaxCallNodeTotal = 1000

	// MaxDepth is the maximum number of nesting levels of children allowed in
	// a single request.
	MaxDepth = 2

	// MaxPayloadBytes is the maximum serialized size of a single request body.
	MaxPayloadBytes = 500000

	// RequiredChildReserve is kept free under MaxCallNodeTotal so containers
	// that cannot exist without children (table rows, columns) always have
	// room in the call that creates them.
	RequiredChildReserve = 100

	// MaxRichTextLength is the maximum length of the content of one rich text
	// object.
	MaxRichTextLength = 2000
)

// Policy is the set of budgets a request session splits content under.
type Policy struct {
	MaxSliceCount        int `hcl:"max_slice_count,optional" json:"maxSliceCount,omitempty"`
	MaxCallNodeTotal     int `hcl:"max_call_node_total,optional" json:"maxCallNodeTotal,omitempty"`
	MaxDepth             int `hcl:"max_depth,optional" json:"maxDepth,omitempty"`
	MaxPayloadBytes      int `hcl:"max_payload_bytes,optional" json:"maxPayloadBytes,omitempty"`
	RequiredChildReserve int `hcl:"required_child_reserve,optional" json:"requiredChildReserve,omitempty"`
}

// Default returns the policy matching the API ceilings.
func Default() Policy {
	return Policy{
		MaxSliceCount:        MaxSliceCount,
		MaxCallNodeTotal:     MaxCallNodeTotal,
		MaxDepth:             MaxDepth,
		MaxPayloadBytes:      MaxPayloadBytes,
		RequiredChildReserve: RequiredChildReserve,
	}
}

// WithDefaults returns a copy of p where every unset (zero) field takes its
// default value.
func (p Policy) WithDefaults() Policy {
	d := Default()
	if p.MaxSliceCount == 0 {
		p.MaxSliceCount = d.MaxSliceCount
	}
	if p.MaxCallNodeTotal == 0 {
		p.MaxCallNodeTotal = d.MaxCallNodeTotal
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MaxPayloadBytes == 0 {
		p.MaxPayloadBytes = d.MaxPayloadBytes
	}
	if p.RequiredChildReserve == 0 {
		p.RequiredChildReserve = d.RequiredChildReserve
	}
	return p
}

// CallBudget is the number of blocks an ordinary (non-required) subtree may
// use in one call.
func (p Policy) CallBudget() int {
	return p.MaxCallNodeTotal - p.RequiredChildReserve
}

// Validate checks that the policy budgets are usable.
func (p Policy) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxSliceCount, validation.Required, validation.Min(1), validation.Max(p.MaxCallNodeTotal)),
		validation.Field(&p.MaxCallNodeTotal, validation.Required, validation.Min(1)),
		// Column lists always travel with their columns and first children.
		validation.Field(&p.MaxDepth, validation.Required, validation.Min(2)),
		validation.Field(&p.MaxPayloadBytes, validation.Required, validation.Min(1)),
		validation.Field(&p.RequiredChildReserve, validation.Min(0), validation.Max(p.MaxCallNodeTotal-1)),
	)
}
