package request

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/chunk"
)

// AppendResult aggregates the outcome of Append.
type AppendResult struct {
	// Responses holds every raw response in call order. Responses to child
	// listing requests are not included.
	Responses []json.RawMessage

	// APICallCount counts every request made, child listings included.
	APICallCount int

	// ProtocolErrors aggregates the responses that did not line up with what
	// was sent. The deferred content of the affected blocks was skipped.
	// Nil when every response matched.
	ProtocolErrors error
}

// AppendOption configures a single Append.
type AppendOption func(*appendOptions)

type appendOptions struct {
	after string
}

// After inserts the appended blocks after the sibling blockID instead of at
// the end of the parent.
func After(blockID string) AppendOption {
	return func(o *appendOptions) {
		o.after = blockID
	}
}

// deferral holds children that were held back from a request. path locates
// the block they belong to in the outbound slice: the first element is the
// position in the slice, further elements are positions among the children
// of the block before it.
type deferral struct {
	path   []int
	blocks []*block.Block
}

// Append appends blocks, with all of their descendants, to the block or page
// parentID.
//
// Every request is awaited before the next is made. A transport error aborts
// the whole operation; blocks created by earlier requests are not removed.
func (s *Session) Append(ctx context.Context, parentID string, blocks []*block.Block, opts ...AppendOption) (*AppendResult, error) {
	s.reset()

	if len(blocks) == 0 {
		return &AppendResult{}, nil
	}
	if parentID == "" {
		return nil, fmt.Errorf("%w: parent block id is required", block.ErrInvalidStructure)
	}
	if err := block.Validate(blocks); err != nil {
		return nil, err
	}

	var o appendOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := s.appendTree(ctx, parentID, blocks, o.after); err != nil {
		return nil, err
	}

	return &AppendResult{
		Responses:      s.responses,
		APICallCount:   s.calls,
		ProtocolErrors: s.problems.ErrorOrNil(),
	}, nil
}

// appendTree sends blocks to parentID slice by slice. The deferred content
// of each slice is appended before the next slice is sent.
func (s *Session) appendTree(ctx context.Context, parentID string, blocks []*block.Block, after string) error {
	slices := chunk.Partition(blocks, s.policy)
	anchor := after

	for n, slice := range slices {
		outbound, deferred, err := s.prepare(slice)
		if err != nil {
			return err
		}
		if err := block.CheckTables(outbound); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.Debug("appending children",
			"parent_id", parentID,
			"slice", n+1,
			"slices", len(slices),
			"blocks", len(outbound),
			"nodes", block.NodeCount(outbound),
			"deferred", len(deferred),
		)

		resp, err := s.transport.AppendChildren(ctx, parentID, outbound, anchor)
		s.calls++
		if err != nil {
			return fmt.Errorf("failed to append %d blocks to %s: %w", len(outbound), parentID, err)
		}
		s.responses = append(s.responses, resp)

		results, err := s.results(resp)
		if err != nil {
			s.logger.Warn("unable to read append results", "parent_id", parentID, "error", err)
			results = nil
		}

		if anchor != "" && n < len(slices)-1 {
			last := len(outbound) - 1
			if last >= len(results) || results[last].ID == "" {
				return fmt.Errorf("%w: no id for block %d of the slice appended to %s", ErrAnchorLost, last, parentID)
			}
			anchor = results[last].ID
		}

		listed := make(map[string][]Result)
		for _, d := range deferred {
			id, ok, err := s.resolve(ctx, parentID, outbound, results, d.path, listed)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.appendTree(ctx, id, d.blocks, ""); err != nil {
				return err
			}
		}
	}

	return nil
}

// fits reports whether blocks can be sent whole in one request.
func (s *Session) fits(blocks []*block.Block) bool {
	return block.NodeCount(blocks) <= s.policy.MaxCallNodeTotal &&
		block.Depth(blocks) <= s.policy.MaxDepth &&
		block.LongestArray(blocks) <= s.policy.MaxSliceCount
}

// prepare returns the outbound copy of slice together with the children that
// were held back from it.
//
// Slices of tables and column lists always go through detachment: their
// children are partly required and cannot be sent in a later request
// without the container already existing.
func (s *Session) prepare(slice []*block.Block) ([]*block.Block, []deferral, error) {
	if !slice[0].Type.Exclusive() && s.fits(slice) {
		return slice, nil, nil
	}

	// RequiredChildReserve covers the rows and columns a container is sent
	// with even when the budget is spent.
	budget := s.policy.CallBudget()
	used := len(slice)

	outbound := make([]*block.Block, len(slice))
	var deferred []deferral

	for i, b := range slice {
		if !b.HasChildren() {
			outbound[i] = b
			continue
		}

		if b.Type == block.TypeColumnList {
			out, ds, n, err := s.prepareColumns(i, b, budget-used)
			if err != nil {
				return nil, nil, err
			}
			outbound[i] = out
			deferred = append(deferred, ds...)
			used += n
			continue
		}

		take, n := s.leading(b.Children, 1, budget-used)
		if take == 0 && b.Type.RequiresChildren() {
			first, ds, err := s.requiredFirst(i, b)
			if err != nil {
				return nil, nil, err
			}
			used += block.NodeCount([]*block.Block{first})
			outbound[i] = b.WithChildren([]*block.Block{first})
			deferred = append(deferred, ds...)
			if len(b.Children) > 1 {
				deferred = append(deferred, deferral{path: []int{i}, blocks: b.Children[1:]})
			}
			continue
		}
		used += n

		switch {
		case take == len(b.Children):
			outbound[i] = b
		case take == 0:
			outbound[i] = b.WithoutChildren()
		default:
			outbound[i] = b.WithChildren(b.Children[:take])
		}
		if take < len(b.Children) {
			deferred = append(deferred, deferral{path: []int{i}, blocks: b.Children[take:]})
		}
	}

	if s.lister == nil {
		for _, d := range deferred {
			if len(d.path) > 1 {
				return nil, nil, fmt.Errorf("%w: %s at position %d needs a child lister to be sent in parts", ErrUnsplittable, slice[d.path[0]].Type, d.path[0])
			}
		}
	}

	return outbound, deferred, nil
}

// leading returns how many leading children can be sent whole at the given
// nesting level within remaining nodes, and the nodes they use.
func (s *Session) leading(children []*block.Block, level, remaining int) (int, int) {
	take, used := 0, 0
	for _, c := range children {
		one := []*block.Block{c}
		cost := block.NodeCount(one)
		if take >= s.policy.MaxSliceCount ||
			used+cost > remaining ||
			level+block.Depth(one) > s.policy.MaxDepth ||
			block.LongestArray(c.Children) > s.policy.MaxSliceCount {
			break
		}
		take++
		used += cost
	}
	return take, used
}

// requiredFirst returns the first child of b, which must be sent with b
// because b cannot exist without children. A child that is nested too deep
// or holds too many children for the request is sent without them; they are
// deferred below it.
func (s *Session) requiredFirst(i int, b *block.Block) (*block.Block, []deferral, error) {
	first := b.Children[0]
	one := []*block.Block{first}
	if !first.HasChildren() ||
		(1+block.Depth(one) <= s.policy.MaxDepth &&
			block.LongestArray(first.Children) <= s.policy.MaxSliceCount &&
			block.NodeCount(one) <= s.policy.RequiredChildReserve) {
		return first, nil, nil
	}
	if first.Type.RequiresChildren() {
		return nil, nil, fmt.Errorf("%w: %s at position %d starts with a %s that is nested too deep to send", ErrUnsplittable, b.Type, i, first.Type)
	}
	return first.WithoutChildren(), []deferral{{path: []int{i, 0}, blocks: first.Children}}, nil
}

// prepareColumns handles a column list at position i of a slice. The list
// is sent whole when it fits. Otherwise it is sent with every column and
// the leading children of each column; nested children of those and the
// overflow of each column are deferred.
func (s *Session) prepareColumns(i int, list *block.Block, remaining int) (*block.Block, []deferral, int, error) {
	columns := list.Children
	if block.NodeCount(columns) <= remaining &&
		1+block.Depth(columns) <= s.policy.MaxDepth &&
		block.LongestArray(columns) <= s.policy.MaxSliceCount {
		return list, nil, block.NodeCount(columns), nil
	}
	if len(columns) > s.policy.MaxSliceCount {
		return nil, nil, 0, fmt.Errorf("%w: column list at position %d has %d columns", ErrUnsplittable, i, len(columns))
	}

	used := len(columns)
	var deferred []deferral
	outColumns := make([]*block.Block, len(columns))

	for ci, col := range columns {
		var kids []*block.Block
		for k, kid := range col.Children {
			if len(kids) >= s.policy.MaxSliceCount {
				break
			}

			one := []*block.Block{kid}
			whole := 2+block.Depth(one) <= s.policy.MaxDepth &&
				block.LongestArray(kid.Children) <= s.policy.MaxSliceCount
			cost := 1
			if whole {
				cost = block.NodeCount(one)
			}
			if used+cost > remaining {
				if len(kids) > 0 {
					break
				}
				// A column is never sent empty.
				if kid.HasChildren() && !kid.Type.RequiresChildren() {
					whole, cost = false, 1
				}
			}
			if !whole && kid.Type.RequiresChildren() {
				if len(kids) == 0 {
					return nil, nil, 0, fmt.Errorf("%w: column %d of column list at position %d starts with a %s that is nested too deep to send", ErrUnsplittable, ci, i, kid.Type)
				}
				break
			}

			if whole {
				kids = append(kids, kid)
			} else {
				kids = append(kids, kid.WithoutChildren())
				deferred = append(deferred, deferral{path: []int{i, ci, k}, blocks: kid.Children})
			}
			used += cost
		}

		outColumns[ci] = col.WithChildren(kids)
		if rest := col.Children[len(kids):]; len(rest) > 0 {
			deferred = append(deferred, deferral{path: []int{i, ci}, blocks: rest})
		}
	}

	return list.WithChildren(outColumns), deferred, used, nil
}

// resolve returns the remote id of the block path points at. Blocks below
// the first level are found by listing children, which are cached in
// listed for the duration of one slice.
//
// A result that is missing or of the wrong type is recorded as a protocol
// mismatch and reported with ok set to false.
func (s *Session) resolve(ctx context.Context, parentID string, outbound []*block.Block, results []Result, path []int, listed map[string][]Result) (string, bool, error) {
	i := path[0]
	sent := outbound[i]
	if i >= len(results) {
		s.mismatch("parent %s: no result for block %d (%d results for %d blocks)", parentID, i, len(results), len(outbound))
		return "", false, nil
	}
	if got := results[i]; got.Type != sent.Type || got.ID == "" {
		s.mismatch("parent %s: block %d is %q with id %q, sent %q", parentID, i, got.Type, got.ID, sent.Type)
		return "", false, nil
	}
	id := results[i].ID

	for _, k := range path[1:] {
		if k >= len(sent.Children) {
			s.mismatch("block %s: no child %d was sent", id, k)
			return "", false, nil
		}
		sent = sent.Children[k]

		children, ok := listed[id]
		if !ok {
			var err error
			children, err = s.lister.ListChildren(ctx, id)
			s.calls++
			if err != nil {
				return "", false, fmt.Errorf("failed to list children of %s: %w", id, err)
			}
			listed[id] = children
		}

		if k >= len(children) {
			s.mismatch("block %s: no child %d (%d listed)", id, k, len(children))
			return "", false, nil
		}
		if got := children[k]; got.Type != sent.Type || got.ID == "" {
			s.mismatch("block %s: child %d is %q with id %q, sent %q", id, k, got.Type, got.ID, sent.Type)
			return "", false, nil
		}
		id = children[k].ID
	}

	return id, true, nil
}
