// Package chunk splits a sequence of sibling blocks into slices that each fit
// the per-request budgets of a Policy.
package chunk

import (
	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/limits"
)

// Partition splits siblings into ordered slices. Concatenating the slices
// reproduces the input exactly. A new slice starts when the next block
// would push the slice over MaxPayloadBytes, when the slice already holds
// MaxSliceCount blocks, or when the next block's exclusive category differs
// from the slice's. A block that is larger than MaxPayloadBytes on its own
// becomes a singleton slice. Empty input yields no slices.
//
// Sizes are measured with children attached; nested content is not split
// here.
func Partition(siblings []*block.Block, p limits.Policy) [][]*block.Block {
	if len(siblings) == 0 {
		return nil
	}

	var (
		slices    [][]*block.Block
		current   []*block.Block
		size      int
		exclusive bool
	)

	flush := func() {
		if len(current) > 0 {
			slices = append(slices, current)
		}
		current, size = nil, 0
	}

	for _, b := range siblings {
		bSize := block.Size(b)
		bExclusive := b.Type.Exclusive()

		if len(current) > 0 &&
			(size+bSize > p.MaxPayloadBytes ||
				len(current) >= p.MaxSliceCount ||
				bExclusive != exclusive) {
			flush()
		}

		if bSize > p.MaxPayloadBytes {
			// Oversized blocks go alone; the server decides whether to accept.
			slices = append(slices, []*block.Block{b})
			continue
		}

		current = append(current, b)
		size += bSize
		exclusive = bExclusive
	}
	flush()

	return slices
}

// Stats summarizes a partition for diagnostics.
type Stats struct {
	Slices  int
	Blocks  int
	Largest int // bytes of the largest slice
}

// Summarize returns Stats for a partition.
func Summarize(slices [][]*block.Block) Stats {
	var s Stats
	s.Slices = len(slices)
	for _, slice := range slices {
		s.Blocks += len(slice)
		if size := block.PayloadBytes(slice); size > s.Largest {
			s.Largest = size
		}
	}
	return s
}
