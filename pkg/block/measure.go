package block

import "encoding/json"

// Depth returns the number of nesting levels below blocks: 0 when no block
// has children, otherwise one more than the deepest child sequence.
func Depth(blocks []*Block) int {
	depth := 0
	for _, b := range blocks {
		if !b.HasChildren() {
			continue
		}
		if d := 1 + Depth(b.Children); d > depth {
			depth = d
		}
	}
	return depth
}

// ContainerCount counts the blocks that carry children, at every level.
// Leaf blocks contribute nothing: the result is the number of blocks whose
// children may need a follow-up append.
func ContainerCount(blocks []*Block) int {
	count := 0
	for _, b := range blocks {
		if b.HasChildren() {
			count += 1 + ContainerCount(b.Children)
		}
	}
	return count
}

// NodeCount counts every block in the sequence, nested ones included.
func NodeCount(blocks []*Block) int {
	count := len(blocks)
	for _, b := range blocks {
		if b.HasChildren() {
			count += NodeCount(b.Children)
		}
	}
	return count
}

// LongestArray returns the length of the longest block sequence found at any
// level, starting with blocks itself.
func LongestArray(blocks []*Block) int {
	longest := len(blocks)
	for _, b := range blocks {
		if !b.HasChildren() {
			continue
		}
		if l := LongestArray(b.Children); l > longest {
			longest = l
		}
	}
	return longest
}

// PayloadBytes sums the encoded JSON size of each block, children included.
func PayloadBytes(blocks []*Block) int {
	size := 0
	for _, b := range blocks {
		size += Size(b)
	}
	return size
}

// Size returns the encoded JSON size of a single block and its children. A
// block that cannot be encoded has size 0; the transport reports the
// encoding error when it is sent.
func Size(b *Block) int {
	if b == nil {
		return 0
	}
	data, err := json.Marshal(b)
	if err != nil {
		return 0
	}
	return len(data)
}
