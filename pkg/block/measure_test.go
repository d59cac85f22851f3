package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nestedTree returns:
//
//	toggle
//	  paragraph
//	  toggle
//	    paragraph
//	    paragraph
//	paragraph
func nestedTree() []*Block {
	return []*Block{
		Toggle("outer",
			Paragraph("a"),
			Toggle("inner", Paragraph("b"), Paragraph("c")),
		),
		Paragraph("d"),
	}
}

func TestMeasurement(t *testing.T) {
	tests := []struct {
		name           string
		blocks         []*Block
		depth          int
		containerCount int
		nodeCount      int
		longestArray   int
	}{
		{name: "Empty", blocks: nil},
		{
			name:         "Flat",
			blocks:       []*Block{Paragraph("a"), Paragraph("b"), Paragraph("c")},
			nodeCount:    3,
			longestArray: 3,
		},
		{
			name:           "Nested",
			blocks:         nestedTree(),
			depth:          2,
			containerCount: 2,
			nodeCount:      6,
			longestArray:   2,
		},
		{
			name:           "Wide child array",
			blocks:         []*Block{Toggle("t", Paragraph("1"), Paragraph("2"), Paragraph("3"), Paragraph("4"))},
			depth:          1,
			containerCount: 1,
			nodeCount:      5,
			longestArray:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.depth, Depth(tt.blocks))
			assert.Equal(t, tt.containerCount, ContainerCount(tt.blocks))
			assert.Equal(t, tt.nodeCount, NodeCount(tt.blocks))
			assert.Equal(t, tt.longestArray, LongestArray(tt.blocks))
		})
	}
}

func TestPayloadBytes(t *testing.T) {
	assert.Equal(t, 0, PayloadBytes(nil))

	blocks := nestedTree()
	total := 0
	for _, b := range blocks {
		data, err := json.Marshal(b)
		require.NoError(t, err)
		total += len(data)
	}
	assert.Equal(t, total, PayloadBytes(blocks))

	// Multi-byte runes are counted as encoded bytes.
	ascii := Size(Paragraph("aaaa"))
	utf8 := Size(Paragraph("éééé"))
	assert.Equal(t, ascii+4, utf8)

	assert.Equal(t, 0, Size(nil))
}

func TestMeasurement_IsPure(t *testing.T) {
	blocks := nestedTree()
	before, err := json.Marshal(blocks)
	require.NoError(t, err)

	first := []int{Depth(blocks), ContainerCount(blocks), LongestArray(blocks), PayloadBytes(blocks)}
	second := []int{Depth(blocks), ContainerCount(blocks), LongestArray(blocks), PayloadBytes(blocks)}
	assert.Equal(t, first, second)

	after, err := json.Marshal(blocks)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}
