package blockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/request"
)

const releaseNotes = `
title: Release notes
icon: "📝"
cover: https://example.com/cover.png
properties:
  Status:
    select:
      name: Draft
blocks:
  - heading_1: Release notes
  - paragraph: Highlights of this release.
  - toggle:
      text: Details
      children:
        - bullet: faster sync
        - bullet:
            text: smaller payloads
            children:
              - paragraph: about half
  - todo: {text: Publish, checked: true}
  - code: {text: "go test ./...", language: shell}
  - table:
      header: true
      rows:
        - [Version, Date]
        - ["1.2.0", "2024-05-01"]
  - columns:
      - - paragraph: left
      - - image: https://example.com/right.png
  - divider
  - h2:
      text: Appendix
      children:
        - equation: e = mc^2
`

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(releaseNotes))
	require.NoError(t, err)

	assert.Equal(t, "Release notes", doc.Title)
	assert.Equal(t, "📝", doc.Icon)
	require.Len(t, doc.Blocks, 9)

	want := []block.Type{
		block.TypeHeading1,
		block.TypeParagraph,
		block.TypeToggle,
		block.TypeToDo,
		block.TypeCode,
		block.TypeTable,
		block.TypeColumnList,
		block.TypeDivider,
		block.TypeHeading2,
	}
	for i, typ := range want {
		assert.Equal(t, typ, doc.Blocks[i].Type, "block %d", i)
	}

	toggle := doc.Blocks[2]
	require.Len(t, toggle.Children, 2)
	assert.Equal(t, block.BulletedListItem("smaller payloads", block.Paragraph("about half")), toggle.Children[1])

	assert.Equal(t, block.ToDo("Publish", true), doc.Blocks[3])
	assert.Equal(t, block.Code("go test ./...", "shell"), doc.Blocks[4])

	table := doc.Blocks[5]
	assert.Equal(t, true, table.Payload["has_column_header"])
	assert.Len(t, table.Children, 2)

	columns := doc.Blocks[6]
	require.Len(t, columns.Children, 2)
	assert.Equal(t, block.Image("https://example.com/right.png"), columns.Children[1].Children[0])

	appendix := doc.Blocks[8]
	assert.Equal(t, true, appendix.Payload["is_toggleable"])
	assert.Equal(t, []*block.Block{block.Equation("e = mc^2")}, appendix.Children)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		errorMsg string
	}{
		{
			name:     "empty",
			input:    "",
			errorMsg: "block file is empty",
		},
		{
			name:     "malformed",
			input:    "blocks: [",
			errorMsg: "failed to parse block file",
		},
		{
			name:     "unknown type",
			input:    "blocks:\n  - sparkle: hi\n",
			errorMsg: `line 2: unknown block type "sparkle"`,
		},
		{
			name:     "two keys",
			input:    "blocks:\n  - paragraph: a\n    quote: b\n",
			errorMsg: "exactly one key",
		},
		{
			name:     "single column",
			input:    "blocks:\n  - columns:\n      - - paragraph: x\n",
			errorMsg: "at least 2 columns",
		},
		{
			name:     "table without rows",
			input:    "blocks:\n  - table: {header: true}\n",
			errorMsg: "table has no rows",
		},
		{
			name:     "divider with text",
			input:    "blocks:\n  - divider: hello\n",
			errorMsg: "takes no value",
		},
		{
			name:     "code with children",
			input:    "blocks:\n  - code:\n      text: x\n      children:\n        - paragraph: y\n",
			errorMsg: "line 3: code cannot have children",
		},
		{
			name:     "bookmark with children",
			input:    "blocks:\n  - bookmark:\n      url: https://example.com\n      children:\n        - paragraph: y\n",
			errorMsg: "bookmark cannot have children",
		},
		{
			name:     "table with children",
			input:    "blocks:\n  - table:\n      rows: [[a]]\n      children:\n        - paragraph: y\n",
			errorMsg: "table cannot have children",
		},
		{
			name:     "ragged table",
			input:    "blocks:\n  - table:\n      - [a, b]\n      - [c]\n",
			errorMsg: "table_width",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestDecode_ReportsEveryProblem(t *testing.T) {
	input := "blocks:\n  - sparkle: a\n  - paragraph: ok\n  - glitter: b\n"

	_, err := Decode(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2:")
	assert.Contains(t, err.Error(), "line 4:")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(releaseNotes), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 9)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read block file")
}

func TestDocument_PageRequest(t *testing.T) {
	doc, err := Decode(strings.NewReader(releaseNotes))
	require.NoError(t, err)

	req := doc.PageRequest(request.PageParent("parent-id"))
	require.NoError(t, req.Validate())

	assert.Equal(t, request.PageParent("parent-id"), req.Parent)
	assert.Contains(t, req.Properties, "title")
	assert.Contains(t, req.Properties, "Status")
	assert.Equal(t, request.EmojiIcon("📝"), req.Icon)
	assert.Equal(t, request.ExternalFile("https://example.com/cover.png"), req.Cover)
	assert.Equal(t, doc.Blocks, req.Children)

	// The document's own properties are left untouched.
	assert.NotContains(t, doc.Properties, "title")

	bare := &Document{Icon: "https://example.com/icon.png"}
	req = bare.PageRequest(request.Parent{Type: request.ParentWorkspace})
	assert.Nil(t, req.Properties)
	assert.Equal(t, request.ExternalFile("https://example.com/icon.png"), req.Icon)
}
