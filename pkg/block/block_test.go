package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_MarshalJSON(t *testing.T) {
	b := Toggle("Details", Paragraph("inside"))

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "block", decoded["object"])
	assert.Equal(t, "toggle", decoded["type"])

	body, ok := decoded["toggle"].(map[string]any)
	require.True(t, ok, "toggle body should be an object")
	assert.Equal(t, "default", body["color"])

	children, ok := body["children"].([]any)
	require.True(t, ok, "children should be nested in the type body")
	require.Len(t, children, 1)
	assert.Equal(t, "paragraph", children[0].(map[string]any)["type"])
}

func TestBlock_MarshalJSON_OmitsEmptyChildren(t *testing.T) {
	b := Paragraph("leaf")
	b.Payload["children"] = []any{"ignored"}

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "children")
	assert.NotContains(t, string(data), "ignored")
}

func TestBlock_UnmarshalJSON(t *testing.T) {
	raw := `{
		"object": "block",
		"id": "c02fc1d3-db8b-45c5-a222-27595b15aea7",
		"has_children": true,
		"type": "bulleted_list_item",
		"bulleted_list_item": {
			"rich_text": [{"type": "text", "text": {"content": "Lacinato kale"}}],
			"color": "default",
			"children": [
				{"type": "paragraph", "paragraph": {"rich_text": []}},
				{"type": "divider", "divider": {}}
			]
		}
	}`

	var b Block
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.Equal(t, TypeBulletedListItem, b.Type)
	assert.Equal(t, "default", b.Payload["color"])
	assert.NotContains(t, b.Payload, "children")
	require.Len(t, b.Children, 2)
	assert.Equal(t, TypeParagraph, b.Children[0].Type)
	assert.Equal(t, TypeDivider, b.Children[1].Type)
	assert.False(t, b.Children[1].HasChildren())
}

func TestBlock_UnmarshalJSON_Errors(t *testing.T) {
	var b Block
	assert.Error(t, json.Unmarshal([]byte(`{"object":"block"}`), &b))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"paragraph","paragraph":[1]}`), &b))
	assert.Error(t, json.Unmarshal([]byte(`[]`), &b))
}

func TestBlock_WithoutChildren_DoesNotMutate(t *testing.T) {
	original := Toggle("t", Paragraph("a"), Paragraph("b"))

	stripped := original.WithoutChildren()
	assert.False(t, stripped.HasChildren())
	assert.Len(t, original.Children, 2)

	partial := original.WithChildren(original.Children[:1])
	assert.Len(t, partial.Children, 1)
	assert.Len(t, original.Children, 2)
}

func TestBlock_Clone(t *testing.T) {
	original := Toggle("t", Paragraph("a"))
	clone := original.Clone()

	clone.Payload["color"] = "red"
	clone.Children[0].Type = TypeQuote

	assert.Equal(t, "default", original.Payload["color"])
	assert.Equal(t, TypeParagraph, original.Children[0].Type)
	assert.Nil(t, CloneAll(nil))
}
