package block

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// Type identifies the category of a block. The set is closed: a Type that is
// not one of the constants below is rejected by Validate.
type Type string

const (
	TypeParagraph        Type = "paragraph"
	TypeHeading1         Type = "heading_1"
	TypeHeading2         Type = "heading_2"
	TypeHeading3         Type = "heading_3"
	TypeBulletedListItem Type = "bulleted_list_item"
	TypeNumberedListItem Type = "numbered_list_item"
	TypeToDo             Type = "to_do"
	TypeToggle           Type = "toggle"
	TypeQuote            Type = "quote"
	TypeCallout          Type = "callout"
	TypeCode             Type = "code"
	TypeDivider          Type = "divider"
	TypeEquation         Type = "equation"
	TypeTable            Type = "table"
	TypeTableRow         Type = "table_row"
	TypeColumnList       Type = "column_list"
	TypeColumn           Type = "column"
	TypeImage            Type = "image"
	TypeVideo            Type = "video"
	TypeFile             Type = "file"
	TypePDF              Type = "pdf"
	TypeBookmark         Type = "bookmark"
	TypeEmbed            Type = "embed"
	TypeSyncedBlock      Type = "synced_block"
	TypeTableOfContents  Type = "table_of_contents"
	TypeBreadcrumb       Type = "breadcrumb"
)

// typeInfo records the structural traits of each block type.
type typeInfo struct {
	// nests reports whether the type carries a children array.
	nests bool
	// exclusive types never share an outbound slice with other types.
	exclusive bool
	// required types are invalid without at least one child.
	required bool
}

var types = map[Type]typeInfo{
	TypeParagraph:        {nests: true},
	TypeHeading1:         {nests: true},
	TypeHeading2:         {nests: true},
	TypeHeading3:         {nests: true},
	TypeBulletedListItem: {nests: true},
	TypeNumberedListItem: {nests: true},
	TypeToDo:             {nests: true},
	TypeToggle:           {nests: true},
	TypeQuote:            {nests: true},
	TypeCallout:          {nests: true},
	TypeCode:             {},
	TypeDivider:          {},
	TypeEquation:         {},
	TypeTable:            {nests: true, exclusive: true, required: true},
	TypeTableRow:         {},
	TypeColumnList:       {nests: true, exclusive: true, required: true},
	TypeColumn:           {nests: true, required: true},
	TypeImage:            {},
	TypeVideo:            {},
	TypeFile:             {},
	TypePDF:              {},
	TypeBookmark:         {},
	TypeEmbed:            {},
	TypeSyncedBlock:      {nests: true},
	TypeTableOfContents:  {},
	TypeBreadcrumb:       {},
}

// Valid reports whether t is a known block type.
func (t Type) Valid() bool {
	_, ok := types[t]
	return ok
}

// SupportsChildren reports whether blocks of type t may carry children.
func (t Type) SupportsChildren() bool {
	return types[t].nests
}

// Exclusive reports whether t belongs to the exclusive category (tables and
// column lists), whose blocks are never sent in the same slice as blocks of
// other categories.
func (t Type) Exclusive() bool {
	return types[t].exclusive
}

// RequiresChildren reports whether a block of type t is invalid without
// children.
func (t Type) RequiresChildren() bool {
	return types[t].required
}

func (t Type) String() string {
	return string(t)
}

// ParseType converts a loosely spelled type name ("Heading1", "to-do",
// "bulleted list item") to a Type.
func ParseType(s string) (Type, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", fmt.Errorf("block type cannot be empty")
	}

	t := Type(strcase.ToSnake(name))
	switch t {
	case "h_1", "heading":
		t = TypeHeading1
	case "h_2":
		t = TypeHeading2
	case "h_3":
		t = TypeHeading3
	case "bullet", "bulleted":
		t = TypeBulletedListItem
	case "numbered":
		t = TypeNumberedListItem
	case "todo":
		t = TypeToDo
	case "columns":
		t = TypeColumnList
	}

	if !t.Valid() {
		return "", fmt.Errorf("unknown block type %q", s)
	}
	return t, nil
}
