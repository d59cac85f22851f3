package block

import (
	"fmt"
)

// Encode builds a block of type t from a plain Go value:
//
//   - text types (paragraph, headings, list items, to_do, toggle, quote,
//     callout) accept a string
//   - code and equation accept a string
//   - media and link types (image, video, file, pdf, bookmark, embed) accept
//     a URL string
//   - table accepts [][]string rows, table_row accepts []string cells
//   - divider, table_of_contents and breadcrumb accept nil
//   - any type accepts a map[string]any used as the payload as-is
//
// Types that need children (column_list, column) can only be encoded from a
// payload map; use ColumnList and Column to build them with children.
func Encode(t Type, value any) (*Block, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown block type %q", t)
	}

	if payload, ok := value.(map[string]any); ok {
		return New(t, payload), nil
	}

	switch t {
	case TypeParagraph, TypeHeading1, TypeHeading2, TypeHeading3,
		TypeBulletedListItem, TypeNumberedListItem, TypeToDo,
		TypeToggle, TypeQuote, TypeCallout:
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s expects a string, got %T", t, value)
		}
		return textBlock(t, text), nil

	case TypeCode:
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s expects a string, got %T", t, value)
		}
		return Code(text, "plain text"), nil

	case TypeEquation:
		expr, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s expects a string, got %T", t, value)
		}
		return Equation(expr), nil

	case TypeImage, TypeVideo, TypeFile, TypePDF:
		url, ok := value.(string)
		if !ok || url == "" {
			return nil, fmt.Errorf("%s expects a URL string, got %T", t, value)
		}
		return externalFile(t, url), nil

	case TypeBookmark, TypeEmbed:
		url, ok := value.(string)
		if !ok || url == "" {
			return nil, fmt.Errorf("%s expects a URL string, got %T", t, value)
		}
		return New(t, map[string]any{"url": url}), nil

	case TypeTable:
		rows, ok := value.([][]string)
		if !ok || len(rows) == 0 {
			return nil, fmt.Errorf("%s expects at least one row of cells, got %T", t, value)
		}
		tableRows := make([]*Block, len(rows))
		for i, cells := range rows {
			tableRows[i] = TableRow(cells...)
		}
		return Table(false, tableRows...), nil

	case TypeTableRow:
		cells, ok := value.([]string)
		if !ok {
			return nil, fmt.Errorf("%s expects []string cells, got %T", t, value)
		}
		return TableRow(cells...), nil

	case TypeDivider, TypeTableOfContents, TypeBreadcrumb:
		if value != nil {
			return nil, fmt.Errorf("%s takes no value, got %T", t, value)
		}
		return New(t, nil), nil
	}

	return nil, fmt.Errorf("%s cannot be encoded from %T", t, value)
}

func textBlock(t Type, text string, children ...*Block) *Block {
	return New(t, map[string]any{
		"rich_text": RichText(text),
		"color":     "default",
	}, children...)
}

func externalFile(t Type, url string) *Block {
	return New(t, map[string]any{
		"type":     "external",
		"external": map[string]any{"url": url},
	})
}

// Paragraph returns a paragraph block.
func Paragraph(text string, children ...*Block) *Block {
	return textBlock(TypeParagraph, text, children...)
}

// Heading returns a heading block of the given level (1 to 3). Levels out
// of range are clamped.
func Heading(level int, text string) *Block {
	switch {
	case level <= 1:
		return textBlock(TypeHeading1, text)
	case level == 2:
		return textBlock(TypeHeading2, text)
	default:
		return textBlock(TypeHeading3, text)
	}
}

// ToggleHeading returns a heading that can hold children.
func ToggleHeading(level int, text string, children ...*Block) *Block {
	h := Heading(level, text)
	h.Payload["is_toggleable"] = true
	if len(children) > 0 {
		h.Children = children
	}
	return h
}

func BulletedListItem(text string, children ...*Block) *Block {
	return textBlock(TypeBulletedListItem, text, children...)
}

func NumberedListItem(text string, children ...*Block) *Block {
	return textBlock(TypeNumberedListItem, text, children...)
}

// ToDo returns a to-do block.
func ToDo(text string, checked bool, children ...*Block) *Block {
	b := textBlock(TypeToDo, text, children...)
	b.Payload["checked"] = checked
	return b
}

func Toggle(text string, children ...*Block) *Block {
	return textBlock(TypeToggle, text, children...)
}

func Quote(text string, children ...*Block) *Block {
	return textBlock(TypeQuote, text, children...)
}

// Callout returns a callout with an emoji icon. An empty emoji leaves the
// icon to the API default.
func Callout(text, emoji string, children ...*Block) *Block {
	b := textBlock(TypeCallout, text, children...)
	if emoji != "" {
		b.Payload["icon"] = map[string]any{"type": "emoji", "emoji": emoji}
	}
	return b
}

// Code returns a code block.
func Code(text, language string) *Block {
	if language == "" {
		language = "plain text"
	}
	return New(TypeCode, map[string]any{
		"rich_text": RichText(text),
		"language":  language,
	})
}

func Equation(expression string) *Block {
	return New(TypeEquation, map[string]any{"expression": expression})
}

func Divider() *Block {
	return New(TypeDivider, nil)
}

func TableOfContents() *Block {
	return New(TypeTableOfContents, map[string]any{"color": "default"})
}

func Breadcrumb() *Block {
	return New(TypeBreadcrumb, nil)
}

func Image(url string) *Block    { return externalFile(TypeImage, url) }
func Video(url string) *Block    { return externalFile(TypeVideo, url) }
func File(url string) *Block     { return externalFile(TypeFile, url) }
func PDF(url string) *Block      { return externalFile(TypePDF, url) }
func Bookmark(url string) *Block { return New(TypeBookmark, map[string]any{"url": url}) }
func Embed(url string) *Block    { return New(TypeEmbed, map[string]any{"url": url}) }

// Table returns a table whose width is taken from the first row.
func Table(hasColumnHeader bool, rows ...*Block) *Block {
	width := 0
	if len(rows) > 0 {
		if cells, ok := rows[0].Payload["cells"].([]any); ok {
			width = len(cells)
		}
	}
	return New(TypeTable, map[string]any{
		"table_width":       width,
		"has_column_header": hasColumnHeader,
		"has_row_header":    false,
	}, rows...)
}

// TableRow returns a table row with one plain-text cell per value.
func TableRow(cells ...string) *Block {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = RichText(c)
	}
	return New(TypeTableRow, map[string]any{"cells": out})
}

// ColumnList returns a column list holding the given columns.
func ColumnList(columns ...*Block) *Block {
	return New(TypeColumnList, nil, columns...)
}

// Column returns a column holding the given blocks.
func Column(children ...*Block) *Block {
	return New(TypeColumn, nil, children...)
}
