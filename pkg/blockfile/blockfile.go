// Package blockfile loads page content from YAML documents.
//
// A document has a title, optional icon, cover and properties, and a list of
// blocks. Each block is a single-key mapping from its type to its value:
//
//	title: Release notes
//	icon: "📝"
//	blocks:
//	  - heading_1: Release notes
//	  - paragraph: Highlights of this release.
//	  - toggle:
//	      text: Details
//	      children:
//	        - bullet: faster sync
//	  - todo: {text: Publish, checked: true}
//	  - code: {text: "go test ./...", language: shell}
//	  - table:
//	      header: true
//	      rows:
//	        - [Version, Date]
//	        - ["1.2.0", "2024-05-01"]
//	  - columns:
//	      - - paragraph: left
//	      - - paragraph: right
//	  - divider
//
// Type names accept the aliases of block.ParseType.
package blockfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/pagewright/pkg/block"
	"github.com/hashicorp-forge/pagewright/pkg/request"
)

// Document is a decoded block file.
type Document struct {
	Title      string
	Icon       string
	Cover      string
	Properties map[string]any
	Blocks     []*block.Block
}

type rawDocument struct {
	Title      string         `yaml:"title"`
	Icon       string         `yaml:"icon"`
	Cover      string         `yaml:"cover"`
	Properties map[string]any `yaml:"properties"`
	Blocks     []yaml.Node    `yaml:"blocks"`
}

// fields holds what a block mapping may carry. Which ones apply depends
// on the block type.
type fields struct {
	Text       string        `yaml:"text"`
	Children   []yaml.Node   `yaml:"children"`
	Checked    bool          `yaml:"checked"`
	Language   string        `yaml:"language"`
	URL        string        `yaml:"url"`
	Emoji      string        `yaml:"emoji"`
	Expression string        `yaml:"expression"`
	Header     bool          `yaml:"header"`
	Rows       [][]string    `yaml:"rows"`
	Columns    [][]yaml.Node `yaml:"columns"`
}

// Load reads and decodes the block file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read block file: %w", err)
	}

	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Decode decodes a block file. Every problem found is reported, each with
// the line it was found on.
func Decode(r io.Reader) (*Document, error) {
	var raw rawDocument
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("block file is empty")
		}
		return nil, fmt.Errorf("failed to parse block file: %w", err)
	}

	d := &decoder{}
	blocks := d.blocks(raw.Blocks)
	if d.errs == nil {
		if err := block.Validate(blocks); err != nil {
			d.errs = multierror.Append(d.errs, err)
		}
	}
	if err := d.errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return &Document{
		Title:      raw.Title,
		Icon:       raw.Icon,
		Cover:      raw.Cover,
		Properties: raw.Properties,
		Blocks:     blocks,
	}, nil
}

// PageRequest returns a request creating the document as a page under
// parent. The title is written to the "title" property.
func (d *Document) PageRequest(parent request.Parent) *request.PageRequest {
	props := maps.Clone(d.Properties)
	if d.Title != "" {
		if props == nil {
			props = map[string]any{}
		}
		maps.Copy(props, request.TitleProperty(d.Title))
	}

	req := &request.PageRequest{
		Parent:     parent,
		Properties: props,
		Children:   d.Blocks,
	}
	if d.Icon != "" {
		if isURL(d.Icon) {
			req.Icon = request.ExternalFile(d.Icon)
		} else {
			req.Icon = request.EmojiIcon(d.Icon)
		}
	}
	if d.Cover != "" {
		req.Cover = request.ExternalFile(d.Cover)
	}
	return req
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

type decoder struct {
	errs *multierror.Error
}

func (d *decoder) fail(node *yaml.Node, format string, args ...any) {
	d.errs = multierror.Append(d.errs, fmt.Errorf("line %d: %s", node.Line, fmt.Sprintf(format, args...)))
}

func (d *decoder) blocks(nodes []yaml.Node) []*block.Block {
	var out []*block.Block
	for i := range nodes {
		if b := d.block(&nodes[i]); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (d *decoder) block(node *yaml.Node) *block.Block {
	switch node.Kind {
	case yaml.ScalarNode:
		t, err := block.ParseType(node.Value)
		if err != nil {
			d.fail(node, "%v", err)
			return nil
		}
		b, err := block.Encode(t, nil)
		if err != nil {
			d.fail(node, "%v", err)
			return nil
		}
		return b

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			d.fail(node, "a block is a mapping with exactly one key, got %d", len(node.Content)/2)
			return nil
		}
		key, value := node.Content[0], node.Content[1]
		t, err := block.ParseType(key.Value)
		if err != nil {
			d.fail(key, "%v", err)
			return nil
		}
		return d.typed(t, value)
	}

	d.fail(node, "a block is a type name or a mapping")
	return nil
}

// typed builds a block of type t from its value node.
func (d *decoder) typed(t block.Type, value *yaml.Node) *block.Block {
	switch value.Kind {
	case yaml.ScalarNode:
		if t == block.TypeTable || t == block.TypeColumnList {
			d.fail(value, "%s needs a mapping or a list", t)
			return nil
		}
		var v any = value.Value
		if value.Tag == "!!null" {
			v = nil
		}
		b, err := block.Encode(t, v)
		if err != nil {
			d.fail(value, "%v", err)
			return nil
		}
		return b

	case yaml.SequenceNode:
		switch t {
		case block.TypeColumnList:
			var columns [][]yaml.Node
			if err := value.Decode(&columns); err != nil {
				d.fail(value, "columns: %v", err)
				return nil
			}
			return d.columns(value, columns)
		case block.TypeTable:
			var rows [][]string
			if err := value.Decode(&rows); err != nil {
				d.fail(value, "rows: %v", err)
				return nil
			}
			return d.table(value, false, rows)
		}
		d.fail(value, "%s does not take a list", t)
		return nil

	case yaml.MappingNode:
		var s fields
		if err := value.Decode(&s); err != nil {
			d.fail(value, "%s: %v", t, err)
			return nil
		}
		return d.fromFields(t, value, &s)
	}

	d.fail(value, "unsupported value for %s", t)
	return nil
}

func (d *decoder) fromFields(t block.Type, node *yaml.Node, s *fields) *block.Block {
	// Tables and column lists build their children from rows and columns.
	if len(s.Children) > 0 && (!t.SupportsChildren() || t.Exclusive()) {
		d.fail(node, "%s cannot have children", t)
		return nil
	}
	children := d.blocks(s.Children)

	switch t {
	case block.TypeParagraph:
		return block.Paragraph(s.Text, children...)
	case block.TypeHeading1, block.TypeHeading2, block.TypeHeading3:
		level := headingLevel(t)
		if len(children) > 0 {
			return block.ToggleHeading(level, s.Text, children...)
		}
		return block.Heading(level, s.Text)
	case block.TypeBulletedListItem:
		return block.BulletedListItem(s.Text, children...)
	case block.TypeNumberedListItem:
		return block.NumberedListItem(s.Text, children...)
	case block.TypeToDo:
		return block.ToDo(s.Text, s.Checked, children...)
	case block.TypeToggle:
		return block.Toggle(s.Text, children...)
	case block.TypeQuote:
		return block.Quote(s.Text, children...)
	case block.TypeCallout:
		return block.Callout(s.Text, s.Emoji, children...)
	case block.TypeCode:
		return block.Code(s.Text, s.Language)
	case block.TypeEquation:
		expr := s.Expression
		if expr == "" {
			expr = s.Text
		}
		return block.Equation(expr)
	case block.TypeImage, block.TypeVideo, block.TypeFile, block.TypePDF,
		block.TypeBookmark, block.TypeEmbed:
		b, err := block.Encode(t, s.URL)
		if err != nil {
			d.fail(node, "%v", err)
			return nil
		}
		return b
	case block.TypeTable:
		return d.table(node, s.Header, s.Rows)
	case block.TypeColumnList:
		return d.columns(node, s.Columns)
	}

	// Remaining types take their payload as written.
	var payload map[string]any
	if err := node.Decode(&payload); err != nil {
		d.fail(node, "%s: %v", t, err)
		return nil
	}
	delete(payload, "children")
	return block.New(t, payload, children...)
}

func (d *decoder) table(node *yaml.Node, header bool, rows [][]string) *block.Block {
	if len(rows) == 0 {
		d.fail(node, "table has no rows")
		return nil
	}
	out := make([]*block.Block, len(rows))
	for i, cells := range rows {
		out[i] = block.TableRow(cells...)
	}
	return block.Table(header, out...)
}

func (d *decoder) columns(node *yaml.Node, columns [][]yaml.Node) *block.Block {
	if len(columns) < 2 {
		d.fail(node, "columns needs at least 2 columns, got %d", len(columns))
		return nil
	}
	out := make([]*block.Block, len(columns))
	for i, col := range columns {
		out[i] = block.Column(d.blocks(col)...)
	}
	return block.ColumnList(out...)
}

func headingLevel(t block.Type) int {
	switch t {
	case block.TypeHeading2:
		return 2
	case block.TypeHeading3:
		return 3
	}
	return 1
}
