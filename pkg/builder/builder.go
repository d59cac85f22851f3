// Package builder provides a fluent API for assembling block trees.
//
//	blocks, err := builder.New().
//		Heading(1, "Release notes").
//		Paragraph("Highlights of this release.").
//		Toggle("Details", func(b *builder.Builder) {
//			b.BulletedList("faster sync", "smaller payloads")
//		}).
//		Table(true, []string{"Version", "Date"}, []string{"1.2.0", "2024-05-01"}).
//		Build()
//
// Errors are collected as blocks are added and returned together by Build.
// A Builder is not safe for concurrent use.
package builder

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp-forge/pagewright/pkg/block"
)

// Builder accumulates a sequence of sibling blocks.
type Builder struct {
	blocks []*block.Block
	errs   *multierror.Error
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{}
}

// Add appends prebuilt blocks.
func (b *Builder) Add(blocks ...*block.Block) *Builder {
	for _, blk := range blocks {
		if blk == nil {
			b.fail("block %d is nil", len(b.blocks))
			continue
		}
		b.blocks = append(b.blocks, blk)
	}
	return b
}

// Encode appends a block of type t encoded from value. See block.Encode for
// the accepted values.
func (b *Builder) Encode(t block.Type, value any) *Builder {
	blk, err := block.Encode(t, value)
	if err != nil {
		b.errs = multierror.Append(b.errs, fmt.Errorf("block %d: %w", len(b.blocks), err))
		return b
	}
	return b.Add(blk)
}

func (b *Builder) Paragraph(text string) *Builder {
	return b.Add(block.Paragraph(text))
}

// Heading appends a heading of level 1 to 3.
func (b *Builder) Heading(level int, text string) *Builder {
	if level < 1 || level > 3 {
		b.fail("heading level %d is out of range", level)
		return b
	}
	return b.Add(block.Heading(level, text))
}

// ToggleHeading appends a heading whose content is built by fn.
func (b *Builder) ToggleHeading(level int, text string, fn func(*Builder)) *Builder {
	if level < 1 || level > 3 {
		b.fail("heading level %d is out of range", level)
		return b
	}
	return b.Add(block.ToggleHeading(level, text, b.nest(fn)...))
}

// Toggle appends a toggle whose content is built by fn.
func (b *Builder) Toggle(text string, fn func(*Builder)) *Builder {
	return b.Add(block.Toggle(text, b.nest(fn)...))
}

// BulletedList appends one bulleted item per entry.
func (b *Builder) BulletedList(items ...string) *Builder {
	for _, item := range items {
		b.Add(block.BulletedListItem(item))
	}
	return b
}

// NumberedList appends one numbered item per entry.
func (b *Builder) NumberedList(items ...string) *Builder {
	for _, item := range items {
		b.Add(block.NumberedListItem(item))
	}
	return b
}

// Bullet appends a bulleted item with nested content built by fn, which may
// be nil.
func (b *Builder) Bullet(text string, fn func(*Builder)) *Builder {
	return b.Add(block.BulletedListItem(text, b.nest(fn)...))
}

func (b *Builder) ToDo(text string, checked bool) *Builder {
	return b.Add(block.ToDo(text, checked))
}

func (b *Builder) Quote(text string) *Builder {
	return b.Add(block.Quote(text))
}

// Callout appends a callout with an emoji icon and nested content built by
// fn, which may be nil.
func (b *Builder) Callout(text, emoji string, fn func(*Builder)) *Builder {
	return b.Add(block.Callout(text, emoji, b.nest(fn)...))
}

func (b *Builder) Code(text, language string) *Builder {
	return b.Add(block.Code(text, language))
}

func (b *Builder) Equation(expression string) *Builder {
	return b.Add(block.Equation(expression))
}

func (b *Builder) Divider() *Builder {
	return b.Add(block.Divider())
}

func (b *Builder) TableOfContents() *Builder {
	return b.Add(block.TableOfContents())
}

func (b *Builder) Image(url string) *Builder {
	return b.Add(block.Image(url))
}

func (b *Builder) Bookmark(url string) *Builder {
	return b.Add(block.Bookmark(url))
}

// Table appends a table with one row per cell slice. Every row must have as
// many cells as the first.
func (b *Builder) Table(hasColumnHeader bool, rows ...[]string) *Builder {
	if len(rows) == 0 {
		b.fail("table has no rows")
		return b
	}
	out := make([]*block.Block, len(rows))
	for i, cells := range rows {
		out[i] = block.TableRow(cells...)
	}
	return b.Add(block.Table(hasColumnHeader, out...))
}

// Columns appends a column list with one column per function.
func (b *Builder) Columns(columns ...func(*Builder)) *Builder {
	if len(columns) < 2 {
		b.fail("column list needs at least 2 columns, got %d", len(columns))
		return b
	}
	out := make([]*block.Block, len(columns))
	for i, fn := range columns {
		out[i] = block.Column(b.nest(fn)...)
	}
	return b.Add(block.ColumnList(out...))
}

// Len returns the number of top-level blocks added so far.
func (b *Builder) Len() int {
	return len(b.blocks)
}

// Build validates the tree and returns it, or every error collected.
func (b *Builder) Build() ([]*block.Block, error) {
	errs := b.errs
	if err := block.Validate(b.blocks); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return b.blocks, nil
}

// nest runs fn on a fresh builder and returns its blocks. Errors are carried
// over to b.
func (b *Builder) nest(fn func(*Builder)) []*block.Block {
	if fn == nil {
		return nil
	}
	child := New()
	fn(child)
	if child.errs != nil {
		b.errs = multierror.Append(b.errs, child.errs.Errors...)
	}
	return child.blocks
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = multierror.Append(b.errs, fmt.Errorf("block %d: "+format, append([]any{len(b.blocks)}, args...)...))
}
