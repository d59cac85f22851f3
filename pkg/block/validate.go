package block

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrInvalidStructure is wrapped by every structural validation error.
	ErrInvalidStructure = errors.New("invalid block structure")

	// ErrEmptyTable reports a table without row children. The API rejects
	// tables created without rows.
	ErrEmptyTable = fmt.Errorf("%w: table has no rows", ErrInvalidStructure)
)

// Validate checks the structure of a block tree before anything is sent:
// known types only, children only on nesting types, required children
// present, and table/column children of the right type. All problems found
// are returned together.
func Validate(blocks []*Block) error {
	var result *multierror.Error
	validateLevel(blocks, "", "blocks", &result)
	return result.ErrorOrNil()
}

func validateLevel(blocks []*Block, parent Type, path string, result **multierror.Error) {
	for i, b := range blocks {
		at := fmt.Sprintf("%s[%d]", path, i)
		if b == nil {
			*result = multierror.Append(*result, fmt.Errorf("%w: %s is nil", ErrInvalidStructure, at))
			continue
		}
		if !b.Type.Valid() {
			*result = multierror.Append(*result, fmt.Errorf("%w: %s has unknown type %q", ErrInvalidStructure, at, b.Type))
			continue
		}

		switch parent {
		case TypeTable:
			if b.Type != TypeTableRow {
				*result = multierror.Append(*result, fmt.Errorf("%w: %s is a %s inside a table, want table_row", ErrInvalidStructure, at, b.Type))
			}
		case TypeColumnList:
			if b.Type != TypeColumn {
				*result = multierror.Append(*result, fmt.Errorf("%w: %s is a %s inside a column_list, want column", ErrInvalidStructure, at, b.Type))
			}
		case "":
		default:
			if b.Type == TypeTableRow || b.Type == TypeColumn {
				*result = multierror.Append(*result, fmt.Errorf("%w: %s is a %s inside a %s", ErrInvalidStructure, at, b.Type, parent))
			}
		}

		if b.HasChildren() && !b.Type.SupportsChildren() {
			*result = multierror.Append(*result, fmt.Errorf("%w: %s (%s) cannot have children", ErrInvalidStructure, at, b.Type))
			continue
		}
		if !b.HasChildren() && b.Type.RequiresChildren() {
			if b.Type == TypeTable {
				*result = multierror.Append(*result, fmt.Errorf("%s: %w", at, ErrEmptyTable))
			} else {
				*result = multierror.Append(*result, fmt.Errorf("%w: %s (%s) has no children", ErrInvalidStructure, at, b.Type))
			}
			continue
		}

		if b.Type == TypeTable {
			validateTableWidth(b, at, result)
		}

		validateLevel(b.Children, b.Type, at+".children", result)
	}
}

func validateTableWidth(table *Block, path string, result **multierror.Error) {
	width, ok := intValue(table.Payload["table_width"])
	if !ok {
		return
	}
	for i, row := range table.Children {
		if row == nil || row.Type != TypeTableRow {
			continue
		}
		cells, ok := row.Payload["cells"].([]any)
		if !ok {
			continue
		}
		if len(cells) != width {
			*result = multierror.Append(*result, fmt.Errorf("%w: %s.children[%d] has %d cells, table_width is %d",
				ErrInvalidStructure, path, i, len(cells), width))
		}
	}
}

// CheckTables returns ErrEmptyTable if any table in the tree has no rows.
// The request session runs it on every outbound slice.
func CheckTables(blocks []*Block) error {
	for _, b := range blocks {
		if b == nil {
			continue
		}
		if b.Type == TypeTable && !b.HasChildren() {
			return ErrEmptyTable
		}
		if err := CheckTables(b.Children); err != nil {
			return err
		}
	}
	return nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
