package notionapi

import (
	"context"
	"fmt"
)

// MaxPageSize is the largest page size list endpoints accept.
const MaxPageSize = 100

// Page is one page of a paginated list response.
type Page[T any] struct {
	Results    []T    `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// PageFunc fetches the page starting at cursor. The first page has an empty
// cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// Paginate follows next_cursor until the last page and returns every result
// in order.
func Paginate[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var (
		out    []T
		cursor string
	)
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Results...)

		if !page.HasMore || page.NextCursor == "" {
			return out, nil
		}
		if page.NextCursor == cursor {
			return nil, fmt.Errorf("pagination did not advance past cursor %s", cursor)
		}
		cursor = page.NextCursor
	}
}
